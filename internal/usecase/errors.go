package usecase

import (
	"errors"
	"fmt"

	repo "shopapi/internal/repository"
)

type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindNotFound
	KindInvalidArgument
	KindConflict
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unexpected"
	}
}

// usecaseが返すエラー。handlerはKindでステータスを決める
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFound(message string) error {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewInvalidArgument(message string) error {
	return &AppError{Kind: KindInvalidArgument, Message: message}
}

func NewConflict(message string) error {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewUnauthorized(message string) error {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// 中身は外に出さない
func NewUnexpected(err error) error {
	return &AppError{Kind: KindUnexpected, Message: "internal error", Err: err}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func KindOf(err error) ErrorKind {
	if ae, ok := AsAppError(err); ok {
		return ae.Kind
	}
	return KindUnexpected
}

// repositoryのErrNotFoundだけNotFoundにし、他はUnexpected
func lookupErr(err error, what string) error {
	if _, ok := AsAppError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound(what + " not found")
	}
	return NewUnexpected(err)
}
