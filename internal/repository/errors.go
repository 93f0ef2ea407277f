package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// unique制約違反
	ErrDuplicate = errors.New("duplicate")

	// 他の行から参照されている（外部キー制約違反）
	ErrReferenced = errors.New("referenced")
)
