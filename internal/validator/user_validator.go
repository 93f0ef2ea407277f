package validator

import (
	"regexp"
	"strings"

	"shopapi/internal/usecase"
)

const minPasswordLen = 8

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9\- ]{6,20}$`)
)

type userValidator struct{}

// Usecaseは interface を依存注入
func NewUserValidator() usecase.UserValidator {
	return &userValidator{}
}

// サインアップの入力を検証
func (v *userValidator) ValidateRegister(in usecase.RegisterInput) error {
	if !emailRe.MatchString(strings.TrimSpace(in.Email)) {
		return usecase.NewInvalidArgument("invalid email")
	}
	if err := v.ValidateProfile(in.FirstName, in.LastName, in.Phone); err != nil {
		return err
	}
	return v.ValidatePassword(in.Password)
}

func (v *userValidator) ValidateProfile(firstName string, lastName string, phone string) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return usecase.NewInvalidArgument("first name and last name required")
	}
	// 電話番号は任意
	if p := strings.TrimSpace(phone); p != "" && !phoneRe.MatchString(p) {
		return usecase.NewInvalidArgument("invalid phone")
	}
	return nil
}

func (v *userValidator) ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return usecase.NewInvalidArgument("password too short")
	}
	return nil
}
