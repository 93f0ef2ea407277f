package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleClient  Role = "CLIENT"
	RoleAdmin   Role = "ADMIN"
	RoleSupport Role = "SUPPORT"
)

// ParseRoleは大文字小文字を無視して判定
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleClient:
		return RoleClient, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSupport:
		return RoleSupport, true
	}
	return "", false
}

// Rolesはカンマ区切りの1カラムで保存する
type Roles []Role

func (r Roles) Value() (driver.Value, error) {
	parts := make([]string, 0, len(r))
	for _, role := range r {
		parts = append(parts, string(role))
	}
	return strings.Join(parts, ","), nil
}

func (r *Roles) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*r = Roles{}
		return nil
	default:
		return fmt.Errorf("roles: unsupported type %T", src)
	}

	out := Roles{}
	for _, p := range strings.Split(raw, ",") {
		if role, ok := ParseRole(p); ok {
			out = append(out, role)
		}
	}
	*r = out
	return nil
}

func (r Roles) Strings() []string {
	out := make([]string, 0, len(r))
	for _, role := range r {
		out = append(out, string(role))
	}
	return out
}

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	FirstName    string    `gorm:"type:varchar(100);not null"`
	LastName     string    `gorm:"type:varchar(100);not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone        string    `gorm:"type:varchar(30)"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Roles        Roles     `gorm:"type:varchar(100);not null"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
