package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"resumeBuilder/internal/database"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email %q", raw)
	}
	return email, nil
}

// CreateUser 创建账号，邮箱已存在时返回 ErrEmailTaken。
func CreateUser(ctx context.Context, db *gorm.DB, email, fullName, password string) (*database.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return nil, fmt.Errorf("password must be %d-%d bytes", MinPasswordLength, MaxPasswordLength)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &database.User{Email: email, FullName: strings.TrimSpace(fullName), PasswordHash: hashed}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate 校验邮箱与密码。
func Authenticate(ctx context.Context, db *gorm.DB, email, password string) (*database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user database.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
