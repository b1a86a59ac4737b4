package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/identity/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service interface {
	WithTx(tx *gorm.DB) Service
	SetPassword(ctx context.Context, userID snowflake.ID, password string) error
}

var ErrWeakPassword = errors.New("weak_password")

const minPasswordLength = 8

type service struct {
	repo domain.Repository
}

func NewService(repo domain.Repository) Service {
	return &service{repo: repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) SetPassword(ctx context.Context, userID snowflake.ID, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.repo.UpdateFields(ctx, userID, map[string]any{
		"password_hash": string(hash),
	})
}
