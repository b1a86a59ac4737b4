package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/orgforge/orgforge/internal/clock"
	"github.com/orgforge/orgforge/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxUsernameAttempts = 10

type service struct {
	repo  domain.Repository
	genID *snowflake.Node
	clk   clock.Clock
	log   *zap.Logger
}

func NewService(repo domain.Repository, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) domain.Service {
	return &service{
		repo:  repo,
		genID: genID,
		clk:   clk,
		log:   log,
	}
}

func (s *service) WithTx(tx *gorm.DB) domain.Service {
	return &service{
		repo:  s.repo.WithTx(tx),
		genID: s.genID,
		clk:   s.clk,
		log:   s.log,
	}
}

func (s *service) CreateForExistingUser(ctx context.Context, user domain.ExistingUser, orgID snowflake.ID) (*domain.Profile, error) {
	existing, err := s.repo.FindByUserAndOrg(ctx, user.ID, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrProfileExists
	}

	username, err := s.resolveUsername(ctx, orgID, usernameBase(user))
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	profile := &domain.Profile{
		ID:             s.genID.Generate(),
		UID:            uuid.NewString(),
		UserID:         user.ID,
		OrganizationID: orgID,
		Username:       username,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.log.Debug("attached profile to organization",
		zap.String("organization_id", orgID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
	)

	return profile, nil
}

// resolveUsername keeps the user's pre-organization username when free and
// falls back to numbered variants when another member already holds it.
func (s *service) resolveUsername(ctx context.Context, orgID snowflake.ID, base string) (string, error) {
	candidate := base
	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		taken, err := s.repo.UsernameExists(ctx, orgID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", fmt.Errorf("could not resolve a free username for %q", base)
}

func usernameBase(user domain.ExistingUser) string {
	if username := strings.TrimSpace(user.CurrentUsername); username != "" {
		return slug.Make(username)
	}
	local, _, _ := strings.Cut(user.Email, "@")
	return slug.Make(local)
}
