package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orgforge/orgforge/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyInviteOrg  = "invite:org:%s"
	keyInviteLock = "invite:lock:%s:%s"

	inviteLockTTL = 10 * time.Second
)

// InviteLimiter throttles member invitations per organization and guards
// against concurrent invites for the same identifier. It is disabled when
// no redis address is configured, in which case every call allows.
type InviteLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker
	policy *config.PolicyHolder
}

func NewInviteLimiter(cfg config.Config, policy *config.PolicyHolder) *InviteLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &InviteLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		policy:  policy,
	}
}

func (l *InviteLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowOrg consumes one invite token for the organization.
func (l *InviteLimiter) AllowOrg(ctx context.Context, orgID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	p := l.policy.Get()
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInviteOrg, strings.TrimSpace(orgID)), p.InviteRate, p.InviteBurst)
}

// TryLockIdentifier takes a short-lived lock so two concurrent invites for
// the same identifier cannot race past the application prechecks.
func (l *InviteLimiter) TryLockIdentifier(ctx context.Context, orgID, identifier string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keyInviteLock, strings.TrimSpace(orgID), strings.ToLower(strings.TrimSpace(identifier)))
	return l.locker.TryLock(ctx, key, inviteLockTTL)
}

func (l *InviteLimiter) ReleaseIdentifier(ctx context.Context, orgID, identifier, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keyInviteLock, strings.TrimSpace(orgID), strings.ToLower(strings.TrimSpace(identifier)))
	return l.locker.Release(ctx, key, token)
}
