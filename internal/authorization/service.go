package authorization

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

// Service answers whether an actor may perform an action on an object
// within an organization.
type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)

var Module = fx.Module("authorization",
	fx.Provide(
		NewEnforcer,
		NewService,
	),
)
