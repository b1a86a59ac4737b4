package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/orgforge/orgforge/internal/authorization"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	identityservice "github.com/orgforge/orgforge/internal/identity/service"
	invitationdomain "github.com/orgforge/orgforge/internal/invitation/domain"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	orguserdomain "github.com/orgforge/orgforge/internal/orguser/domain"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isOrganizationValidationError(err),
		isOrgUserValidationError(err),
		isInvitationValidationError(err):
		return true
	case errors.Is(err, identityservice.ErrWeakPassword),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isOrganizationValidationError(err error) bool {
	switch {
	case errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidSlug),
		errors.Is(err, organizationdomain.ErrInvalidEmail):
		return true
	default:
		return false
	}
}

func isOrgUserValidationError(err error) bool {
	switch {
	case errors.Is(err, orguserdomain.ErrInvalidEmail),
		errors.Is(err, orguserdomain.ErrInvalidRole),
		errors.Is(err, orguserdomain.ErrReservedUsername):
		return true
	default:
		return false
	}
}

func isInvitationValidationError(err error) bool {
	switch {
	case errors.Is(err, invitationdomain.ErrInvalidInvite),
		errors.Is(err, invitationdomain.ErrInvalidIdentity),
		errors.Is(err, invitationdomain.ErrMissingLinkage):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, orguserdomain.ErrEmailConflict),
		errors.Is(err, orguserdomain.ErrUsernameConflict),
		errors.Is(err, organizationdomain.ErrSlugTaken),
		errors.Is(err, organizationdomain.ErrAutoAcceptDomainTaken),
		errors.Is(err, identitydomain.ErrEmailTaken),
		errors.Is(err, profiledomain.ErrProfileExists):
		return true
	default:
		return false
	}
}

// Email and username conflicts surface their exact message so callers can
// distinguish the two without parsing codes.
func conflictMessage(err error) string {
	switch {
	case errors.Is(err, orguserdomain.ErrEmailConflict):
		return orguserdomain.ErrEmailConflict.Error()
	case errors.Is(err, orguserdomain.ErrUsernameConflict):
		return orguserdomain.ErrUsernameConflict.Error()
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, orguserdomain.ErrUserNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, invitationdomain.ErrInviteNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "internal_error", code
	case status == http.StatusTooManyRequests:
		return "rate_limited", code
	default:
		return payload.Type, code
	}
}
