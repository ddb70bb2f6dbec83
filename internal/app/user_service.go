package app

import (
	"context"
	"fmt"
	"log/slog"

	appctx "github.com/jsamuelsen/request-scope-service/internal/app/context"
)

// Placeholder texts rendered when the unit of work carries no identity.
const (
	NoUserContextMessage = "No user context available"
	NoContextMessage     = "No context"
)

// UserProfile describes the caller of the current unit of work.
type UserProfile struct {
	Available bool
	UserID    string
	SessionID string
	Message   string
}

// UserService renders the identity bound to the current unit of work.
type UserService struct {
	logger *slog.Logger
}

// UserServiceConfig contains configuration for the user service.
type UserServiceConfig struct {
	Logger *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(cfg UserServiceConfig) *UserService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &UserService{logger: logger.With(slog.String("component", "app.UserService"))}
}

// Profile returns the caller's profile. A missing identity is not an error.
// The result is memoized for the rest of the unit of work.
func (s *UserService) Profile(ctx context.Context) UserProfile {
	profile, _ := appctx.GetOrFetch(ctx, "user.profile", func(ctx context.Context) (UserProfile, error) {
		return s.buildProfile(ctx), nil
	})

	return profile
}

func (s *UserService) buildProfile(ctx context.Context) UserProfile {
	ec, ok := appctx.Current(ctx)
	if !ok {
		s.logger.DebugContext(ctx, "no execution context bound")
		return UserProfile{Message: NoUserContextMessage}
	}

	userID, _ := ec.UserID()
	sessionID, _ := ec.SessionID()

	return UserProfile{
		Available: true,
		UserID:    userID,
		SessionID: sessionID,
		Message:   fmt.Sprintf("User Profile - ID: %s, Session: %s", orNull(ec.UserID()), orNull(ec.SessionID())),
	}
}

// ContextSummary renders the bound ExecutionContext, or NoContextMessage.
func (s *UserService) ContextSummary(ctx context.Context) string {
	ec, ok := appctx.Current(ctx)
	if !ok {
		return NoContextMessage
	}

	return ec.String()
}

func orNull(v string, ok bool) string {
	if !ok {
		return "null"
	}

	return v
}
