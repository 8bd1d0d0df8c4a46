// Package cutover coordinates the zero-downtime migration between the legacy
// identity provider (this service's own user store) and the new provider.
// The active mode is a deployment-time constant; transitions between modes
// are deployment pushes, never runtime events.
package cutover

import (
	"context"
	"log/slog"

	"github.com/solace-api/internal/application/audit"
	"github.com/solace-api/internal/domain"
	"github.com/solace-api/internal/infrastructure/idp"
)

// Mode is the resolved cutover stage.
type Mode string

const (
	ModeLegacyOnly Mode = "legacy-only"
	ModeHybrid     Mode = "hybrid"
	ModeNewFirst   Mode = "new-first"
)

// ResolveMode parses the configured mode string. Unknown values fall back to
// legacy-only with a warning rather than failing startup.
func ResolveMode(raw string) Mode {
	switch Mode(raw) {
	case ModeLegacyOnly, ModeHybrid, ModeNewFirst:
		return Mode(raw)
	default:
		slog.Warn("unknown cutover mode, falling back to legacy-only", "mode", raw)
		return ModeLegacyOnly
	}
}

// UserStore is the slice of the user repository the controller needs.
type UserStore interface {
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// Controller drives verification and credential writes across one or two
// identity providers, keeping the legacy path available even when the new
// provider is degraded.
type Controller struct {
	mode     Mode
	users    UserStore
	provider idp.Adapter // nil when the new provider is not configured
	auditor  *audit.Recorder
}

func NewController(mode Mode, users UserStore, provider idp.Adapter, auditor *audit.Recorder) *Controller {
	return &Controller{mode: mode, users: users, provider: provider, auditor: auditor}
}

// OnEmailVerified marks the legacy record verified and, when the user is
// linked and the mode involves the new provider, mirrors the confirmation.
// A provider failure is logged and swallowed: verification must succeed on
// the legacy side even when the new provider is down, and a linked user is
// never demoted by a failed call.
func (c *Controller) OnEmailVerified(ctx context.Context, user *domain.User) error {
	if err := c.users.Update(ctx, user.UserID, map[string]interface{}{"email_verified": true}); err != nil {
		return err
	}
	user.EmailVerified = true

	if c.mode == ModeLegacyOnly || c.provider == nil || user.NewProviderID == nil {
		return nil
	}

	if err := c.provider.ConfirmEmail(ctx, *user.NewProviderID); err != nil {
		slog.Warn("new-provider email confirmation failed, continuing on legacy",
			"user_id", user.UserID, "err", err)
		return nil
	}

	if user.AuthProvider == domain.ProviderLegacy {
		promoted := user.AuthProvider.Promote(domain.ProviderHybrid)
		if err := c.users.Update(ctx, user.UserID, map[string]interface{}{
			"auth_provider": string(promoted),
		}); err != nil {
			slog.Warn("auth provider promotion failed", "user_id", user.UserID, "err", err)
			return nil
		}
		user.AuthProvider = promoted
		c.auditor.Record(ctx, domain.AuditCutoverPromoted, user.UserID, map[string]string{
			"to": string(promoted),
		})
	}
	return nil
}

// OnPasswordReset writes the new credential to the legacy store. Mirroring
// the password to the new provider (for linked users) is the provider
// adapter's own responsibility, outside this controller's contract.
func (c *Controller) OnPasswordReset(ctx context.Context, user *domain.User, newPasswordHash string) error {
	return c.users.Update(ctx, user.UserID, map[string]interface{}{
		"password_hash": newPasswordHash,
	})
}

// Authorize decides which credential path authenticates this login per the
// active mode. False means the new provider accepted the credentials; true
// means the caller must perform the legacy password check itself, including
// when a new-first provider call fails and the login falls back.
func (c *Controller) Authorize(ctx context.Context, user *domain.User, password string) (useLegacy bool) {
	if c.mode != ModeNewFirst || c.provider == nil || user.NewProviderID == nil {
		return true
	}
	if _, err := c.provider.Authorize(ctx, user.Email, password); err != nil {
		slog.Warn("new-provider authorize failed, falling back to legacy",
			"user_id", user.UserID, "err", err)
		return true
	}
	return false
}
