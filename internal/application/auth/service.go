package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solace-api/internal/application/audit"
	"github.com/solace-api/internal/application/cutover"
	"github.com/solace-api/internal/domain"
	"github.com/solace-api/internal/infrastructure/smtp"
	"github.com/solace-api/internal/pkg/id"
	pkgtoken "github.com/solace-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	Put(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// TokenStore persists single-use verification tokens. ConsumeByHash must be
// atomic (delete-and-return) so two concurrent redemptions can never both
// observe the same token as valid.
type TokenStore interface {
	Put(ctx context.Context, t *domain.VerificationToken) error
	ConsumeByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error)
	DeleteByIdentifier(ctx context.Context, identifier string) error
}

// BearerSigner issues the session bearer after a successful login.
type BearerSigner interface {
	Sign(userID, role string) (string, error)
}

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) error
	VerifyEmail(ctx context.Context, rawToken string) error
	ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (bearer string, err error)
}

type service struct {
	users     UserStore
	tokens    TokenStore
	mailer    smtp.Mailer
	cut       *cutover.Controller
	signer    BearerSigner // nil when JWT keys are not configured
	auditor   *audit.Recorder
	baseURL   string
	verifyTTL time.Duration
	resetTTL  time.Duration
}

func NewService(
	users UserStore,
	tokens TokenStore,
	mailer smtp.Mailer,
	cut *cutover.Controller,
	signer BearerSigner,
	auditor *audit.Recorder,
	baseURL string,
	verifyTTL, resetTTL time.Duration,
) Service {
	return &service{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		cut:       cut,
		signer:    signer,
		auditor:   auditor,
		baseURL:   baseURL,
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
	}
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) error {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		AuthProvider: domain.ProviderLegacy,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return err
	}
	return s.issueAndSend(ctx, req.Email, domain.PurposeVerify)
}

func (s *service) VerifyEmail(ctx context.Context, rawToken string) error {
	subject, err := s.redeem(ctx, rawToken, domain.PurposeVerify)
	if err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		// A valid token for a vanished account gets the same generic answer.
		return fmt.Errorf("verify-email subject lookup: %w", domain.ErrInvalidToken)
	}
	if err := s.cut.OnEmailVerified(ctx, u); err != nil {
		return err
	}
	s.auditor.Record(ctx, domain.AuditTokenRedeemed, u.UserID, map[string]string{"purpose": "verify"})
	return nil
}

func (s *service) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	if _, err := s.users.GetByEmail(ctx, req.Email); err != nil {
		// Respond identically whether or not the account exists.
		slog.Debug("password reset requested for unknown email")
		return nil
	}
	return s.issueAndSend(ctx, req.Email, domain.PurposeReset)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	subject, err := s.redeem(ctx, req.Token, domain.PurposeReset)
	if err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		return fmt.Errorf("reset-password subject lookup: %w", domain.ErrInvalidToken)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.cut.OnPasswordReset(ctx, u, string(hash)); err != nil {
		return err
	}
	s.auditor.Record(ctx, domain.AuditTokenRedeemed, u.UserID, map[string]string{"purpose": "reset"})
	return nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return "", fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}

	path := "provider"
	if s.cut.Authorize(ctx, u, req.Password) {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			s.auditor.Record(ctx, domain.AuditLoginFailure, u.UserID, nil)
			return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		path = "legacy"
	}

	if s.signer == nil {
		return "", errors.New("bearer signer not configured")
	}
	bearer, err := s.signer.Sign(u.UserID, u.Role)
	if err != nil {
		return "", err
	}
	s.auditor.Record(ctx, domain.AuditLoginSuccess, u.UserID, map[string]string{"path": path})
	return bearer, nil
}

// redeem consumes a raw token and checks expiry and purpose. All failure
// modes collapse into domain.ErrInvalidToken; the distinctions live only in
// logs and audit detail. The row is gone either way — consumption is one-way.
func (s *service) redeem(ctx context.Context, rawToken string, want domain.TokenPurpose) (subject string, err error) {
	if rawToken == "" {
		return "", fmt.Errorf("empty token: %w", domain.ErrInvalidToken)
	}
	t, err := s.tokens.ConsumeByHash(ctx, pkgtoken.Hash(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.auditor.Record(ctx, domain.AuditTokenRejected, "", map[string]string{"reason": "not_found"})
			return "", fmt.Errorf("token not found: %w", domain.ErrInvalidToken)
		}
		return "", err
	}
	subject, purpose, err := pkgtoken.ParseIdentifier(t.Identifier)
	if err != nil {
		s.auditor.Record(ctx, domain.AuditTokenRejected, t.Identifier, map[string]string{"reason": "malformed"})
		return "", fmt.Errorf("token identifier: %w", domain.ErrInvalidToken)
	}
	if time.Now().Unix() >= t.ExpiresAt {
		s.auditor.Record(ctx, domain.AuditTokenRejected, t.Identifier, map[string]string{"reason": "expired"})
		return "", fmt.Errorf("token expired: %w", domain.ErrInvalidToken)
	}
	if purpose != want {
		s.auditor.Record(ctx, domain.AuditTokenRejected, t.Identifier, map[string]string{"reason": "purpose_mismatch"})
		return "", fmt.Errorf("token purpose mismatch: %w", domain.ErrInvalidToken)
	}
	return subject, nil
}

// issueAndSend mints a fresh token, invalidates prior outstanding ones for
// the same identifier, persists the hash, and emails the raw link. The raw
// value exists only in the outbound email — never in storage or logs.
func (s *service) issueAndSend(ctx context.Context, email string, purpose domain.TokenPurpose) error {
	iss, err := pkgtoken.Issue(email, purpose)
	if err != nil {
		return err
	}
	if err := s.tokens.DeleteByIdentifier(ctx, iss.Identifier); err != nil {
		slog.Warn("could not invalidate prior tokens", "identifier", iss.Identifier, "err", err)
	}

	ttl := s.verifyTTL
	subject := "Confirm your email"
	link := s.baseURL + "/v1/auth/verify-email?token=" + iss.RawValue
	body := "Follow this link to confirm your email address: " + link
	if purpose == domain.PurposeReset {
		ttl = s.resetTTL
		subject = "Reset your password"
		link = s.baseURL + "/reset-password?token=" + iss.RawValue
		body = "Follow this link to reset your password: " + link
	}

	now := time.Now().UTC()
	if err := s.tokens.Put(ctx, &domain.VerificationToken{
		TokenHash:  iss.HashedValue,
		Identifier: iss.Identifier,
		Purpose:    string(purpose),
		ExpiresAt:  now.Add(ttl).Unix(),
		CreatedAt:  now.Unix(),
	}); err != nil {
		return err
	}
	s.auditor.Record(ctx, domain.AuditTokenIssued, iss.Identifier, map[string]string{"purpose": string(purpose)})
	return s.mailer.SendEmail(email, subject, body)
}
