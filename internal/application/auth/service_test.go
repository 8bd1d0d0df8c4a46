package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solace-api/internal/application/cutover"
	"github.com/solace-api/internal/domain"
	pkgtoken "github.com/solace-api/internal/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

// memTokenStore is an in-memory TokenStore with real delete-and-return
// consumption, so double-redemption tests exercise the actual at-most-once
// behavior instead of scripted mock returns.
type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]domain.VerificationToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]domain.VerificationToken)}
}

func (s *memTokenStore) Put(_ context.Context, t *domain.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.TokenHash] = *t
	return nil
}

func (s *memTokenStore) ConsumeByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	delete(s.tokens, hash)
	return &t, nil
}

func (s *memTokenStore) DeleteByIdentifier(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tokens {
		if t.Identifier == identifier {
			delete(s.tokens, h)
		}
	}
	return nil
}

func (s *memTokenStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// --- helpers ---

const testEmail = "user@example.com"

type fixture struct {
	svc    Service
	users  *mockUserStore
	tokens *memTokenStore
	mailer *mockMailer
	signer *mockSigner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &mockUserStore{}
	tokens := newMemTokenStore()
	mailer := &mockMailer{}
	signer := &mockSigner{}
	cut := cutover.NewController(cutover.ModeLegacyOnly, users, nil, nil)
	svc := NewService(users, tokens, mailer, cut, signer, nil,
		"http://localhost:3000", 24*time.Hour, 15*time.Minute)
	return &fixture{svc: svc, users: users, tokens: tokens, mailer: mailer, signer: signer}
}

// rawTokenFromEmail pulls the raw secret out of the last captured email body.
func rawTokenFromEmail(t *testing.T, body string) string {
	t.Helper()
	_, after, ok := strings.Cut(body, "token=")
	require.True(t, ok, "email body must contain a token link, got: %s", body)
	return strings.TrimSpace(after)
}

// --- tests ---

func TestSignupCreatesUserAndSendsVerifyLink(t *testing.T) {
	f := newFixture(t)
	var sentBody string
	f.users.On("GetByEmail", mock.Anything, testEmail).
		Return(nil, fmt.Errorf("user not found: %w", domain.ErrNotFound))
	f.users.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == testEmail &&
			u.AuthProvider == domain.ProviderLegacy &&
			!u.EmailVerified &&
			u.PasswordHash != "hunter2secret"
	})).Return(nil)
	f.mailer.On("SendEmail", testEmail, "Confirm your email", mock.Anything).
		Run(func(args mock.Arguments) { sentBody = args.String(2) }).Return(nil)

	require.NoError(t, f.svc.Signup(context.Background(), domain.SignupRequest{
		Email:    testEmail,
		Password: "hunter2secret",
	}))

	raw := rawTokenFromEmail(t, sentBody)
	assert.Len(t, raw, 64)
	assert.Equal(t, 1, f.tokens.len())
	// Only the hash is at rest.
	stored, err := f.tokens.ConsumeByHash(context.Background(), pkgtoken.Hash(raw))
	require.NoError(t, err)
	assert.Equal(t, testEmail+":verify", stored.Identifier)
	assert.NotContains(t, stored.TokenHash, raw)
}

func TestSignupDuplicateEmailRejected(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByEmail", mock.Anything, testEmail).
		Return(&domain.User{UserID: "u1", Email: testEmail}, nil)

	err := f.svc.Signup(context.Background(), domain.SignupRequest{
		Email:    testEmail,
		Password: "hunter2secret",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.tokens.len(), "no token may be minted for a duplicate signup")
}

func TestVerifyEmailRedeemsAtMostOnce(t *testing.T) {
	f := newFixture(t)
	var sentBody string
	f.users.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.mailer.On("SendEmail", testEmail, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sentBody = args.String(2) }).Return(nil)
	// Not yet registered during signup, found afterwards for redemption.
	f.users.On("GetByEmail", mock.Anything, testEmail).
		Return(nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)).Once()
	f.users.On("GetByEmail", mock.Anything, testEmail).
		Return(&domain.User{UserID: "u1", Email: testEmail, AuthProvider: domain.ProviderLegacy}, nil)
	f.users.On("Update", mock.Anything, "u1", map[string]interface{}{"email_verified": true}).Return(nil)

	require.NoError(t, f.svc.Signup(context.Background(), domain.SignupRequest{Email: testEmail, Password: "hunter2secret"}))
	raw := rawTokenFromEmail(t, sentBody)

	require.NoError(t, f.svc.VerifyEmail(context.Background(), raw))

	err := f.svc.VerifyEmail(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "second redemption must fail")
	f.users.AssertNumberOfCalls(t, "Update", 1)
}

func TestVerifyEmailExpiredTokenFailsAndDeletesRow(t *testing.T) {
	f := newFixture(t)
	raw := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	require.NoError(t, f.tokens.Put(context.Background(), &domain.VerificationToken{
		TokenHash:  pkgtoken.Hash(raw),
		Identifier: testEmail + ":verify",
		Purpose:    "verify",
		ExpiresAt:  time.Now().Add(-time.Second).Unix(),
	}))

	err := f.svc.VerifyEmail(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Equal(t, 0, f.tokens.len(), "failed redemption must still burn the row")
}

func TestVerifyEmailRejectsWrongPurpose(t *testing.T) {
	f := newFixture(t)
	raw := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	require.NoError(t, f.tokens.Put(context.Background(), &domain.VerificationToken{
		TokenHash:  pkgtoken.Hash(raw),
		Identifier: testEmail + ":reset",
		Purpose:    "reset",
		ExpiresAt:  time.Now().Add(time.Hour).Unix(),
	}))

	err := f.svc.VerifyEmail(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Equal(t, 0, f.tokens.len(), "wrong-purpose attempt burns the token too")
}

func TestVerifyEmailUnknownTokenFails(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), "nope"), domain.ErrInvalidToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), ""), domain.ErrInvalidToken)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, fmt.Errorf("user not found: %w", domain.ErrNotFound))

	require.NoError(t, f.svc.ForgotPassword(context.Background(), domain.ForgotPasswordRequest{Email: "ghost@example.com"}),
		"unknown accounts get the same answer as known ones")
	assert.Equal(t, 0, f.tokens.len())
	f.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPasswordEndToEnd(t *testing.T) {
	f := newFixture(t)
	user := &domain.User{UserID: "u1", Email: testEmail, AuthProvider: domain.ProviderLegacy, Enable: true}
	var sentBody string
	f.users.On("GetByEmail", mock.Anything, testEmail).Return(user, nil)
	f.mailer.On("SendEmail", testEmail, "Reset your password", mock.Anything).
		Run(func(args mock.Arguments) { sentBody = args.String(2) }).Return(nil)
	f.users.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		hash, ok := updates["password_hash"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte("brand-new-pass")) == nil
	})).Return(nil)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), domain.ForgotPasswordRequest{Email: testEmail}))
	raw := rawTokenFromEmail(t, sentBody)

	require.NoError(t, f.svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Token:    raw,
		Password: "brand-new-pass",
	}))

	// The same raw token a second time: the row is gone.
	err := f.svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{Token: raw, Password: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	f.users.AssertNumberOfCalls(t, "Update", 1)
}

func TestReissueInvalidatesPriorToken(t *testing.T) {
	f := newFixture(t)
	user := &domain.User{UserID: "u1", Email: testEmail, Enable: true}
	bodies := []string{}
	f.users.On("GetByEmail", mock.Anything, testEmail).Return(user, nil)
	f.mailer.On("SendEmail", testEmail, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { bodies = append(bodies, args.String(2)) }).Return(nil)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), domain.ForgotPasswordRequest{Email: testEmail}))
	require.NoError(t, f.svc.ForgotPassword(context.Background(), domain.ForgotPasswordRequest{Email: testEmail}))
	require.Len(t, bodies, 2)

	assert.Equal(t, 1, f.tokens.len(), "reissue replaces the outstanding token")
	firstRaw := rawTokenFromEmail(t, bodies[0])
	err := f.svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{Token: firstRaw, Password: "whatever-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "older link must be dead")
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := func() *domain.User {
		return &domain.User{
			UserID: "u1", Email: testEmail, Role: domain.RoleUser,
			PasswordHash: string(hash), AuthProvider: domain.ProviderLegacy, Enable: true,
		}
	}

	t.Run("legacy success", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", mock.Anything, testEmail).Return(user(), nil)
		f.signer.On("Sign", "u1", domain.RoleUser).Return("bearer-1", nil)

		bearer, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: testEmail, Password: "correct-horse"})
		require.NoError(t, err)
		assert.Equal(t, "bearer-1", bearer)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", mock.Anything, testEmail).Return(user(), nil)

		_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: testEmail, Password: "wrong"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		f.signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", mock.Anything, testEmail).
			Return(nil, fmt.Errorf("user not found: %w", domain.ErrNotFound))

		_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: testEmail, Password: "correct-horse"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("disabled account", func(t *testing.T) {
		f := newFixture(t)
		u := user()
		u.Enable = false
		f.users.On("GetByEmail", mock.Anything, testEmail).Return(u, nil)

		_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: testEmail, Password: "correct-horse"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
