package domain

import "time"

// AuthProvider identifies which identity provider currently owns a user's
// credentials. During the cutover migration it only ever moves forward:
// legacy -> hybrid -> new.
type AuthProvider string

const (
	ProviderLegacy AuthProvider = "legacy"
	ProviderHybrid AuthProvider = "hybrid"
	ProviderNew    AuthProvider = "new"
)

// rank orders providers for monotonic promotion. Unknown values rank lowest
// so a corrupted field can never block promotion.
func (p AuthProvider) rank() int {
	switch p {
	case ProviderHybrid:
		return 1
	case ProviderNew:
		return 2
	default:
		return 0
	}
}

// Promote returns the further-along of p and target. It never regresses:
// promoting a hybrid user to legacy yields hybrid.
func (p AuthProvider) Promote(target AuthProvider) AuthProvider {
	if target.rank() > p.rank() {
		return target
	}
	return p
}

type User struct {
	UserID       string `json:"id" dynamodbav:"user_id"`
	Email        string `json:"email" dynamodbav:"email"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	Role         string `json:"role" dynamodbav:"role"`

	EmailVerified bool `json:"email_verified" dynamodbav:"email_verified"`

	// Cutover linkage to the new identity provider. NewProviderID is non-nil
	// iff the user has a mirrored account on the new provider.
	AuthProvider        AuthProvider `json:"auth_provider" dynamodbav:"auth_provider"`
	NewProviderID       *string      `json:"-" dynamodbav:"new_provider_id"`
	NewProviderLinkedAt *time.Time   `json:"-" dynamodbav:"new_provider_linked_at"`

	Enable    bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
