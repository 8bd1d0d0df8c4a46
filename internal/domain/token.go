package domain

// TokenPurpose scopes a verification token to the single flow allowed to
// redeem it.
type TokenPurpose string

const (
	PurposeVerify TokenPurpose = "verify"
	PurposeReset  TokenPurpose = "reset"
)

// Valid reports whether p is a recognized purpose.
func (p TokenPurpose) Valid() bool {
	return p == PurposeVerify || p == PurposeReset
}

// VerificationToken is the persisted half of a single-use token.
// PK: token_hash. The raw secret is shown to the user exactly once and never
// stored; redemption re-hashes the presented secret to locate this row.
// ExpiresAt is a Unix timestamp doubling as the DynamoDB TTL attribute.
type VerificationToken struct {
	TokenHash  string `json:"-" dynamodbav:"token_hash"`
	Identifier string `json:"identifier" dynamodbav:"identifier"` // "subject:purpose" wire form
	Purpose    string `json:"purpose" dynamodbav:"purpose"`
	ExpiresAt  int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	CreatedAt  int64  `json:"created_at" dynamodbav:"created_at"`
}
