package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/solace-api/internal/domain"
)

const secretBytes = 32

// identifierSep separates the subject from the purpose tag in the stored
// identifier. The purpose is always the final segment, so subjects containing
// no colon round-trip safely.
const identifierSep = ":"

// Issued is the in-flight result of minting a token. RawValue is handed to
// the user exactly once (inside an email link) and must never be logged or
// persisted; only HashedValue is stored.
type Issued struct {
	RawValue    string
	HashedValue string
	Identifier  string
}

// Issue mints a fresh single-use token for subject scoped to purpose.
func Issue(subject string, purpose domain.TokenPurpose) (*Issued, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown token purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	raw := hex.EncodeToString(b)
	return &Issued{
		RawValue:    raw,
		HashedValue: Hash(raw),
		Identifier:  EncodeIdentifier(subject, purpose),
	}, nil
}

// Hash derives the storage key for a raw secret. Deterministic, so redemption
// can locate the stored row without the secret ever being persisted.
func Hash(rawValue string) string {
	sum := sha256.Sum256([]byte(rawValue))
	return hex.EncodeToString(sum[:])
}

// EncodeIdentifier builds the colon-delimited wire form "subject:purpose".
func EncodeIdentifier(subject string, purpose domain.TokenPurpose) string {
	return subject + identifierSep + string(purpose)
}

// ParseIdentifier splits the wire form back into subject and purpose.
// The purpose is taken from the final colon-separated segment.
func ParseIdentifier(identifier string) (subject string, purpose domain.TokenPurpose, err error) {
	i := strings.LastIndex(identifier, identifierSep)
	if i <= 0 || i == len(identifier)-1 {
		return "", "", fmt.Errorf("malformed token identifier: %w", domain.ErrBadRequest)
	}
	subject = identifier[:i]
	purpose = domain.TokenPurpose(identifier[i+1:])
	if !purpose.Valid() {
		return "", "", fmt.Errorf("malformed token identifier: unknown purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	return subject, purpose, nil
}
