// Package auth models login as a capability with interchangeable methods.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
)

// Supported method names.
const (
	MethodDisabled = "disabled"
	MethodPIN      = "pin"
)

// ErrMethodDisabled is returned by the Disabled method for every attempt.
var ErrMethodDisabled = errors.New("login method disabled")

// Session identifies an authenticated user. It is passed explicitly to the
// operations that need it.
type Session struct {
	UserID string
}

// Method authenticates a user with a secret.
type Method interface {
	Name() string
	Authenticate(ctx context.Context, userID, secret string) (*Session, error)
}

// Credential is the stored login material of a user.
type Credential struct {
	UserID  string
	PINHash string
}

// CredentialRepository looks up credentials. FindByUser returns an apperr
// not-found error when the user has none.
type CredentialRepository interface {
	FindByUser(ctx context.Context, userID string) (*Credential, error)
}

// NewMethod selects a Method by name.
func NewMethod(name string, creds CredentialRepository, pepper []byte) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MethodDisabled:
		return Disabled{}, nil
	case MethodPIN:
		if len(pepper) == 0 {
			return nil, errors.New("pin login requires a pepper")
		}
		return NewPIN(creds, pepper), nil
	default:
		return nil, errors.Errorf("unknown login method %q", name)
	}
}

// Disabled rejects every login attempt.
type Disabled struct{}

func (Disabled) Name() string { return MethodDisabled }

func (Disabled) Authenticate(context.Context, string, string) (*Session, error) {
	return nil, ErrMethodDisabled
}

// PIN authenticates users with a numeric PIN whose HMAC-SHA256 is stored.
type PIN struct {
	creds  CredentialRepository
	pepper []byte
}

// NewPIN creates a PIN method.
func NewPIN(creds CredentialRepository, pepper []byte) *PIN {
	return &PIN{creds: creds, pepper: pepper}
}

func (p *PIN) Name() string { return MethodPIN }

// Authenticate checks pin against the stored hash in constant time. Unknown
// users and wrong PINs produce the same unauthorized error.
func (p *PIN) Authenticate(ctx context.Context, userID, pin string) (*Session, error) {
	const op = "pin login"

	userID = strings.TrimSpace(userID)
	if userID == "" || !ValidPIN(pin) {
		return nil, apperr.Validation(op, "user id and a 4-8 digit pin are required", nil)
	}

	cred, err := p.creds.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized(op, "invalid credentials")
		}
		return nil, apperr.Storage(op, errors.Wrap(err, "find credential"))
	}

	if !Verify(p.pepper, cred.PINHash, pin) {
		return nil, apperr.Unauthorized(op, "invalid credentials")
	}
	return &Session{UserID: cred.UserID}, nil
}

// ValidPIN reports whether pin is 4 to 8 ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for i := range len(pin) {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// Hash returns the hex HMAC-SHA256 of secret keyed by pepper.
func Hash(pepper []byte, secret string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the HMAC of secret with a stored hex hash in constant time.
func Verify(pepper []byte, storedHex, secret string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(secret))
	return subtle.ConstantTimeCompare(mac.Sum(nil), stored) == 1
}
