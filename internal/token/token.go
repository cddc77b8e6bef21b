package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/elod87/service-book-2/internal/config"
)

// Kind identifies the purpose a token was issued for. A token only
// verifies against the kind it was generated with.
type Kind string

const (
	Session        Kind = "session"
	Refresh        Kind = "refresh"
	GoogleBridge   Kind = "google-bridge"
	PasswordReset  Kind = "password-reset"
	MailActivation Kind = "mail-activation"
	AdminApproval  Kind = "admin-approval"
)

// ErrInvalidToken is returned for any verification failure: bad
// signature, expired, malformed, or wrong kind.
var ErrInvalidToken = errors.New("invalid token")

// TTL returns the lifetime for tokens of this kind. Zero means the
// token never expires.
func (k Kind) TTL() time.Duration {
	switch k {
	case Session:
		return 15 * time.Minute
	case Refresh:
		return 60 * 24 * time.Hour
	case GoogleBridge:
		return 60 * time.Second
	case PasswordReset:
		return 15 * time.Minute
	case MailActivation:
		return 60 * time.Minute
	default:
		return 0
	}
}

type purposeClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Maker signs and verifies purpose-scoped tokens, one signing key per
// kind.
type Maker struct {
	secrets config.TokenSecrets
}

// NewMaker constructs a Maker from the configured signing keys.
func NewMaker(secrets config.TokenSecrets) *Maker {
	return &Maker{secrets: secrets}
}

// Generate creates a signed JWT of the given kind for the user.
func (m *Maker) Generate(kind Kind, userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &purposeClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl := kind.TTL(); ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(m.secret(kind)))
}

// Verify validates the token against the given kind and returns the
// embedded user ID. Any failure is reported as ErrInvalidToken.
func (m *Maker) Verify(tokenString string, kind Kind) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &purposeClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.secret(kind)), nil
	})
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*purposeClaims)
	if !ok || !tok.Valid || claims.Kind != string(kind) {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (m *Maker) secret(kind Kind) string {
	switch kind {
	case Refresh:
		return m.secrets.Refresh
	case GoogleBridge:
		return m.secrets.GoogleBridge
	case PasswordReset:
		return m.secrets.PasswordReset
	case MailActivation:
		return m.secrets.MailActivate
	case AdminApproval:
		return m.secrets.AdminApproval
	default:
		return m.secrets.Session
	}
}
