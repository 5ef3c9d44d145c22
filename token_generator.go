package users

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenGenerator mints and checks the signed tokens embedded in
// confirmation and password reset links. Tokens are never persisted:
// claims carry a fingerprint of the user's mutable state, so setting a
// password (or changing the email) invalidates every outstanding link.
type TokenGenerator struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

type confirmClaims struct {
	jwt.RegisteredClaims
	State string `json:"state"`
}

// NewTokenGenerator creates a TokenGenerator. tokenExpiration is in
// hours, matching the host configuration.
func NewTokenGenerator(signingKey []byte, tokenExpiration int, issuer string, logger Logger) *TokenGenerator {
	if logger == nil {
		logger = defaultLogger()
	}
	return &TokenGenerator{
		signingKey: signingKey,
		ttl:        time.Duration(tokenExpiration) * time.Hour,
		issuer:     issuer,
		logger:     logger,
	}
}

// NewTokenGeneratorFromConfig wires a TokenGenerator from the package Config.
func NewTokenGeneratorFromConfig(cfg Config, logger Logger) *TokenGenerator {
	return NewTokenGenerator([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), "go-users", logger)
}

// Make mints a token bound to the user's current state.
func (g *TokenGenerator) Make(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}

	now := time.Now()
	claims := &confirmClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
		State: stateFingerprint(user),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(g.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign confirmation token")
	}

	return signed, nil
}

// Check validates a token against the user it was minted for. Expired
// tokens return ErrTokenExpired; tokens minted before a state change
// (e.g. a password set) return ErrTokenInvalid.
func (g *TokenGenerator) Check(user *User, tokenString string) error {
	if user == nil {
		return ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &confirmClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			g.logger.Error("token check encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.signingKey, nil
	}, jwt.WithIssuer(g.issuer))

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	claims, ok := token.Claims.(*confirmClaims)
	if !ok || !token.Valid {
		return ErrTokenInvalid
	}

	if claims.Subject != user.ID.String() {
		return ErrTokenInvalid
	}

	if claims.State != stateFingerprint(user) {
		return ErrTokenInvalid
	}

	return nil
}

// stateFingerprint digests the fields whose change should void
// outstanding links.
func stateFingerprint(u *User) string {
	h := sha256.New()
	h.Write([]byte(u.ID.String()))
	h.Write([]byte{0})
	h.Write([]byte(u.Email))
	h.Write([]byte{0})
	h.Write([]byte(u.PasswordHash))
	return hex.EncodeToString(h.Sum(nil))
}
