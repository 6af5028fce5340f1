package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	ports "github.com/soramar/chatd/chatd/session/ports"
)

// Verifier resolves bearer tokens into identities. Verification is a pure
// function of the token and the shared secret; no lookup is involved.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Resolve decodes and verifies a token. Any failure, including an empty
// token, yields ErrUnauthenticated; the caller must re-authenticate.
func (v *Verifier) Resolve(token string) (ports.Identity, error) {
	if token == "" {
		return ports.Identity{}, ports.ErrUnauthenticated
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return ports.Identity{}, ports.ErrUnauthenticated
	}
	if c.Subject == "" {
		return ports.Identity{}, ports.ErrUnauthenticated
	}

	return ports.Identity{ID: c.Subject, Name: c.Name}, nil
}

// Mint issues a token binding the user id and display name.
func (v *Verifier) Mint(id, name string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: id,
		},
	})

	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Ensure Verifier implements the session port.
var _ ports.IdentityResolver = (*Verifier)(nil)
