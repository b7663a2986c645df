package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no credential was supplied.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken covers malformed, expired and signature-mismatched tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	// Leeway tolerates clock skew on exp/nbf/iat checks.
	Leeway time.Duration
}

// Identity is the verified user reference attached to a connection.
type Identity struct {
	UserID string
	Claims map[string]any
}

// Verifier validates bearer tokens signed with a shared HMAC secret.
type Verifier struct {
	cfg    JWTConfig
	parser *jwt.Parser
}

// NewVerifier creates a verifier. A verifier without a secret is valid but
// rejects every token.
func NewVerifier(cfg JWTConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
	}
}

// Configured reports whether a signing secret is set.
func (v *Verifier) Configured() bool {
	return len(v.cfg.Secret) > 0
}

// Verify parses and validates a token and returns the identity it carries.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if !v.Configured() {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: subject claim is required", ErrInvalidToken)
	}

	return &Identity{
		UserID: sub,
		Claims: maps.Clone(map[string]any(claims)),
	}, nil
}

// IssueToken signs an HS256 token for subject. It exists for local tooling and
// tests; clients obtain real tokens from the identity provider.
func IssueToken(cfg JWTConfig, subject string, extra map[string]any, ttl time.Duration) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("signing secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}
	if cfg.Audience != "" {
		claims["aud"] = cfg.Audience
	}
	// Registered claims win over extras.
	for k, val := range extra {
		if _, reserved := claims[k]; !reserved {
			claims[k] = val
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
