package backend

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ozzylabs/ozzy/pkg/errorsx"
)

// TokenIssuer mints the short-lived access tokens handed out by the
// registration endpoint. The call client presents the token as-is; the
// platform side verifies it with the shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// DefaultTokenTTL bounds how long an issued token can start a call.
const DefaultTokenTTL = 5 * time.Minute

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token binding the agent and call identifiers.
func (i *TokenIssuer) Issue(agentID, callID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"agent_id": agentID,
		"call_id":  callID,
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify checks signature and expiry and returns the bound identifiers.
func (i *TokenIssuer) Verify(token string) (agentID, callID string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", errorsx.Wrap(err, errorsx.ReasonTokenInvalid)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errorsx.Wrap(errors.New("unexpected claims type"), errorsx.ReasonTokenInvalid)
	}
	agentID, _ = claims["agent_id"].(string)
	callID, _ = claims["call_id"].(string)
	if agentID == "" || callID == "" {
		return "", "", errorsx.Wrap(errors.New("token missing identifiers"), errorsx.ReasonTokenInvalid)
	}
	return agentID, callID, nil
}
