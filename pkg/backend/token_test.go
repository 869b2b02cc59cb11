package backend

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ozzylabs/ozzy/pkg/errorsx"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	tok, err := issuer.Issue("agent-1", "call-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	agentID, callID, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if agentID != "agent-1" || callID != "call-1" {
		t.Fatalf("claims = %q/%q, want agent-1/call-1", agentID, callID)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	tok, err := NewTokenIssuer("secret-a", time.Minute).Issue("agent-1", "call-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, _, err = NewTokenIssuer("secret-b", time.Minute).Verify(tok)
	if !errorsx.HasReason(err, errorsx.ReasonTokenInvalid) {
		t.Fatalf("reason = %s, want token_invalid", errorsx.Reason(err))
	}
}

func TestTokenExpiredRejected(t *testing.T) {
	claims := jwt.MapClaims{
		"agent_id": "agent-1",
		"call_id":  "call-1",
		"iat":      time.Now().Add(-2 * time.Hour).Unix(),
		"exp":      time.Now().Add(-time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, _, err = NewTokenIssuer("secret", time.Minute).Verify(tok)
	if !errorsx.HasReason(err, errorsx.ReasonTokenInvalid) {
		t.Fatalf("reason = %s, want token_invalid", errorsx.Reason(err))
	}
}

func TestTokenMissingIdentifiersRejected(t *testing.T) {
	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, _, err = NewTokenIssuer("secret", time.Minute).Verify(tok)
	if !errorsx.HasReason(err, errorsx.ReasonTokenInvalid) {
		t.Fatalf("reason = %s, want token_invalid", errorsx.Reason(err))
	}
}
