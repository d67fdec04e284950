// Package auth obtains session tokens for the character runtime.
package auth

import (
	"context"
	"strings"
	"time"
)

// Token is a session token as returned by the token endpoint.
type Token struct {
	Token          string `json:"token"`
	Type           string `json:"type"`
	ExpirationTime string `json:"expirationTime"`
	SessionID      string `json:"sessionId"`
}

var expirationLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// Expiration parses ExpirationTime, returning the zero time when it does not
// parse.
func (t *Token) Expiration() time.Time {
	if t == nil {
		return time.Time{}
	}
	raw := strings.TrimSpace(t.ExpirationTime)
	for _, layout := range expirationLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// IsValid reports whether the token is complete and unexpired at now.
func (t *Token) IsValid(now time.Time) bool {
	if t == nil || t.Token == "" || t.Type == "" {
		return false
	}
	exp := t.Expiration()
	return !exp.IsZero() && now.Before(exp)
}

// Subprotocols returns the WebSocket subprotocols that carry the token.
func (t *Token) Subprotocols() []string {
	if t == nil {
		return nil
	}
	return []string{t.Type, t.Token}
}

// TokenProvider fetches a fresh session token.
type TokenProvider interface {
	Token(ctx context.Context) (*Token, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (*Token, error)

func (f TokenProviderFunc) Token(ctx context.Context) (*Token, error) { return f(ctx) }

// StaticTokenProvider always returns the same token, for hosts that mint
// tokens on their own backend.
type StaticTokenProvider struct {
	Value Token
}

func (p StaticTokenProvider) Token(context.Context) (*Token, error) {
	tok := p.Value
	return &tok, nil
}
