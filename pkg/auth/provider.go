package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vango-go/vai-character/pkg/core"
)

// HTTPTokenProvider exchanges an API key and secret for a session token.
type HTTPTokenProvider struct {
	Server     Server
	Signer     *Signer
	ResourceID string
	HTTPClient *http.Client
}

// NewHTTPTokenProvider returns a provider for server signing with key and
// secret. resourceID scopes the token to a workspace and may be empty.
func NewHTTPTokenProvider(server Server, apiKey, apiSecret, resourceID string) *HTTPTokenProvider {
	return &HTTPTokenProvider{
		Server:     server,
		Signer:     NewSigner(apiKey, apiSecret),
		ResourceID: resourceID,
		HTTPClient: NewDefaultHTTPClient(),
	}
}

// NewDefaultHTTPClient returns the HTTP client used for token and session
// REST calls.
func NewDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}

type tokenRequest struct {
	APIKey     string `json:"api_key"`
	ResourceID string `json:"resource_id,omitempty"`
}

// Token fetches a fresh token. Failures are *core.Error of kind ErrAuth.
func (p *HTTPTokenProvider) Token(ctx context.Context) (*Token, error) {
	if p == nil || p.Signer == nil {
		return nil, core.NewAuthError("token provider is not configured", nil)
	}
	header, err := p.Signer.Header(p.Server.Runtime)
	if err != nil {
		return nil, core.NewAuthError(err.Error(), err)
	}

	body, err := json.Marshal(tokenRequest{APIKey: p.Signer.APIKey, ResourceID: p.ResourceID})
	if err != nil {
		return nil, core.NewAuthError("encode token request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Server.TokenURL(), bytes.NewReader(body))
	if err != nil {
		return nil, core.NewAuthError("build token request", err)
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", "application/json")

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, core.NewAuthError("token request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, core.NewAuthError("read token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		authErr := core.NewAuthError(fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, msg), nil)
		authErr.Code = resp.StatusCode
		return nil, authErr
	}

	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, core.NewAuthError("decode token response", err)
	}
	if tok.Token == "" || tok.Type == "" {
		return nil, core.NewAuthError("token response is incomplete", nil)
	}
	return &tok, nil
}
