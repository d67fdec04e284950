package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	signatureScheme = "IW1-HMAC-SHA256"
	signatureTail   = "iw1_request"
	tokenMethod     = "ai.inworld.engine.v1.SessionTokens/GenerateSessionToken"
	nonceDigits     = 11
)

// Signer builds the HMAC authorization header for the token endpoint.
type Signer struct {
	APIKey    string
	APISecret string

	now   func() time.Time
	nonce func() string
}

func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{APIKey: apiKey, APISecret: apiSecret}
}

// Header returns the Authorization header value for host.
func (s *Signer) Header(host string) (string, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return "", fmt.Errorf("api key must not be empty")
	}
	if strings.TrimSpace(s.APISecret) == "" {
		return "", fmt.Errorf("api secret must not be empty")
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	nonce := randomNonce
	if s.nonce != nil {
		nonce = s.nonce
	}

	dateTime := now().UTC().Format("20060102150405")
	n := nonce()
	sig := signature(s.APISecret, dateTime, host, tokenMethod, n, signatureTail)
	return fmt.Sprintf("%s ApiKey=%s,DateTime=%s,Nonce=%s,Signature=%s", signatureScheme, s.APIKey, dateTime, n, sig), nil
}

// signature chains HMAC-SHA256: each input is signed with the previous
// digest as key, starting from "IW1"+secret.
func signature(secret string, inputs ...string) string {
	key := []byte("IW1" + secret)
	for _, in := range inputs {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(in))
		key = mac.Sum(nil)
	}
	return hex.EncodeToString(key)
}

func randomNonce() string {
	var b strings.Builder
	b.Grow(nonceDigits)
	ten := big.NewInt(10)
	for range nonceDigits {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String()
}
