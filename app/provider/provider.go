package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

type Type string

const (
	TypeLocal Type = "local"
	TypePush  Type = "push"
)

// SignatureHeader carries the HMAC of the webhook body, hub-convention
// "sha1=<hex>" format.
const SignatureHeader = "X-Hub-Signature"

// Provider is the push-subscription side of a feed source. The local test
// registry and the production push hub share this contract, so the webhook
// handler never knows which one is behind a delivery.
type Provider interface {
	Type() Type
	WebhookSecret() string
	SubscribeToURL(ctx context.Context, feedURL string) error
	UnsubscribeFromURL(ctx context.Context, feedURL string) error
}

// SignBody computes the signature header value for a webhook body.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header against the body in
// constant time.
func VerifySignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, "sha1=") {
		return false
	}
	return hmac.Equal([]byte(SignBody(secret, body)), []byte(header))
}
