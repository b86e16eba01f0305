package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

var _ Provider = (*LocalProvider)(nil)

// LocalProvider subscribes against the in-process feed registry's HTTP
// surface. Used in development; the registry mirrors the production push
// hub's webhook contract.
type LocalProvider struct {
	registryURL string
	callbackURL string
	secret      string
	httpClient  *http.Client
}

func NewLocalProvider(registryURL, callbackURL, secret string, httpClient *http.Client) *LocalProvider {
	return &LocalProvider{
		registryURL: registryURL,
		callbackURL: callbackURL,
		secret:      secret,
		httpClient:  httpClient,
	}
}

func (p *LocalProvider) Type() Type {
	return TypeLocal
}

func (p *LocalProvider) WebhookSecret() string {
	return p.secret
}

func (p *LocalProvider) SubscribeToURL(ctx context.Context, feedURL string) error {
	return p.post(ctx, "/subscribe", map[string]string{
		"feedUrl":     feedURL,
		"callbackUrl": p.callbackURL,
	})
}

func (p *LocalProvider) UnsubscribeFromURL(ctx context.Context, feedURL string) error {
	return p.post(ctx, "/unsubscribe", map[string]string{
		"feedUrl": feedURL,
	})
}

func (p *LocalProvider) post(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.registryURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
