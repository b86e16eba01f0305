package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var _ Provider = (*PushProvider)(nil)

// PushProvider talks to a hosted push hub using hub-convention form posts.
// The hub notifies us at the callback URL when a subscribed feed changes.
type PushProvider struct {
	endpoint    string
	callbackURL string
	secret      string
	httpClient  *http.Client
}

func NewPushProvider(endpoint, callbackURL, secret string, httpClient *http.Client) *PushProvider {
	return &PushProvider{
		endpoint:    endpoint,
		callbackURL: callbackURL,
		secret:      secret,
		httpClient:  httpClient,
	}
}

func (p *PushProvider) Type() Type {
	return TypePush
}

func (p *PushProvider) WebhookSecret() string {
	return p.secret
}

func (p *PushProvider) SubscribeToURL(ctx context.Context, feedURL string) error {
	return p.post(ctx, "subscribe", feedURL)
}

func (p *PushProvider) UnsubscribeFromURL(ctx context.Context, feedURL string) error {
	return p.post(ctx, "unsubscribe", feedURL)
}

func (p *PushProvider) post(ctx context.Context, mode, feedURL string) error {
	form := url.Values{
		"hub.mode":     {mode},
		"hub.topic":    {feedURL},
		"hub.callback": {p.callbackURL},
		"hub.secret":   {p.secret},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("hub returned %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
