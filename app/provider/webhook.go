package provider

// Webhook delivery body. The production hub and the local registry both post
// this exact shape, so the fan-out handler is provider-agnostic. The payload
// is consumed once per request and never persisted.

type WebhookStatus struct {
	Code int    `json:"code"`
	Feed string `json:"feed"`
}

type WebhookItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	PermalinkURL string `json:"permalinkUrl"`
}

type WebhookPayload struct {
	Status WebhookStatus `json:"status"`
	Items  []WebhookItem `json:"items"`
}
