package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"feedsink/app/feed"
	"feedsink/app/importer"
	"feedsink/app/provider"
)

// HandleWebhook is the push-provider fan-out: one upstream notification
// becomes one feed-item creation per (item x subscriber) pair, executed in
// bounded concurrent batches. Successful creations are never rolled back;
// any failed pair makes the whole delivery report failure so the provider
// retries, and content-addressed ids keep those retries from duplicating.
func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read request body"})
		return
	}

	signature := c.GetHeader(provider.SignatureHeader)
	if !provider.VerifySignature(h.feedProvider.WebhookSecret(), body, signature) {
		slog.Warn("Webhook signature mismatch", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid signature"})
		return
	}

	var payload provider.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed webhook body"})
		return
	}

	if payload.Status.Feed == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing status.feed"})
		return
	}
	for _, item := range payload.Items {
		if item.ID == "" || item.PermalinkURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "webhook item missing id or permalinkUrl"})
			return
		}
	}

	if payload.Status.Code != http.StatusOK {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("upstream fetch failed with status %d", payload.Status.Code),
		})
		return
	}

	subscriptions, err := h.subscriptionRepo.FindActiveByURL(payload.Status.Feed)
	if err != nil {
		slog.Error("Database error", "operation", "find_subscriptions", "feed", payload.Status.Feed, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
		return
	}

	if len(subscriptions) == 0 {
		slog.Debug("No active subscriptions for feed", "feed", payload.Status.Feed)
		c.JSON(http.StatusOK, gin.H{"success": true, "created": 0})
		return
	}

	fns := h.buildCreateTasks(payload.Items, subscriptions)
	result := importer.RunBatches(c.Request.Context(), h.batchSize, fns)

	if result.Failed() > 0 {
		slog.Error("Webhook fan-out partially failed",
			"feed", payload.Status.Feed,
			"succeeded", result.Succeeded,
			"failed", result.Failed())
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("%d of %d creations failed", result.Failed(), len(fns)),
		})
		return
	}

	slog.Info("Webhook processed",
		"feed", payload.Status.Feed,
		"items", len(payload.Items),
		"subscriptions", len(subscriptions),
		"created", result.Succeeded)

	c.JSON(http.StatusOK, gin.H{"success": true, "created": result.Succeeded})
}

func (h *Handler) buildCreateTasks(items []provider.WebhookItem, subscriptions []feed.Subscription) []func(context.Context) error {
	fns := make([]func(context.Context) error, 0, len(items)*len(subscriptions))

	for _, item := range items {
		for _, sub := range subscriptions {
			item, sub := item, sub

			originType := feed.OriginRSS
			if sub.Type == feed.SubscriptionYouTube {
				originType = feed.OriginYouTube
			}

			fns = append(fns, func(_ context.Context) error {
				_, _, err := h.creator.CreateItem(importer.CreateRequest{
					ID:             importer.StableItemID(sub.ID, item.ID),
					AccountID:      sub.AccountID,
					OriginType:     originType,
					SubscriptionID: sub.ID,
					URL:            item.PermalinkURL,
					Title:          item.Title,
					Summary:        item.Summary,
				})
				return err
			})
		}
	}

	return fns
}
