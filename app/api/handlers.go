package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"feedsink/app/feed"
	"feedsink/app/importer"
)

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"provider":  string(h.feedProvider.Type()),
	}

	if count, err := h.itemRepo.GetItemCount(); err == nil {
		health["items"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.itemRepo.GetImportStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	response := gin.H{
		"items": gin.H{
			"total":      stats.Total,
			"new":        stats.New,
			"processing": stats.Processing,
			"completed":  stats.Completed,
			"failed":     stats.Failed,
		},
	}

	if subs, err := h.subscriptionRepo.ListSubscriptions(); err == nil {
		active := 0
		for _, sub := range subs {
			if sub.Active {
				active++
			}
		}
		response["subscriptions"] = gin.H{
			"total":  len(subs),
			"active": active,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListItems(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	items, err := h.itemRepo.ListItems(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": itemViews(items),
		"total": len(items),
	})
}

func (h *Handler) APIGetItem(c *gin.Context) {
	item, err := h.itemRepo.GetItem(c.Param("id"))
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	c.JSON(http.StatusOK, itemView(*item))
}

type createItemRequest struct {
	URL       string `json:"url" binding:"required"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	AccountID string `json:"accountId"`
	Origin    string `json:"origin"`
}

// APICreateItem is the direct-capture path: browser extension saves and
// manual adds. Creation routes through the import queue so the queue trigger
// stays exercised alongside the webhook's document trigger.
func (h *Handler) APICreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}

	originType := feed.OriginManual
	switch req.Origin {
	case "", "manual":
	case "extension":
		originType = feed.OriginExtension
	case "export":
		originType = feed.OriginExport
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid origin"})
		return
	}

	item, created, err := h.creator.CreateItem(importer.CreateRequest{
		AccountID:  req.AccountID,
		OriginType: originType,
		URL:        req.URL,
		Title:      req.Title,
		Summary:    req.Summary,
		ViaQueue:   true,
	})
	if err != nil {
		slog.Error("Failed to create item", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"created": created,
		"item":    itemView(*item),
	})
}

// APIRetryImport re-triggers the import of a failed item. Items currently
// being processed are refused; everything else may be re-claimed.
func (h *Handler) APIRetryImport(c *gin.Context) {
	id := c.Param("id")

	item, err := h.itemRepo.GetItem(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	if !item.ImportState.IsRetryable() {
		c.JSON(http.StatusConflict, gin.H{"error": "item is currently being processed"})
		return
	}

	if err := h.itemRepo.RequestReimport(id, time.Now().UTC()); err != nil {
		slog.Error("Failed to request reimport", "item_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request reimport"})
		return
	}

	h.scheduler.TriggerImport(id)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIListSubscriptions(c *gin.Context) {
	subs, err := h.subscriptionRepo.ListSubscriptions()
	if err != nil {
		slog.Error("Database error", "operation", "list_subscriptions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriptions": subs,
		"total":         len(subs),
	})
}

type createSubscriptionRequest struct {
	ID              string   `json:"id"`
	AccountID       string   `json:"accountId"`
	Type            string   `json:"type" binding:"required"`
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	IntervalSeconds int      `json:"intervalSeconds"`
	ScheduleType    string   `json:"scheduleType"`
	EveryNHours     int      `json:"everyNHours"`
	Days            []int    `json:"days"`
	Times           []string `json:"times"`
}

func (h *Handler) APICreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	sub := feed.Subscription{
		ID:              req.ID,
		AccountID:       req.AccountID,
		Type:            feed.SubscriptionType(req.Type),
		URL:             req.URL,
		Title:           req.Title,
		IntervalSeconds: req.IntervalSeconds,
		Active:          true,
	}
	if sub.ID == "" {
		sub.ID = importer.StableItemID(req.AccountID, req.Type+"|"+req.URL+"|"+req.Title)
	}

	sub.Schedule = feed.DeliverySchedule{
		Type:        feed.ScheduleType(req.ScheduleType),
		EveryNHours: req.EveryNHours,
		Times:       req.Times,
	}
	if sub.Schedule.Type == "" {
		sub.Schedule.Type = feed.ScheduleImmediate
	}
	for _, d := range req.Days {
		if d < 0 || d > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day of week"})
			return
		}
		sub.Schedule.Days = append(sub.Schedule.Days, time.Weekday(d))
	}

	switch sub.Type {
	case feed.SubscriptionRSS, feed.SubscriptionYouTube:
		if u, err := url.Parse(sub.URL); err != nil || u.Scheme == "" || u.Host == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
			return
		}
	case feed.SubscriptionInterval:
		if sub.IntervalSeconds < 60 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "intervalSeconds must be at least 60"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription type"})
		return
	}

	if err := h.subscriptionRepo.UpsertSubscription(sub); err != nil {
		slog.Error("Failed to upsert subscription", "subscription", sub.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}

	if sub.Type != feed.SubscriptionInterval {
		if err := h.feedProvider.SubscribeToURL(c.Request.Context(), sub.URL); err != nil {
			slog.Error("Provider subscribe failed", "subscription", sub.ID, "url", sub.URL, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider subscription failed"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "subscription": sub})
}

func (h *Handler) APIDeactivateSubscription(c *gin.Context) {
	id := c.Param("id")

	sub, err := h.subscriptionRepo.GetSubscription(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_subscription", "subscription", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	if err := h.subscriptionRepo.DeactivateSubscription(id); err != nil {
		slog.Error("Failed to deactivate subscription", "subscription", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate subscription"})
		return
	}

	// Best effort: the subscription row is already inactive, so a failed
	// provider unsubscribe only means some extra no-op webhook deliveries.
	if sub.Type != feed.SubscriptionInterval {
		if err := h.feedProvider.UnsubscribeFromURL(c.Request.Context(), sub.URL); err != nil {
			slog.Warn("Provider unsubscribe failed", "subscription", id, "url", sub.URL, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func itemView(item feed.Item) gin.H {
	view := gin.H{
		"id":            item.ID,
		"accountId":     item.AccountID,
		"origin":        string(item.OriginType),
		"contentType":   string(item.ContentType),
		"url":           item.URL,
		"title":         item.Title,
		"description":   item.Description,
		"summary":       item.Summary,
		"outgoingLinks": item.OutgoingLinks,
		"triageStatus":  string(item.TriageStatus),
		"tags":          item.Tags,
		"createdAt":     item.CreatedAt,
		"updatedAt":     item.UpdatedAt,
		"importState": gin.H{
			"status":          string(item.ImportState.Status),
			"shouldFetch":     item.ImportState.ShouldFetch,
			"lastRequestedAt": item.ImportState.LastRequestedAt,
			"startedAt":       item.ImportState.StartedAt,
			"failedAt":        item.ImportState.FailedAt,
			"lastSuccessAt":   item.ImportState.LastSuccessAt,
			"errorMessage":    item.ImportState.ErrorMessage,
		},
	}

	if item.ContentType == feed.ContentTypeXkcd {
		view["xkcdImageUrl"] = item.XkcdImageURL
		view["xkcdImageAlt"] = item.XkcdImageAlt
	}
	if item.ContentType == feed.ContentTypeInterval {
		view["intervalSeconds"] = item.IntervalSeconds
	}

	return view
}

func itemViews(items []feed.Item) []gin.H {
	views := make([]gin.H, 0, len(items))
	for _, item := range items {
		views = append(views, itemView(item))
	}
	return views
}
