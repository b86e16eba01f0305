package registry

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// NewServer exposes the registry over HTTP: an RSS rendition of each feed
// plus the subscribe/unsubscribe surface the local provider talks to.
func NewServer(r *Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/feed/:feedId", func(c *gin.Context) {
		f := r.GetFeed(c.Param("feedId"))
		if f == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "feed not found"})
			return
		}

		c.Header("Content-Type", "application/rss+xml; charset=utf-8")
		c.String(http.StatusOK, writeRSS(f))
	})

	engine.POST("/subscribe", func(c *gin.Context) {
		var req struct {
			FeedURL     string `json:"feedUrl" binding:"required"`
			CallbackURL string `json:"callbackUrl" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "feedUrl and callbackUrl are required"})
			return
		}

		for _, raw := range []string{req.FeedURL, req.CallbackURL} {
			if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid URL"})
				return
			}
		}

		r.Subscribe(req.FeedURL, req.CallbackURL)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	engine.POST("/unsubscribe", func(c *gin.Context) {
		var req struct {
			FeedURL string `json:"feedUrl" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "feedUrl is required"})
			return
		}

		if u, err := url.Parse(req.FeedURL); err != nil || u.Scheme == "" || u.Host == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid URL"})
			return
		}

		r.Unsubscribe(req.FeedURL)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	return engine
}
