package redirect

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/snipd-io/snipd/pkg/snipd/cache"
	"github.com/snipd-io/snipd/pkg/snipd/models"
	"github.com/snipd-io/snipd/pkg/snipd/visits"
)

// Handler handles short code redirects
type Handler struct {
	db       *gorm.DB
	cache    *redis.Client
	recorder *visits.Recorder
}

// NewHandler creates a new redirect handler. The cache client may be nil.
func NewHandler(db *gorm.DB, cacheClient *redis.Client, recorder *visits.Recorder) *Handler {
	return &Handler{db: db, cache: cacheClient, recorder: recorder}
}

// Redirect resolves a short code and sends the visitor on.
// Disabled and expired links answer 410; unknown codes 404. The visit
// is recorded on a detached goroutine so the redirect never waits on
// analytics.
func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("code")

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if val, err := h.cache.Get(ctx, cache.Key(code)).Result(); err == nil {
			var entry cache.Entry
			if json.Unmarshal([]byte(val), &entry) == nil {
				go h.recorder.Record(entry.LinkID, c.ClientIP(), c.Request.UserAgent(), c.Request.Referer(), c.GetHeader("CF-IPCountry"))
				c.Redirect(http.StatusMovedPermanently, entry.URL)
				return
			}
		}
	}

	var link models.Link
	if err := h.db.Where("code = ?", code).First(&link).Error; err != nil {
		c.String(http.StatusNotFound, "Short link not found")
		return
	}

	if !link.IsActive {
		c.String(http.StatusGone, "This link has been disabled")
		return
	}
	if link.Expired(time.Now()) {
		c.String(http.StatusGone, "This link has expired")
		return
	}

	go h.recorder.Record(link.ID, c.ClientIP(), c.Request.UserAgent(), c.Request.Referer(), c.GetHeader("CF-IPCountry"))

	// Only active, never-expiring links are cached; mutations through
	// the API invalidate the key, so a hit can never mask a 410.
	if h.cache != nil && link.ExpiresAt == nil {
		h.cacheResolution(&link)
	}

	c.Redirect(http.StatusMovedPermanently, link.OriginalURL)
}

func (h *Handler) cacheResolution(link *models.Link) {
	entry, err := json.Marshal(cache.Entry{LinkID: link.ID, URL: link.OriginalURL})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.cache.Set(ctx, cache.Key(link.Code), entry, cache.TTL)
}

// RegisterRoutes registers the redirect route on the root router.
// This should be called AFTER all other routes to avoid conflicts.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/:code", h.Redirect)
}
