package links

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipd-io/snipd/pkg/snipd/cache"
	"github.com/snipd-io/snipd/pkg/snipd/models"
	"github.com/snipd-io/snipd/pkg/snipd/shortcode"
)

// Handler handles link management requests
type Handler struct {
	db    *gorm.DB
	cache *redis.Client
}

// NewHandler creates a new links handler. The cache client may be nil.
func NewHandler(db *gorm.DB, cacheClient *redis.Client) *Handler {
	return &Handler{db: db, cache: cacheClient}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	URL       string `json:"url"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	ExpiresAt string `json:"expires_at"`
}

// Pagination describes the paging block of the list envelope
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ListResponse is the paginated link list envelope
type ListResponse struct {
	Data       []models.Link `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// isValidURL reports whether raw is a well-formed absolute URL.
func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// codeExists checks whether a short code is already taken.
func (h *Handler) codeExists(code string) bool {
	var count int64
	h.db.Model(&models.Link{}).Where("code = ?", code).Count(&count)
	return count > 0
}

// generateCode draws random codes, retrying on collision up to 5
// times. If every attempt collides the last candidate is used anyway
// and the unique index decides at insert.
func (h *Handler) generateCode() (string, error) {
	code, err := shortcode.Generate(shortcode.DefaultLength)
	if err != nil {
		return "", err
	}
	for attempts := 0; attempts < 5 && h.codeExists(code); attempts++ {
		code, err = shortcode.Generate(shortcode.DefaultLength)
		if err != nil {
			return "", err
		}
	}
	return code, nil
}

// invalidate drops any cached resolution for a code after a mutation.
func (h *Handler) invalidate(code string) {
	if h.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.cache.Del(ctx, cache.Key(code)).Err(); err != nil {
		zap.S().Warnf("Cache invalidation for %s failed: %v", code, err)
	}
}

// List returns a paginated page of links
// @Summary List links
// @Description List links with optional substring search over code, URL and title
// @Tags links
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20)"
// @Param search query string false "Substring to match against code, original_url or title"
// @Success 200 {object} ListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /links [get]
func (h *Handler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	search := c.Query("search")

	query := h.db.Model(&models.Link{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("code LIKE ? OR original_url LIKE ? OR title LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}

	var items []models.Link
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}
	if items == nil {
		items = []models.Link{}
	}

	c.JSON(http.StatusOK, ListResponse{
		Data: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int64(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// Get returns a link by its code
// @Summary Get a link
// @Description Get link details by short code
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} models.Link
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{code} [get]
func (h *Handler) Get(c *gin.Context) {
	code := c.Param("code")

	var link models.Link
	if err := h.db.Where("code = ?", code).First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	c.JSON(http.StatusOK, link)
}

// Create creates a new link
// @Summary Create a link
// @Description Create a shortened link with an optional custom code, title and expiry
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} models.Link
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Code already exists"
// @Security BearerAuth
// @Router /links [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}
	if !isValidURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expires_at format"})
			return
		}
		expiresAt = &parsed
	}

	code := req.Code
	if code != "" {
		if h.codeExists(code) {
			c.JSON(http.StatusConflict, gin.H{"error": "Code already exists"})
			return
		}
	} else {
		generated, err := h.generateCode()
		if err != nil {
			zap.S().Errorf("Short code generation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create link"})
			return
		}
		code = generated
	}

	link := models.Link{
		Code:        code,
		OriginalURL: req.URL,
		Title:       req.Title,
		ExpiresAt:   expiresAt,
		IsActive:    true,
	}

	if err := h.db.Create(&link).Error; err != nil {
		// The check above is advisory; the unique index is the arbiter
		// when a concurrent writer or an exhausted generator slips
		// through.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Code already exists"})
			return
		}
		zap.S().Errorf("Failed to create link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create link"})
		return
	}

	// Re-read so the response carries the server-assigned id and
	// timestamp rather than the echoed input.
	var created models.Link
	if err := h.db.Where("code = ?", code).First(&created).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create link"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Update partially updates a link
// @Summary Update a link
// @Description Update any of url, title, expires_at and is_active; only fields present in the body are touched
// @Tags links
// @Accept json
// @Produce json
// @Param code path string true "Short code"
// @Param request body object true "Partial link fields"
// @Success 200 {object} models.Link
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{code} [put]
func (h *Handler) Update(c *gin.Context) {
	code := c.Param("code")

	var link models.Link
	if err := h.db.Where("code = ?", code).First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	// Decode into raw JSON so "expires_at": null (present, clears the
	// expiry) can be told apart from the key being absent.
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}

	if raw, ok := body["url"]; ok {
		var u string
		if err := json.Unmarshal(raw, &u); err != nil || !isValidURL(u) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format"})
			return
		}
		updates["original_url"] = u
	}

	if raw, ok := body["title"]; ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		updates["title"] = title
	}

	if raw, ok := body["expires_at"]; ok {
		var expires *string
		if err := json.Unmarshal(raw, &expires); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if expires == nil || *expires == "" {
			updates["expires_at"] = nil
		} else {
			parsed, err := time.Parse(time.RFC3339, *expires)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expires_at format"})
				return
			}
			updates["expires_at"] = parsed
		}
	}

	if raw, ok := body["is_active"]; ok {
		var active bool
		if err := json.Unmarshal(raw, &active); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		updates["is_active"] = active
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := h.db.Model(&link).Updates(updates).Error; err != nil {
		zap.S().Errorf("Failed to update link %s: %v", code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update link"})
		return
	}

	h.invalidate(code)

	var updated models.Link
	if err := h.db.Where("code = ?", code).First(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update link"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete hard-deletes a link. Recorded visits are kept.
// @Summary Delete a link
// @Description Delete a link by short code
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]string "Link deleted"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /links/{code} [delete]
func (h *Handler) Delete(c *gin.Context) {
	code := c.Param("code")

	var link models.Link
	if err := h.db.Where("code = ?", code).First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	if err := h.db.Delete(&link).Error; err != nil {
		zap.S().Errorf("Failed to delete link %s: %v", code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete link"})
		return
	}

	h.invalidate(code)

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// RegisterRoutes registers link routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/links", h.List)
	rg.POST("/links", h.Create)
	rg.GET("/links/:code", h.Get)
	rg.PUT("/links/:code", h.Update)
	rg.DELETE("/links/:code", h.Delete)
}
