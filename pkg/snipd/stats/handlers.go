package stats

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snipd-io/snipd/pkg/snipd/models"
)

// Handler handles aggregate statistics requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new stats handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// OverviewResponse is the dashboard summary payload
type OverviewResponse struct {
	TotalLinks  int64         `json:"totalLinks"`
	TotalVisits int64         `json:"totalVisits"`
	TodayVisits int64         `json:"todayVisits"`
	RecentLinks []models.Link `json:"recentLinks"`
}

// DayCount is one calendar day's visit count
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// RefererCount is one referer's all-time visit count
type RefererCount struct {
	Referer string `json:"referer"`
	Count   int64  `json:"count"`
}

// CountryCount is one country's all-time visit count
type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// LinkSummary is the link header of a per-link stats payload
type LinkSummary struct {
	ID          uint   `json:"id"`
	Code        string `json:"code"`
	OriginalURL string `json:"original_url"`
	Title       string `json:"title"`
}

// LinkStatsResponse is the per-link stats payload
type LinkStatsResponse struct {
	Link         LinkSummary    `json:"link"`
	TotalVisits  int64          `json:"totalVisits"`
	VisitsByDay  []DayCount     `json:"visitsByDay"`
	TopReferers  []RefererCount `json:"topReferers"`
	TopCountries []CountryCount `json:"topCountries"`
}

// Overview returns service-wide aggregates
// @Summary Stats overview
// @Description Total links, total visits, today's visits and the five most recent links
// @Tags stats
// @Produce json
// @Success 200 {object} OverviewResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /stats/overview [get]
func (h *Handler) Overview(c *gin.Context) {
	var resp OverviewResponse

	// The four reads are independent; run them concurrently and join
	// before replying.
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		h.db.Model(&models.Link{}).Count(&resp.TotalLinks)
	}()
	go func() {
		defer wg.Done()
		h.db.Model(&models.Visit{}).Count(&resp.TotalVisits)
	}()
	go func() {
		defer wg.Done()
		h.db.Model(&models.Visit{}).Where("DATE(visited_at) = DATE('now')").Count(&resp.TodayVisits)
	}()
	go func() {
		defer wg.Done()
		h.db.Order("created_at DESC").Limit(5).Find(&resp.RecentLinks)
	}()
	wg.Wait()

	if resp.RecentLinks == nil {
		resp.RecentLinks = []models.Link{}
	}

	c.JSON(http.StatusOK, resp)
}

// ForLink returns aggregates for one link
// @Summary Per-link stats
// @Description Visit counts by day over the requested window plus all-time top referers and countries
// @Tags stats
// @Produce json
// @Param code path string true "Short code"
// @Param days query int false "Window in days for visitsByDay (default 7)"
// @Success 200 {object} LinkStatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Link not found"
// @Security BearerAuth
// @Router /stats/{code} [get]
func (h *Handler) ForLink(c *gin.Context) {
	code := c.Param("code")
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		days = 7
	}

	var link models.Link
	if err := h.db.Where("code = ?", code).First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}

	resp := LinkStatsResponse{
		Link: LinkSummary{
			ID:          link.ID,
			Code:        link.Code,
			OriginalURL: link.OriginalURL,
			Title:       link.Title,
		},
	}
	since := time.Now().AddDate(0, 0, -days)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		h.db.Model(&models.Visit{}).Where("link_id = ?", link.ID).Count(&resp.TotalVisits)
	}()
	go func() {
		defer wg.Done()
		h.db.Model(&models.Visit{}).
			Select("DATE(visited_at) AS date, COUNT(*) AS count").
			Where("link_id = ? AND visited_at >= ?", link.ID, since).
			Group("DATE(visited_at)").
			Order("date DESC").
			Scan(&resp.VisitsByDay)
	}()
	go func() {
		defer wg.Done()
		h.db.Model(&models.Visit{}).
			Select("referer, COUNT(*) AS count").
			Where("link_id = ? AND referer != ''", link.ID).
			Group("referer").
			Order("count DESC").
			Limit(10).
			Scan(&resp.TopReferers)
	}()
	go func() {
		defer wg.Done()
		h.db.Model(&models.Visit{}).
			Select("country, COUNT(*) AS count").
			Where("link_id = ? AND country != ''", link.ID).
			Group("country").
			Order("count DESC").
			Limit(10).
			Scan(&resp.TopCountries)
	}()
	wg.Wait()

	if resp.VisitsByDay == nil {
		resp.VisitsByDay = []DayCount{}
	}
	if resp.TopReferers == nil {
		resp.TopReferers = []RefererCount{}
	}
	if resp.TopCountries == nil {
		resp.TopCountries = []CountryCount{}
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers stats routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats/overview", h.Overview)
	rg.GET("/stats/:code", h.ForLink)
}
