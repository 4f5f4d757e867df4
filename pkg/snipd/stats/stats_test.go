package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/snipd-io/snipd/pkg/snipd/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// The aggregate queries run on concurrent goroutines; every pool
	// connection to :memory: is a separate database, so keep one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	NewHandler(db).RegisterRoutes(api)
	return r
}

func seedLink(t *testing.T, db *gorm.DB, code string) models.Link {
	link := models.Link{Code: code, OriginalURL: "https://example.com/" + code, Title: "Link " + code, IsActive: true}
	require.NoError(t, db.Create(&link).Error)
	return link
}

func seedVisit(t *testing.T, db *gorm.DB, linkID uint, at time.Time, referer, country string) {
	visit := models.Visit{
		LinkID:    linkID,
		IP:        "198.51.100.7",
		UserAgent: "test-agent/1.0",
		Referer:   referer,
		Country:   country,
		VisitedAt: at,
	}
	require.NoError(t, db.Create(&visit).Error)
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestOverview(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	a := seedLink(t, db, "aaa")
	b := seedLink(t, db, "bbb")

	now := time.Now()
	seedVisit(t, db, a.ID, now, "", "")
	seedVisit(t, db, a.ID, now.AddDate(0, 0, -3), "", "")
	seedVisit(t, db, b.ID, now.AddDate(0, 0, -10), "", "")

	resp := get(router, "/api/stats/overview")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out OverviewResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))

	assert.Equal(t, int64(2), out.TotalLinks)
	assert.Equal(t, int64(3), out.TotalVisits)
	assert.Equal(t, int64(1), out.TodayVisits)
	assert.Len(t, out.RecentLinks, 2)
}

func TestOverviewRecentLinksCapped(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	for i := 0; i < 8; i++ {
		seedLink(t, db, fmt.Sprintf("code%d", i))
	}

	resp := get(router, "/api/stats/overview")
	require.Equal(t, http.StatusOK, resp.Code)

	var out OverviewResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))

	assert.Equal(t, int64(8), out.TotalLinks)
	assert.Len(t, out.RecentLinks, 5)
}

func TestOverviewEmpty(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := get(router, "/api/stats/overview")
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Contains(t, resp.Body.String(), `"recentLinks":[]`)
}

func TestForLink(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	link := seedLink(t, db, "abc123")
	other := seedLink(t, db, "other")

	now := time.Now()
	seedVisit(t, db, link.ID, now, "https://news.example.com", "DE")
	seedVisit(t, db, link.ID, now, "https://news.example.com", "DE")
	seedVisit(t, db, link.ID, now.AddDate(0, 0, -2), "https://blog.example.com", "US")
	seedVisit(t, db, other.ID, now, "https://elsewhere.example.com", "FR")

	resp := get(router, "/api/stats/abc123")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out LinkStatsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))

	assert.Equal(t, link.ID, out.Link.ID)
	assert.Equal(t, "abc123", out.Link.Code)
	assert.Equal(t, int64(3), out.TotalVisits)
	assert.Len(t, out.VisitsByDay, 2)

	require.NotEmpty(t, out.TopReferers)
	assert.Equal(t, "https://news.example.com", out.TopReferers[0].Referer)
	assert.Equal(t, int64(2), out.TopReferers[0].Count)

	require.NotEmpty(t, out.TopCountries)
	assert.Equal(t, "DE", out.TopCountries[0].Country)
	assert.Equal(t, int64(2), out.TopCountries[0].Count)
}

func TestForLinkWindow(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	link := seedLink(t, db, "abc123")
	now := time.Now()
	seedVisit(t, db, link.ID, now, "", "")
	seedVisit(t, db, link.ID, now.AddDate(0, 0, -30), "", "")

	resp := get(router, "/api/stats/abc123?days=7")
	require.Equal(t, http.StatusOK, resp.Code)

	var out LinkStatsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))

	// The day histogram honors the window; the total does not.
	assert.Equal(t, int64(2), out.TotalVisits)
	assert.Len(t, out.VisitsByDay, 1)
}

func TestForLinkIgnoresBlankSources(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	link := seedLink(t, db, "abc123")
	seedVisit(t, db, link.ID, time.Now(), "", "")

	resp := get(router, "/api/stats/abc123")
	require.Equal(t, http.StatusOK, resp.Code)

	var out LinkStatsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))

	assert.Equal(t, int64(1), out.TotalVisits)
	assert.Empty(t, out.TopReferers)
	assert.Empty(t, out.TopCountries)
	assert.Contains(t, resp.Body.String(), `"topReferers":[]`)
	assert.Contains(t, resp.Body.String(), `"topCountries":[]`)
}

func TestForLinkNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := get(router, "/api/stats/missing")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.Equal(t, "Link not found", body["error"])
}
