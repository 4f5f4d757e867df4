package visits

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipd-io/snipd/pkg/snipd/models"
)

// Recorder appends visit rows for redirects. It is always invoked on
// a detached goroutine; analytics durability is best-effort and must
// never touch the redirect response.
type Recorder struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewRecorder creates a new visit recorder
func NewRecorder(db *gorm.DB, logger *zap.SugaredLogger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record appends one visit attributed to a link. Failures are logged
// and swallowed.
func (r *Recorder) Record(linkID uint, ip, userAgent, referer, country string) {
	visit := models.Visit{
		LinkID:    linkID,
		IP:        ip,
		UserAgent: userAgent,
		Referer:   referer,
		Country:   country,
	}
	if err := r.db.Create(&visit).Error; err != nil {
		r.logger.Errorf("Failed to record visit for link %d: %v", linkID, err)
	}
}
