package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/cache"
	"github.com/elod87/service-book-2/internal/models"
)

const earningsCacheKey = "reports:earnings-per-month"
const earningsCacheTTL = 5 * time.Minute

// ReportHandler serves reporting aggregations over services.
type ReportHandler struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(db *gorm.DB, c *cache.Cache) *ReportHandler {
	return &ReportHandler{db: db, cache: c}
}

type earningsReport struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// EarningsPerMonth returns total income (action prices plus sold
// parts, each times quantity) for the last six months.
func (h *ReportHandler) EarningsPerMonth(c *fiber.Ctx) error {
	var report earningsReport
	if h.cache.Get(c.Context(), earningsCacheKey, &report) {
		return c.JSON(report)
	}

	now := time.Now()
	for i := 5; i >= 0; i-- {
		firstDay := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		nextMonth := firstDay.AddDate(0, 1, 0)

		var actionTotal, partsTotal float64
		if err := h.db.Raw(`SELECT COALESCE(SUM(sa.price * sa.quantity), 0)
			FROM service_actions sa
			JOIN services s ON s.id = sa.service_id
			WHERE s.date >= ? AND s.date < ?`, firstDay, nextMonth).
			Scan(&actionTotal).Error; err != nil {
			return err
		}
		if err := h.db.Raw(`SELECT COALESCE(SUM(sn.price * sn.quantity), 0)
			FROM service_new_devices sn
			JOIN services s ON s.id = sn.service_id
			WHERE s.date >= ? AND s.date < ?`, firstDay, nextMonth).
			Scan(&partsTotal).Error; err != nil {
			return err
		}

		report.Labels = append(report.Labels, firstDay.Month().String())
		report.Data = append(report.Data, actionTotal+partsTotal)
	}

	h.cache.Set(c.Context(), earningsCacheKey, report, earningsCacheTTL)

	return c.JSON(report)
}

type serviceCountRequest struct {
	Status string `json:"status"`
}

// ServiceCount returns the number of services currently in the given
// status.
func (h *ReportHandler) ServiceCount(c *fiber.Ctx) error {
	var req serviceCountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var count int64
	if err := h.db.Model(&models.Service{}).
		Where("status = ?", req.Status).
		Count(&count).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"count": count})
}
