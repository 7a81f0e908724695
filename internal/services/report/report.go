// Package report builds the business report: revenue leaders, this year's
// sales, the most active buyer and the best rated festivals.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/metrics"
	"github.com/manifest-festivals/manifest/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const topN = 3

// Cache stores the serialized report between requests.
type Cache interface {
	CachedReport(ctx context.Context) ([]byte, bool, error)
	CacheReport(ctx context.Context, payload []byte, ttl time.Duration) error
}

// Invalidator drops the cached report. Ticket, review and festival writes
// call it through Invalidate.
type Invalidator interface {
	InvalidateReport(ctx context.Context) error
}

// Invalidate drops the cached report. A failure leaves the entry to expire
// on its TTL.
func Invalidate(ctx context.Context, inv Invalidator) {
	if inv == nil {
		return
	}
	if err := inv.InvalidateReport(context.WithoutCancel(ctx)); err != nil {
		logging.Warn().Err(err).Msg("failed to invalidate cached report")
	}
}

type Options struct {
	Cache    Cache
	CacheTTL time.Duration
	// Now defaults to time.Now; it picks the reporting year.
	Now func() time.Time
}

type Service struct {
	db   *gorm.DB
	opts Options
}

func NewService(db *gorm.DB, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{db: db, opts: opts}
}

func (s *Service) SetupRoutes(r gin.IRouter) {
	r.GET("/businessreport", s.GetReportHandler)
}

func (s *Service) GetReportHandler(c *gin.Context) {
	report, err := s.GetReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to build business report",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReport serves the cached report when one is available and otherwise
// computes it. Cache failures only cost a recomputation.
func (s *Service) GetReport(ctx context.Context) (*models.BusinessReportResponse, error) {
	log := logging.With("report")

	if s.opts.Cache != nil && s.opts.CacheTTL > 0 {
		payload, found, err := s.opts.Cache.CachedReport(ctx)
		switch {
		case err != nil:
			metrics.ReportCache.WithLabelValues(metrics.OutcomeCacheError).Inc()
			log.Warn().Err(err).Msg("report cache read failed")
		case found:
			var report models.BusinessReportResponse
			if err := json.Unmarshal(payload, &report); err == nil {
				metrics.ReportCache.WithLabelValues(metrics.OutcomeCacheHit).Inc()
				return &report, nil
			}
			log.Warn().Msg("discarding undecodable cached report")
		default:
			metrics.ReportCache.WithLabelValues(metrics.OutcomeCacheMiss).Inc()
		}
	}

	report, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.opts.Cache != nil && s.opts.CacheTTL > 0 {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.opts.Cache.CacheReport(ctx, payload, s.opts.CacheTTL); err != nil {
				log.Warn().Err(err).Msg("report cache write failed")
			}
		}
	}
	return report, nil
}

// Compute runs the independent sub-reports concurrently against the store.
func (s *Service) Compute(ctx context.Context) (*models.BusinessReportResponse, error) {
	report := &models.BusinessReportResponse{
		TopGrossingFestivals:        []models.FestivalRevenueResponse{},
		TotalRevenueThisYear:        decimal.Zero,
		TopFestivalsByAverageRating: []models.FestivalRatingResponse{},
	}
	db := s.db

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := topGrossing(db.WithContext(gctx))
		report.TopGrossingFestivals = rows
		return err
	})
	g.Go(func() error {
		revenue, count, err := yearTotals(db.WithContext(gctx), s.opts.Now())
		report.TotalRevenueThisYear = revenue
		report.TotalTicketsSoldThisYear = count
		return err
	})
	g.Go(func() error {
		user, count, err := topBuyer(db.WithContext(gctx))
		report.UserWithMostTickets = user
		report.UserWithMostTicketsCount = count
		return err
	})
	g.Go(func() error {
		rows, err := topRated(db.WithContext(gctx))
		report.TopFestivalsByAverageRating = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build business report: %w", err)
	}
	return report, nil
}

func topGrossing(db *gorm.DB) ([]models.FestivalRevenueResponse, error) {
	var rows []models.FestivalRevenueResponse
	err := db.Table("tickets").
		Select("tickets.festival_id AS festival_id, festivals.title AS title, SUM(tickets.final_price) AS total_revenue").
		Joins("JOIN festivals ON festivals.id = tickets.festival_id").
		Group("tickets.festival_id, festivals.title").
		Order("total_revenue DESC, tickets.festival_id").
		Limit(topN).
		Scan(&rows).Error
	if err != nil {
		return []models.FestivalRevenueResponse{}, fmt.Errorf("top grossing festivals: %w", err)
	}
	for i := range rows {
		rows[i].TotalRevenue = rows[i].TotalRevenue.RoundBank(2)
	}
	if rows == nil {
		rows = []models.FestivalRevenueResponse{}
	}
	return rows, nil
}

// yearTotals sums tickets created in now's calendar year (UTC).
func yearTotals(db *gorm.DB, now time.Time) (decimal.Decimal, int, error) {
	start := time.Date(now.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var totals struct {
		Revenue decimal.Decimal
		Tickets int64
	}
	err := db.Model(&models.Ticket{}).
		Select("COALESCE(SUM(final_price), 0) AS revenue, COUNT(*) AS tickets").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&totals).Error
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("yearly totals: %w", err)
	}
	return totals.Revenue.RoundBank(2), int(totals.Tickets), nil
}

// topBuyer ranks users by ticket count; equal counts go to the lowest user id.
func topBuyer(db *gorm.DB) (*models.UserResponse, *int, error) {
	var top struct {
		UserID      uint
		TicketCount int64
	}
	err := db.Model(&models.Ticket{}).
		Select("user_id, COUNT(*) AS ticket_count").
		Group("user_id").
		Order("ticket_count DESC, user_id").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		return nil, nil, fmt.Errorf("top buyer: %w", err)
	}
	if top.UserID == 0 {
		return nil, nil, nil
	}

	var user models.User
	if err := db.First(&user, top.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("top buyer: %w", err)
	}
	count := int(top.TicketCount)
	return &models.UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Username:  user.Username,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}, &count, nil
}

func topRated(db *gorm.DB) ([]models.FestivalRatingResponse, error) {
	var rows []models.FestivalRatingResponse
	err := db.Table("reviews").
		Select("reviews.festival_id AS festival_id, festivals.title AS title, AVG(CAST(reviews.rating AS FLOAT)) AS average_rating, COUNT(*) AS review_count").
		Joins("JOIN festivals ON festivals.id = reviews.festival_id").
		Group("reviews.festival_id, festivals.title").
		Order("average_rating DESC, review_count DESC, reviews.festival_id").
		Limit(topN).
		Scan(&rows).Error
	if err != nil {
		return []models.FestivalRatingResponse{}, fmt.Errorf("top rated festivals: %w", err)
	}
	for i := range rows {
		rows[i].AverageRating = math.Round(rows[i].AverageRating*100) / 100
	}
	if rows == nil {
		rows = []models.FestivalRatingResponse{}
	}
	return rows, nil
}
