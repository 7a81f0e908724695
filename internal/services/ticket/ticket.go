// Package ticket issues, reprices and redeems festival tickets.
//
// A ticket is Issued on insert and becomes Redeemed exactly once. Redemption
// is a conditional update on is_redeemed so concurrent attempts on one code
// cannot both succeed; an optional shared lock additionally serializes them
// across API replicas.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/metrics"
	"github.com/manifest-festivals/manifest/internal/models"
	"github.com/manifest-festivals/manifest/internal/redis"
	"github.com/manifest-festivals/manifest/internal/services/report"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const codeAttempts = 5

type CRUD = crud.Service[models.Ticket, models.TicketResponse, models.TicketSearch, models.TicketUpsertRequest, models.TicketUpsertRequest]

// Locker serializes redemption attempts per code.
type Locker interface {
	LockRedemption(ctx context.Context, code string, ttl time.Duration) error
	UnlockRedemption(ctx context.Context, code string) error
}

type Options struct {
	Locker  Locker
	LockTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Reports is invalidated on issue, update and delete. Redemption does not
	// change any report figure.
	Reports report.Invalidator
}

type Service struct {
	Tickets *CRUD

	db   *gorm.DB
	opts Options
}

func NewService(db *gorm.DB, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	return &Service{
		Tickets: crud.NewService(db, resource(opts.Reports)),
		db:      db,
		opts:    opts,
	}
}

func (s *Service) SetupRoutes(r gin.IRouter) {
	r.POST("/ticket/redeem/:code", s.RedeemHandler)
	crud.NewHandler(s.Tickets).SetupRoutes(r, "/ticket")
}

func (s *Service) RedeemHandler(c *gin.Context) {
	resp, err := s.Redeem(c.Request.Context(), c.Param("code"))
	if err != nil {
		crud.RespondError(c, "ticket", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Redeem marks the ticket with the given code as used. An unknown code is
// crud.ErrNotFound; a ticket that is already redeemed is a validation error
// and is left unchanged.
func (s *Service) Redeem(ctx context.Context, code string) (resp models.TicketResponse, err error) {
	defer func() {
		metrics.Redemptions.WithLabelValues(crud.Outcome(err)).Inc()
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return resp, crud.ErrNotFound
	}

	if s.opts.Locker != nil {
		switch err := s.opts.Locker.LockRedemption(ctx, code, s.opts.LockTTL); {
		case errors.Is(err, redis.ErrLocked):
			return resp, crud.Invalid("Ticket redemption is already in progress.")
		case err != nil:
			// The conditional update below is still authoritative.
			logging.Warn().Err(err).Msg("redemption lock unavailable")
		default:
			defer func() {
				if err := s.opts.Locker.UnlockRedemption(context.WithoutCancel(ctx), code); err != nil {
					logging.Warn().Err(err).Msg("failed to release redemption lock")
				}
			}()
		}
	}

	db := s.db.WithContext(ctx)
	now := s.opts.Now().UTC()
	result := redeem(db, code, now)
	if result.Error != nil {
		return resp, fmt.Errorf("failed to redeem ticket: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		found, err := crud.Exists(db, &models.Ticket{}, "generated_code = ?", code)
		if err != nil {
			return resp, fmt.Errorf("failed to look up ticket: %w", err)
		}
		if !found {
			return resp, crud.ErrNotFound
		}
		return resp, crud.Invalid("Ticket already redeemed.")
	}

	var t models.Ticket
	if err := preload(db).Where("generated_code = ?", code).First(&t).Error; err != nil {
		return resp, fmt.Errorf("failed to load redeemed ticket: %w", err)
	}
	logging.Info().Uint("ticket_id", t.ID).Uint("festival_id", t.FestivalID).Msg("ticket redeemed")
	return toResponse(&t), nil
}

// redeem flips an unredeemed ticket in a single statement. The is_redeemed
// predicate lets the store decide between concurrent attempts.
func redeem(db *gorm.DB, code string, now time.Time) *gorm.DB {
	return db.Model(&models.Ticket{}).
		Where("generated_code = ? AND is_redeemed = ?", code, false).
		Updates(map[string]any{"is_redeemed": true, "redeemed_at": now})
}

func preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Festival").Preload("User").Preload("TicketType")
}

func resource(reports report.Invalidator) crud.Resource[models.Ticket, models.TicketResponse, models.TicketSearch, models.TicketUpsertRequest, models.TicketUpsertRequest] {
	return crud.Resource[models.Ticket, models.TicketResponse, models.TicketSearch, models.TicketUpsertRequest, models.TicketUpsertRequest]{
		Name:   "ticket",
		Filter: filter,
		Preload: func(q *gorm.DB, _ *models.TicketSearch) *gorm.DB {
			return preload(q)
		},
		ToResponse: toResponse,
		MapInsert: func(req models.TicketUpsertRequest, e *models.Ticket) {
			e.FestivalID = req.FestivalID
			e.UserID = req.UserID
			e.TicketTypeID = req.TicketTypeID
		},
		// Only the ticket type may change after issuance.
		MapUpdate: func(req models.TicketUpsertRequest, e *models.Ticket) {
			e.TicketTypeID = req.TicketTypeID
		},
		BeforeInsert: beforeInsert,
		BeforeUpdate: beforeUpdate,
		AfterInsert:  func(ctx context.Context, _ *models.Ticket) { report.Invalidate(ctx, reports) },
		AfterUpdate:  func(ctx context.Context, _ *models.Ticket) { report.Invalidate(ctx, reports) },
		AfterDelete:  func(ctx context.Context, _ uint) { report.Invalidate(ctx, reports) },
	}
}

func filter(q *gorm.DB, search models.TicketSearch) *gorm.DB {
	if search.FestivalID != nil {
		q = q.Where("tickets.festival_id = ?", *search.FestivalID)
	}
	if search.UserID != nil {
		q = q.Where("tickets.user_id = ?", *search.UserID)
	}
	if strings.TrimSpace(search.UserFullName) != "" {
		q = q.Where("tickets.user_id IN (SELECT id FROM users WHERE LOWER("+models.UserFullNameSQL+") LIKE ?"+crud.LikeEscape+")", crud.Like(search.UserFullName))
	}
	if strings.TrimSpace(search.FestivalTitle) != "" {
		q = q.Where("tickets.festival_id IN (SELECT id FROM festivals WHERE LOWER(festivals.title) LIKE ?"+crud.LikeEscape+")", crud.Like(search.FestivalTitle))
	}
	if search.TicketTypeID != nil {
		q = q.Where("tickets.ticket_type_id = ?", *search.TicketTypeID)
	}
	if search.IsRedeemed != nil {
		q = q.Where("tickets.is_redeemed = ?", *search.IsRedeemed)
	}
	return crud.Contains(q, "tickets.generated_code", search.Code)
}

func beforeInsert(ctx context.Context, tx *gorm.DB, e *models.Ticket, req models.TicketUpsertRequest) error {
	var festival models.Festival
	if err := find(tx, &festival, req.FestivalID, "Festival does not exist."); err != nil {
		return err
	}
	if err := crud.MustExist(tx, &models.User{}, req.UserID, "User does not exist."); err != nil {
		return err
	}
	var ticketType models.TicketType
	if err := find(tx, &ticketType, req.TicketTypeID, "Ticket type does not exist."); err != nil {
		return err
	}

	e.FinalPrice = Price(festival.BasePrice, ticketType.PriceMultiplier)
	e.IsRedeemed = false
	e.RedeemedAt = nil

	if code := strings.TrimSpace(req.GeneratedCode); code != "" {
		taken, err := crud.Exists(tx, &models.Ticket{}, "generated_code = ?", code)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("A ticket with this code already exists.")
		}
		e.GeneratedCode = code
		return nil
	}

	for i := 0; i < codeAttempts; i++ {
		code := GenerateCode(req.FestivalID, req.UserID, ticketType.Name)
		taken, err := crud.Exists(tx, &models.Ticket{}, "generated_code = ?", code)
		if err != nil {
			return err
		}
		if !taken {
			e.GeneratedCode = code
			return nil
		}
	}
	return fmt.Errorf("failed to generate a unique ticket code after %d attempts", codeAttempts)
}

// beforeUpdate sees the stored ticket; the price follows the ticket type only
// when the type changes.
func beforeUpdate(ctx context.Context, tx *gorm.DB, e *models.Ticket, req models.TicketUpsertRequest) error {
	if e.TicketTypeID == req.TicketTypeID {
		return nil
	}
	var ticketType models.TicketType
	if err := find(tx, &ticketType, req.TicketTypeID, "Ticket type does not exist."); err != nil {
		return err
	}
	var festival models.Festival
	if err := find(tx, &festival, e.FestivalID, "Festival does not exist."); err != nil {
		return err
	}
	e.FinalPrice = Price(festival.BasePrice, ticketType.PriceMultiplier)
	return nil
}

func find(tx *gorm.DB, dest any, id uint, missing string) error {
	err := tx.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return crud.Invalid("%s", missing)
	}
	return err
}

func toResponse(e *models.Ticket) models.TicketResponse {
	resp := models.TicketResponse{
		ID:            e.ID,
		FestivalID:    e.FestivalID,
		UserID:        e.UserID,
		TicketTypeID:  e.TicketTypeID,
		FinalPrice:    e.FinalPrice,
		GeneratedCode: e.GeneratedCode,
		IsRedeemed:    e.IsRedeemed,
		CreatedAt:     e.CreatedAt,
		RedeemedAt:    e.RedeemedAt,
	}
	if e.Festival != nil {
		resp.FestivalTitle = e.Festival.Title
	}
	if e.User != nil {
		resp.Username = e.User.Username
		resp.UserFullName = e.User.FullName()
	}
	if e.TicketType != nil {
		resp.TicketTypeName = e.TicketType.Name
	}
	return resp
}
