// Package review serves festival reviews.
package review

import (
	"context"
	"strings"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/models"
	"github.com/manifest-festivals/manifest/internal/services/festival"
	"github.com/manifest-festivals/manifest/internal/services/report"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Service = crud.Service[models.Review, models.ReviewResponse, models.ReviewSearch, models.ReviewUpsertRequest, models.ReviewUpsertRequest]

// NewService builds the review resource. reports may be nil; otherwise every
// write drops the cached business report.
func NewService(db *gorm.DB, reports report.Invalidator) *Service {
	return crud.NewService(db, resource(reports))
}

func SetupRoutes(r gin.IRouter, svc *Service) {
	crud.NewHandler(svc).SetupRoutes(r, "/review")
}

func resource(reports report.Invalidator) crud.Resource[models.Review, models.ReviewResponse, models.ReviewSearch, models.ReviewUpsertRequest, models.ReviewUpsertRequest] {
	return crud.Resource[models.Review, models.ReviewResponse, models.ReviewSearch, models.ReviewUpsertRequest, models.ReviewUpsertRequest]{
		Name:   "review",
		Filter: filter,
		Preload: func(q *gorm.DB, _ *models.ReviewSearch) *gorm.DB {
			return q.Preload("Festival.Assets", func(db *gorm.DB) *gorm.DB {
				return db.Order("assets.id")
			}).Preload("User")
		},
		ToResponse: toResponse,
		MapInsert:  mapReview,
		MapUpdate:  mapReview,
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Review, req models.ReviewUpsertRequest) error {
			return validate(tx, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Review, req models.ReviewUpsertRequest) error {
			return validate(tx, req)
		},
		AfterInsert: func(ctx context.Context, _ *models.Review) { report.Invalidate(ctx, reports) },
		AfterUpdate: func(ctx context.Context, _ *models.Review) { report.Invalidate(ctx, reports) },
		AfterDelete: func(ctx context.Context, _ uint) { report.Invalidate(ctx, reports) },
	}
}

func filter(q *gorm.DB, search models.ReviewSearch) *gorm.DB {
	if search.FestivalID != nil {
		q = q.Where("reviews.festival_id = ?", *search.FestivalID)
	}
	if strings.TrimSpace(search.FestivalTitle) != "" {
		q = q.Where("reviews.festival_id IN (SELECT id FROM festivals WHERE LOWER(festivals.title) LIKE ?"+crud.LikeEscape+")", crud.Like(search.FestivalTitle))
	}
	if search.UserID != nil {
		q = q.Where("reviews.user_id = ?", *search.UserID)
	}
	if strings.TrimSpace(search.UserFullName) != "" {
		q = q.Where("reviews.user_id IN (SELECT id FROM users WHERE LOWER("+models.UserFullNameSQL+") LIKE ?"+crud.LikeEscape+")", crud.Like(search.UserFullName))
	}
	if search.MinRating != nil {
		q = q.Where("reviews.rating >= ?", *search.MinRating)
	}
	if search.MaxRating != nil {
		q = q.Where("reviews.rating <= ?", *search.MaxRating)
	}
	return q
}

func validate(tx *gorm.DB, req models.ReviewUpsertRequest) error {
	if err := crud.MustExist(tx, &models.Festival{}, req.FestivalID, "The specified festival does not exist."); err != nil {
		return err
	}
	if err := crud.MustExist(tx, &models.User{}, req.UserID, "The specified user does not exist."); err != nil {
		return err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return crud.Invalid("Rating must be between 1 and 5.")
	}
	return nil
}

func mapReview(req models.ReviewUpsertRequest, e *models.Review) {
	e.Rating = req.Rating
	e.Comment = req.Comment
	e.FestivalID = req.FestivalID
	e.UserID = req.UserID
}

func toResponse(e *models.Review) models.ReviewResponse {
	resp := models.ReviewResponse{
		ID:         e.ID,
		Rating:     e.Rating,
		Comment:    e.Comment,
		CreatedAt:  e.CreatedAt,
		FestivalID: e.FestivalID,
		UserID:     e.UserID,
	}
	if e.Festival != nil {
		resp.FestivalTitle = e.Festival.Title
		resp.FestivalLogo = festival.Logo(e.Festival.Assets)
	}
	if e.User != nil {
		resp.UserFullName = e.User.FullName()
		resp.Username = e.User.Username
	}
	return resp
}
