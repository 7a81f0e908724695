// Package festival serves festivals and their assets, the asset-free
// listing and per-user recommendations. Every festival write is announced
// to subscribers through the notification dispatcher.
package festival

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/models"
	"github.com/manifest-festivals/manifest/internal/notification"
	"github.com/manifest-festivals/manifest/internal/recommend"
	"github.com/manifest-festivals/manifest/internal/services/report"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type (
	FestivalService = crud.Service[models.Festival, models.FestivalResponse, models.FestivalSearch, models.FestivalUpsertRequest, models.FestivalUpsertRequest]
	AssetService    = crud.Service[models.Asset, models.AssetResponse, models.AssetSearch, models.AssetUpsertRequest, models.AssetUpsertRequest]
)

// Notifier accepts notifications without blocking the caller.
type Notifier interface {
	Enqueue(n notification.FestivalNotification) bool
}

type Recommender interface {
	Recommend(ctx context.Context, userID uint, limit int) ([]uint, error)
}

type Options struct {
	Notifier       Notifier
	Recommender    Recommender
	RecipientRole  string
	RecommendLimit int
	// Reports is invalidated when a title changes or a festival and its
	// tickets go away.
	Reports report.Invalidator
}

type Service struct {
	Festivals *FestivalService
	Assets    *AssetService

	db   *gorm.DB
	opts Options
}

func NewService(db *gorm.DB, opts Options) *Service {
	if opts.RecommendLimit <= 0 {
		opts.RecommendLimit = 5
	}
	s := &Service{db: db, opts: opts}
	s.Festivals = crud.NewService(db, s.festivalResource())
	s.Assets = crud.NewService(db, assetResource())
	return s
}

func (s *Service) SetupRoutes(r gin.IRouter) {
	festivals := crud.NewHandler(s.Festivals)
	r.GET("/festival/without-assets", s.ListWithoutAssets(festivals))
	r.GET("/festival/recommend/:userId", s.Recommend)
	festivals.SetupRoutes(r, "/festival")

	crud.NewHandler(s.Assets).SetupRoutes(r, "/asset")
}

func (s *Service) ListWithoutAssets(h *crud.Handler[models.Festival, models.FestivalResponse, models.FestivalSearch, models.FestivalUpsertRequest, models.FestivalUpsertRequest]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var search models.FestivalSearch
		if err := c.ShouldBindQuery(&search); err != nil {
			c.JSON(http.StatusBadRequest, crud.BindingError("Invalid search parameters", err))
			return
		}
		search.WithoutAssets = true
		h.ListWith(c, search)
	}
}

func (s *Service) Recommend(c *gin.Context) {
	userID, ok := crud.ParseID(c, "userId")
	if !ok {
		return
	}
	items, err := s.RecommendFor(c.Request.Context(), userID)
	if err != nil {
		crud.RespondError(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// RecommendFor resolves the recommended ids into festival responses,
// keeping the recommender's order.
func (s *Service) RecommendFor(ctx context.Context, userID uint) ([]models.FestivalResponse, error) {
	if s.opts.Recommender == nil {
		return []models.FestivalResponse{}, nil
	}
	ids, err := s.opts.Recommender.Recommend(ctx, userID, s.opts.RecommendLimit)
	if errors.Is(err, recommend.ErrNotReady) {
		logging.Warn().Uint("user_id", userID).Msg("recommendations requested before the engine is ready")
		return []models.FestivalResponse{}, nil
	}
	if err != nil {
		return nil, err
	}

	var festivals []models.Festival
	if len(ids) > 0 {
		err = preloadFestival(s.db.WithContext(ctx), false).
			Where("festivals.id IN ?", ids).
			Where("festivals.is_active = ?", true).
			Find(&festivals).Error
		if err != nil {
			return nil, err
		}
	}
	byID := make(map[uint]*models.Festival, len(festivals))
	for i := range festivals {
		byID[festivals[i].ID] = &festivals[i]
	}

	items := make([]models.FestivalResponse, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			items = append(items, toFestivalResponse(f))
		}
	}
	return items, nil
}

func preloadFestival(q *gorm.DB, withoutAssets bool) *gorm.DB {
	q = q.Preload("City.Country").Preload("Subcategory.Category").Preload("Organizer")
	if withoutAssets {
		return q
	}
	return q.Preload("Assets", func(db *gorm.DB) *gorm.DB {
		return db.Order("assets.id")
	})
}

func (s *Service) festivalResource() crud.Resource[models.Festival, models.FestivalResponse, models.FestivalSearch, models.FestivalUpsertRequest, models.FestivalUpsertRequest] {
	return crud.Resource[models.Festival, models.FestivalResponse, models.FestivalSearch, models.FestivalUpsertRequest, models.FestivalUpsertRequest]{
		Name:   "festival",
		Filter: filterFestivals,
		Preload: func(q *gorm.DB, search *models.FestivalSearch) *gorm.DB {
			return preloadFestival(q, search != nil && search.WithoutAssets)
		},
		ToResponse: toFestivalResponse,
		MapInsert:  mapFestival,
		MapUpdate:  mapFestival,
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Festival, req models.FestivalUpsertRequest) error {
			return validateFestival(tx, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Festival, req models.FestivalUpsertRequest) error {
			return validateFestival(tx, req)
		},
		AfterInsert: func(ctx context.Context, e *models.Festival) {
			s.notify(ctx, e, notification.Created)
		},
		AfterUpdate: func(ctx context.Context, e *models.Festival) {
			report.Invalidate(ctx, s.opts.Reports)
			s.notify(ctx, e, notification.Updated)
		},
		AfterDelete: func(ctx context.Context, _ uint) {
			report.Invalidate(ctx, s.opts.Reports)
		},
	}
}

func filterFestivals(q *gorm.DB, search models.FestivalSearch) *gorm.DB {
	q = crud.Contains(q, "festivals.title", search.Title)
	if search.CityID != nil {
		q = q.Where("festivals.city_id = ?", *search.CityID)
	}
	if strings.TrimSpace(search.CityName) != "" {
		q = q.Where("festivals.city_id IN (SELECT id FROM cities WHERE LOWER(cities.name) LIKE ?"+crud.LikeEscape+")", crud.Like(search.CityName))
	}
	if search.SubcategoryID != nil {
		q = q.Where("festivals.subcategory_id = ?", *search.SubcategoryID)
	}
	if search.OrganizerID != nil {
		q = q.Where("festivals.organizer_id = ?", *search.OrganizerID)
	}
	if search.StartDateFrom != nil {
		q = q.Where("festivals.start_date >= ?", *search.StartDateFrom)
	}
	if search.StartDateTo != nil {
		q = q.Where("festivals.start_date <= ?", *search.StartDateTo)
	}
	if search.IsActive != nil {
		q = q.Where("festivals.is_active = ?", *search.IsActive)
	}
	if search.AttendedByUser != nil {
		q = q.Where("EXISTS (SELECT 1 FROM tickets WHERE tickets.festival_id = festivals.id AND tickets.user_id = ?)", *search.AttendedByUser)
	}
	return q
}

func validateFestival(tx *gorm.DB, req models.FestivalUpsertRequest) error {
	if req.EndDate.Before(req.StartDate) {
		return crud.Invalid("End date must be greater than or equal to start date.")
	}
	if req.BasePrice.IsNegative() {
		return crud.Invalid("Base price must be a non-negative value.")
	}
	if err := crud.MustExist(tx, &models.City{}, req.CityID, "The specified city does not exist."); err != nil {
		return err
	}
	if err := crud.MustExist(tx, &models.Subcategory{}, req.SubcategoryID, "The specified subcategory does not exist."); err != nil {
		return err
	}
	return crud.MustExist(tx, &models.Organizer{}, req.OrganizerID, "The specified organizer does not exist.")
}

func mapFestival(req models.FestivalUpsertRequest, e *models.Festival) {
	e.Title = req.Title
	e.StartDate = req.StartDate
	e.EndDate = req.EndDate
	e.BasePrice = req.BasePrice
	e.Location = req.Location
	e.IsActive = models.ActiveOrDefault(req.IsActive)
	e.CityID = req.CityID
	e.SubcategoryID = req.SubcategoryID
	e.OrganizerID = req.OrganizerID
}

func (s *Service) notify(ctx context.Context, f *models.Festival, typ notification.Type) {
	if s.opts.Notifier == nil {
		return
	}
	log := logging.With("festival")

	emails, err := notification.Recipients(ctx, s.db, s.opts.RecipientRole)
	if err != nil {
		log.Warn().Err(err).Uint("festival_id", f.ID).Str("type", string(typ)).Msg("skipping festival notification")
		return
	}
	s.opts.Notifier.Enqueue(notification.FromFestival(f, typ, emails))
}

// Logo returns the first image asset, or the first asset when none is an image.
func Logo(assets []models.Asset) string {
	for _, a := range assets {
		if strings.HasPrefix(a.ContentType, "image/") {
			return a.Base64Content
		}
	}
	if len(assets) > 0 {
		return assets[0].Base64Content
	}
	return ""
}

func toFestivalResponse(e *models.Festival) models.FestivalResponse {
	resp := models.FestivalResponse{
		ID:            e.ID,
		Title:         e.Title,
		Logo:          Logo(e.Assets),
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		BasePrice:     e.BasePrice,
		Location:      e.Location,
		IsActive:      e.IsActive,
		CityID:        e.CityID,
		SubcategoryID: e.SubcategoryID,
		OrganizerID:   e.OrganizerID,
		Assets:        make([]models.AssetResponse, 0, len(e.Assets)),
	}
	if e.City != nil {
		resp.CityName = e.City.Name
		if e.City.Country != nil {
			resp.CountryName = e.City.Country.Name
			resp.CountryFlag = e.City.Country.Flag
		}
	}
	if e.Subcategory != nil {
		resp.SubcategoryName = e.Subcategory.Name
		if e.Subcategory.Category != nil {
			resp.CategoryName = e.Subcategory.Category.Name
		}
	}
	if e.Organizer != nil {
		resp.OrganizerName = e.Organizer.Name
	}
	for i := range e.Assets {
		asset := toAssetResponse(&e.Assets[i])
		asset.FestivalTitle = e.Title
		resp.Assets = append(resp.Assets, asset)
	}
	return resp
}
