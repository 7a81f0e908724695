// Package catalog serves the lookup resources festivals are classified by:
// countries, cities, categories, subcategories, organizers and ticket types.
package catalog

import (
	"context"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	CountryService     = crud.Service[models.Country, models.CountryResponse, models.CountrySearch, models.CountryUpsertRequest, models.CountryUpsertRequest]
	CityService        = crud.Service[models.City, models.CityResponse, models.CitySearch, models.CityUpsertRequest, models.CityUpsertRequest]
	CategoryService    = crud.Service[models.Category, models.CategoryResponse, models.CategorySearch, models.CategoryUpsertRequest, models.CategoryUpsertRequest]
	SubcategoryService = crud.Service[models.Subcategory, models.SubcategoryResponse, models.SubcategorySearch, models.SubcategoryUpsertRequest, models.SubcategoryUpsertRequest]
	OrganizerService   = crud.Service[models.Organizer, models.OrganizerResponse, models.OrganizerSearch, models.OrganizerUpsertRequest, models.OrganizerUpsertRequest]
	TicketTypeService  = crud.Service[models.TicketType, models.TicketTypeResponse, models.TicketTypeSearch, models.TicketTypeUpsertRequest, models.TicketTypeUpsertRequest]
)

// Service bundles the catalog resources.
type Service struct {
	Countries     *CountryService
	Cities        *CityService
	Categories    *CategoryService
	Subcategories *SubcategoryService
	Organizers    *OrganizerService
	TicketTypes   *TicketTypeService
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		Countries:     crud.NewService(db, countryResource()),
		Cities:        crud.NewService(db, cityResource()),
		Categories:    crud.NewService(db, categoryResource()),
		Subcategories: crud.NewService(db, subcategoryResource()),
		Organizers:    crud.NewService(db, organizerResource()),
		TicketTypes:   crud.NewService(db, ticketTypeResource()),
	}
}

func (s *Service) SetupRoutes(r gin.IRouter) {
	crud.NewHandler(s.Countries).SetupRoutes(r, "/country")
	crud.NewHandler(s.Cities).SetupRoutes(r, "/city")
	crud.NewHandler(s.Categories).SetupRoutes(r, "/category")
	crud.NewHandler(s.Subcategories).SetupRoutes(r, "/subcategory")
	crud.NewHandler(s.Organizers).SetupRoutes(r, "/organizer")
	crud.NewHandler(s.TicketTypes).SetupRoutes(r, "/tickettype")
}

func countryResource() crud.Resource[models.Country, models.CountryResponse, models.CountrySearch, models.CountryUpsertRequest, models.CountryUpsertRequest] {
	checkName := func(tx *gorm.DB, id uint, req models.CountryUpsertRequest) error {
		taken, err := crud.Exists(tx, &models.Country{}, "name = ? AND id <> ?", req.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("A country with this name already exists.")
		}
		return nil
	}

	return crud.Resource[models.Country, models.CountryResponse, models.CountrySearch, models.CountryUpsertRequest, models.CountryUpsertRequest]{
		Name: "country",
		Filter: func(q *gorm.DB, search models.CountrySearch) *gorm.DB {
			q = crud.Contains(q, "name", search.Name)
			return q
		},
		ToResponse: func(e *models.Country) models.CountryResponse {
			return models.CountryResponse{ID: e.ID, Name: e.Name, Flag: e.Flag}
		},
		MapInsert: func(req models.CountryUpsertRequest, e *models.Country) {
			e.Name = req.Name
			e.Flag = req.Flag
		},
		MapUpdate: func(req models.CountryUpsertRequest, e *models.Country) {
			e.Name = req.Name
			e.Flag = req.Flag
		},
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Country, req models.CountryUpsertRequest) error {
			return checkName(tx, 0, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Country, req models.CountryUpsertRequest) error {
			return checkName(tx, e.ID, req)
		},
	}
}

func cityResource() crud.Resource[models.City, models.CityResponse, models.CitySearch, models.CityUpsertRequest, models.CityUpsertRequest] {
	validate := func(tx *gorm.DB, id uint, req models.CityUpsertRequest) error {
		taken, err := crud.Exists(tx, &models.City{}, "name = ? AND country_id = ? AND id <> ?", req.Name, req.CountryID, id)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("A city with this name already exists in this country.")
		}
		found, err := crud.Exists(tx, &models.Country{}, "id = ?", req.CountryID)
		if err != nil {
			return err
		}
		if !found {
			return crud.Invalid("The specified country does not exist.")
		}
		return nil
	}

	return crud.Resource[models.City, models.CityResponse, models.CitySearch, models.CityUpsertRequest, models.CityUpsertRequest]{
		Name: "city",
		Filter: func(q *gorm.DB, search models.CitySearch) *gorm.DB {
			q = crud.Contains(q, "name", search.Name)
			if search.CountryID != nil {
				q = q.Where("country_id = ?", *search.CountryID)
			}
			return q
		},
		Preload: func(q *gorm.DB, _ *models.CitySearch) *gorm.DB {
			return q.Preload("Country")
		},
		ToResponse: func(e *models.City) models.CityResponse {
			resp := models.CityResponse{ID: e.ID, Name: e.Name, CountryID: e.CountryID}
			if e.Country != nil {
				resp.CountryName = e.Country.Name
			}
			return resp
		},
		MapInsert: func(req models.CityUpsertRequest, e *models.City) {
			e.Name = req.Name
			e.CountryID = req.CountryID
		},
		MapUpdate: func(req models.CityUpsertRequest, e *models.City) {
			e.Name = req.Name
			e.CountryID = req.CountryID
		},
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.City, req models.CityUpsertRequest) error {
			return validate(tx, 0, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.City, req models.CityUpsertRequest) error {
			return validate(tx, e.ID, req)
		},
	}
}

func categoryResource() crud.Resource[models.Category, models.CategoryResponse, models.CategorySearch, models.CategoryUpsertRequest, models.CategoryUpsertRequest] {
	checkName := func(tx *gorm.DB, id uint, req models.CategoryUpsertRequest) error {
		taken, err := crud.Exists(tx, &models.Category{}, "name = ? AND id <> ?", req.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("A category with this name already exists.")
		}
		return nil
	}

	return crud.Resource[models.Category, models.CategoryResponse, models.CategorySearch, models.CategoryUpsertRequest, models.CategoryUpsertRequest]{
		Name: "category",
		Filter: func(q *gorm.DB, search models.CategorySearch) *gorm.DB {
			q = crud.Contains(q, "name", search.Name)
			if search.IsActive != nil {
				q = q.Where("is_active = ?", *search.IsActive)
			}
			return q
		},
		Preload: func(q *gorm.DB, _ *models.CategorySearch) *gorm.DB {
			return q.Preload("Subcategories", func(db *gorm.DB) *gorm.DB {
				return db.Order("subcategories.id")
			})
		},
		ToResponse: func(e *models.Category) models.CategoryResponse {
			resp := models.CategoryResponse{
				ID:            e.ID,
				Name:          e.Name,
				Description:   e.Description,
				IsActive:      e.IsActive,
				Subcategories: make([]models.SubcategoryResponse, 0, len(e.Subcategories)),
			}
			for i := range e.Subcategories {
				sub := toSubcategoryResponse(&e.Subcategories[i])
				sub.CategoryName = e.Name
				resp.Subcategories = append(resp.Subcategories, sub)
			}
			return resp
		},
		MapInsert: func(req models.CategoryUpsertRequest, e *models.Category) {
			e.Name = req.Name
			e.Description = req.Description
			e.IsActive = models.ActiveOrDefault(req.IsActive)
		},
		MapUpdate: func(req models.CategoryUpsertRequest, e *models.Category) {
			e.Name = req.Name
			e.Description = req.Description
			e.IsActive = models.ActiveOrDefault(req.IsActive)
		},
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Category, req models.CategoryUpsertRequest) error {
			return checkName(tx, 0, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Category, req models.CategoryUpsertRequest) error {
			return checkName(tx, e.ID, req)
		},
	}
}

func toSubcategoryResponse(e *models.Subcategory) models.SubcategoryResponse {
	resp := models.SubcategoryResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		IsActive:    e.IsActive,
		CategoryID:  e.CategoryID,
	}
	if e.Category != nil {
		resp.CategoryName = e.Category.Name
	}
	return resp
}

func subcategoryResource() crud.Resource[models.Subcategory, models.SubcategoryResponse, models.SubcategorySearch, models.SubcategoryUpsertRequest, models.SubcategoryUpsertRequest] {
	validate := func(tx *gorm.DB, id uint, req models.SubcategoryUpsertRequest) error {
		taken, err := crud.Exists(tx, &models.Subcategory{}, "name = ? AND category_id = ? AND id <> ?", req.Name, req.CategoryID, id)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("A subcategory with this name already exists in this category.")
		}
		found, err := crud.Exists(tx, &models.Category{}, "id = ?", req.CategoryID)
		if err != nil {
			return err
		}
		if !found {
			return crud.Invalid("The specified category does not exist.")
		}
		return nil
	}

	return crud.Resource[models.Subcategory, models.SubcategoryResponse, models.SubcategorySearch, models.SubcategoryUpsertRequest, models.SubcategoryUpsertRequest]{
		Name: "subcategory",
		Filter: func(q *gorm.DB, search models.SubcategorySearch) *gorm.DB {
			q = crud.Contains(q, "name", search.Name)
			if search.IsActive != nil {
				q = q.Where("is_active = ?", *search.IsActive)
			}
			if search.CategoryID != nil {
				q = q.Where("category_id = ?", *search.CategoryID)
			}
			return q
		},
		Preload: func(q *gorm.DB, _ *models.SubcategorySearch) *gorm.DB {
			return q.Preload("Category")
		},
		ToResponse: toSubcategoryResponse,
		MapInsert: func(req models.SubcategoryUpsertRequest, e *models.Subcategory) {
			e.Name = req.Name
			e.Description = req.Description
			e.IsActive = models.ActiveOrDefault(req.IsActive)
			e.CategoryID = req.CategoryID
		},
		MapUpdate: func(req models.SubcategoryUpsertRequest, e *models.Subcategory) {
			e.Name = req.Name
			e.Description = req.Description
			e.IsActive = models.ActiveOrDefault(req.IsActive)
			e.CategoryID = req.CategoryID
		},
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Subcategory, req models.SubcategoryUpsertRequest) error {
			return validate(tx, 0, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Subcategory, req models.SubcategoryUpsertRequest) error {
			return validate(tx, e.ID, req)
		},
	}
}

func organizerResource() crud.Resource[models.Organizer, models.OrganizerResponse, models.OrganizerSearch, models.OrganizerUpsertRequest, models.OrganizerUpsertRequest] {
	checkName := func(tx *gorm.DB, id uint, req models.OrganizerUpsertRequest) error {
		taken, err := crud.Exists(tx, &models.Organizer{}, "name = ? AND id <> ?", req.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("An organizer with this name already exists.")
		}
		return nil
	}

	return crud.Resource[models.Organizer, models.OrganizerResponse, models.OrganizerSearch, models.OrganizerUpsertRequest, models.OrganizerUpsertRequest]{
		Name: "organizer",
		Filter: func(q *gorm.DB, search models.OrganizerSearch) *gorm.DB {
			q = crud.Contains(q, "name", search.Name)
			if search.IsActive != nil {
				q = q.Where("is_active = ?", *search.IsActive)
			}
			return q
		},
		ToResponse: func(e *models.Organizer) models.OrganizerResponse {
			return models.OrganizerResponse{ID: e.ID, Name: e.Name, ContactInfo: e.ContactInfo, IsActive: e.IsActive}
		},
		MapInsert: func(req models.OrganizerUpsertRequest, e *models.Organizer) {
			e.Name = req.Name
			e.ContactInfo = req.ContactInfo
			e.IsActive = models.ActiveOrDefault(req.IsActive)
		},
		MapUpdate: func(req models.OrganizerUpsertRequest, e *models.Organizer) {
			e.Name = req.Name
			e.ContactInfo = req.ContactInfo
			e.IsActive = models.ActiveOrDefault(req.IsActive)
		},
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.Organizer, req models.OrganizerUpsertRequest) error {
			return checkName(tx, 0, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.Organizer, req models.OrganizerUpsertRequest) error {
			return checkName(tx, e.ID, req)
		},
	}
}

var (
	minMultiplier = decimal.RequireFromString("0.1")
	maxMultiplier = decimal.NewFromInt(10)
)

func ticketTypeResource() crud.Resource[models.TicketType, models.TicketTypeResponse, models.TicketTypeSearch, models.TicketTypeUpsertRequest, models.TicketTypeUpsertRequest] {
	validate := func(tx *gorm.DB, id uint, req models.TicketTypeUpsertRequest) error {
		if !req.PriceMultiplier.IsZero() && (req.PriceMultiplier.LessThan(minMultiplier) || req.PriceMultiplier.GreaterThan(maxMultiplier)) {
			return crud.Invalid("Price multiplier must be between 0.1 and 10.")
		}
		taken, err := crud.Exists(tx, &models.TicketType{}, "name = ? AND id <> ?", req.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return crud.Invalid("A ticket type with this name already exists.")
		}
		return nil
	}
	multiplier := func(req models.TicketTypeUpsertRequest) decimal.Decimal {
		if req.PriceMultiplier.IsZero() {
			return decimal.NewFromInt(1)
		}
		return req.PriceMultiplier
	}

	return crud.Resource[models.TicketType, models.TicketTypeResponse, models.TicketTypeSearch, models.TicketTypeUpsertRequest, models.TicketTypeUpsertRequest]{
		Name: "ticket type",
		Filter: func(q *gorm.DB, search models.TicketTypeSearch) *gorm.DB {
			q = crud.Contains(q, "name", search.Name)
			if search.IsActive != nil {
				q = q.Where("is_active = ?", *search.IsActive)
			}
			return q
		},
		ToResponse: func(e *models.TicketType) models.TicketTypeResponse {
			return models.TicketTypeResponse{
				ID:              e.ID,
				Name:            e.Name,
				Description:     e.Description,
				PriceMultiplier: e.PriceMultiplier,
				IsActive:        e.IsActive,
			}
		},
		MapInsert: func(req models.TicketTypeUpsertRequest, e *models.TicketType) {
			e.Name = req.Name
			e.Description = req.Description
			e.PriceMultiplier = multiplier(req)
			e.IsActive = models.ActiveOrDefault(req.IsActive)
		},
		MapUpdate: func(req models.TicketTypeUpsertRequest, e *models.TicketType) {
			e.Name = req.Name
			e.Description = req.Description
			e.PriceMultiplier = multiplier(req)
			e.IsActive = models.ActiveOrDefault(req.IsActive)
		},
		BeforeInsert: func(ctx context.Context, tx *gorm.DB, e *models.TicketType, req models.TicketTypeUpsertRequest) error {
			return validate(tx, 0, req)
		},
		BeforeUpdate: func(ctx context.Context, tx *gorm.DB, e *models.TicketType, req models.TicketTypeUpsertRequest) error {
			return validate(tx, e.ID, req)
		},
	}
}
