package crud

import (
	"context"
	"fmt"
	"testing"

	"github.com/manifest-festivals/manifest/internal/models"
	"github.com/manifest-festivals/manifest/internal/testinfra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countryRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type countryService = Service[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest]

func newCountryService(db *gorm.DB, hooks func(*Resource[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest])) *countryService {
	res := Resource[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest]{
		Name: "country",
		Filter: func(q *gorm.DB, search models.CountrySearch) *gorm.DB {
			return Contains(q, "name", search.Name)
		},
		ToResponse: func(e *models.Country) models.CountryResponse {
			return models.CountryResponse{ID: e.ID, Name: e.Name}
		},
		MapInsert: func(req countryRequest, e *models.Country) { e.Name = req.Name },
		MapUpdate: func(req countryRequest, e *models.Country) { e.Name = req.Name },
	}
	if hooks != nil {
		hooks(&res)
	}
	return NewService(db, res)
}

func seedCountries(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, db.Create(&models.Country{Name: fmt.Sprintf("Country %02d", i)}).Error)
	}
}

func ptr[T any](v T) *T { return &v }

func ids(items []models.CountryResponse) []uint {
	out := make([]uint, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestListPaging(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 25)
	require.NoError(t, db.Create(&models.Country{Name: "Elsewhere"}).Error)
	svc := newCountryService(db, nil)

	result, err := svc.List(context.Background(), models.CountrySearch{
		BaseSearch: models.BaseSearch{Page: ptr(1), PageSize: ptr(10), IncludeTotalCount: true},
		Name:       "country",
	})
	require.NoError(t, err)
	require.NotNil(t, result.TotalCount)
	assert.Equal(t, 25, *result.TotalCount)
	assert.Equal(t, []uint{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, ids(result.Items))
	assert.Equal(t, "Country 11", result.Items[0].Name)
}

func TestListLastPartialPage(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 25)
	svc := newCountryService(db, nil)

	result, err := svc.List(context.Background(), models.CountrySearch{
		BaseSearch: models.BaseSearch{Page: ptr(2), PageSize: ptr(10)},
	})
	require.NoError(t, err)
	assert.Nil(t, result.TotalCount)
	assert.Len(t, result.Items, 5)
}

func TestListRetrieveAllIgnoresPaging(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 12)
	svc := newCountryService(db, nil)

	result, err := svc.List(context.Background(), models.CountrySearch{
		BaseSearch: models.BaseSearch{Page: ptr(1), PageSize: ptr(5), RetrieveAll: true, IncludeTotalCount: true},
	})
	require.NoError(t, err)
	assert.Len(t, result.Items, 12)
	assert.Equal(t, 12, *result.TotalCount)
}

func TestListWithoutPageSizeReturnsEverything(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 7)
	svc := newCountryService(db, nil)

	result, err := svc.List(context.Background(), models.CountrySearch{BaseSearch: models.BaseSearch{Page: ptr(3)}})
	require.NoError(t, err)
	assert.Len(t, result.Items, 7)
}

func TestListEmptyIsNotNil(t *testing.T) {
	db := testinfra.NewDB(t)
	svc := newCountryService(db, nil)

	result, err := svc.List(context.Background(), models.CountrySearch{})
	require.NoError(t, err)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
}

func TestListHonorsFilterOrder(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 3)
	svc := newCountryService(db, func(r *Resource[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest]) {
		r.Filter = func(q *gorm.DB, _ models.CountrySearch) *gorm.DB {
			return q.Order("name DESC")
		}
	})

	result, err := svc.List(context.Background(), models.CountrySearch{
		BaseSearch: models.BaseSearch{IncludeTotalCount: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 2, 1}, ids(result.Items))
	assert.Equal(t, 3, *result.TotalCount)
}

func TestGetByID(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 2)
	svc := newCountryService(db, nil)

	resp, err := svc.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Country 02", resp.Name)

	_, err = svc.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertValidationAbortsWrite(t *testing.T) {
	db := testinfra.NewDB(t)
	var seen string
	var after int
	svc := newCountryService(db, func(r *Resource[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest]) {
		r.BeforeInsert = func(ctx context.Context, tx *gorm.DB, e *models.Country, req countryRequest) error {
			seen = e.Name
			if req.Name == "Atlantis" {
				return Invalid("No such country.")
			}
			return nil
		}
		r.AfterInsert = func(ctx context.Context, e *models.Country) { after++ }
	})

	_, err := svc.Insert(context.Background(), countryRequest{Name: "Atlantis"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "Atlantis", seen, "BeforeInsert sees the mapped entity")
	assert.Equal(t, 0, after)

	var count int64
	require.NoError(t, db.Model(&models.Country{}).Count(&count).Error)
	assert.Zero(t, count)

	resp, err := svc.Insert(context.Background(), countryRequest{Name: "Croatia"})
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, 1, after)
}

func TestUpdateHookSeesPriorState(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 1)

	var before, afterName string
	svc := newCountryService(db, func(r *Resource[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest]) {
		r.BeforeUpdate = func(ctx context.Context, tx *gorm.DB, e *models.Country, req countryRequest) error {
			before = e.Name
			return nil
		}
		r.AfterUpdate = func(ctx context.Context, e *models.Country) { afterName = e.Name }
	})

	resp, err := svc.Update(context.Background(), 1, countryRequest{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)
	assert.Equal(t, "Country 01", before)
	assert.Equal(t, "Renamed", afterName)

	_, err = svc.Update(context.Background(), 42, countryRequest{Name: "Nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	db := testinfra.NewDB(t)
	seedCountries(t, db, 1)
	var deleted []uint
	svc := newCountryService(db, func(r *Resource[models.Country, models.CountryResponse, models.CountrySearch, countryRequest, countryRequest]) {
		r.AfterDelete = func(ctx context.Context, id uint) { deleted = append(deleted, id) }
	})

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), ErrNotFound)
	assert.Equal(t, []uint{1}, deleted, "the hook runs only for rows that were removed")
}

func TestDeleteRestrictedByReference(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	svc := newCountryService(db, nil)

	err := svc.Delete(context.Background(), fx.Country.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("city", nil))
	assert.ErrorIs(t, translate("city", gorm.ErrRecordNotFound), ErrNotFound)
	assert.True(t, IsValidation(translate("city", gorm.ErrDuplicatedKey)))
	assert.True(t, IsValidation(translate("city", gorm.ErrForeignKeyViolated)))

	other := fmt.Errorf("disk full")
	assert.Equal(t, other, translate("city", other))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "not_found", Outcome(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.Equal(t, "invalid", Outcome(Invalid("bad")))
	assert.Equal(t, "error", Outcome(fmt.Errorf("boom")))
}

func TestLike(t *testing.T) {
	assert.Equal(t, "%jazz%", Like("Jazz"))
	assert.Equal(t, `%100\%\_x%`, Like("100%_x"))
}
