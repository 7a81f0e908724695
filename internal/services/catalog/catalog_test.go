package catalog

import (
	"context"
	"testing"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/models"
	"github.com/manifest-festivals/manifest/internal/testinfra"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestCategoryNameIsUnique(t *testing.T) {
	db := testinfra.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	first, err := svc.Categories.Insert(ctx, models.CategoryUpsertRequest{Name: "Music"})
	require.NoError(t, err)
	assert.True(t, first.IsActive, "active by default")

	_, err = svc.Categories.Insert(ctx, models.CategoryUpsertRequest{Name: "Music"})
	require.Error(t, err)
	assert.True(t, crud.IsValidation(err))

	// Renaming to its own name is fine.
	_, err = svc.Categories.Update(ctx, first.ID, models.CategoryUpsertRequest{Name: "Music", IsActive: boolPtr(false)})
	require.NoError(t, err)
}

func TestOrganizerAndTicketTypeNamesAreUnique(t *testing.T) {
	db := testinfra.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Organizers.Insert(ctx, models.OrganizerUpsertRequest{Name: "EXIT Foundation"})
	require.NoError(t, err)
	_, err = svc.Organizers.Insert(ctx, models.OrganizerUpsertRequest{Name: "EXIT Foundation"})
	assert.True(t, crud.IsValidation(err))

	_, err = svc.TicketTypes.Insert(ctx, models.TicketTypeUpsertRequest{Name: "VIP", PriceMultiplier: decimal.RequireFromString("1.5")})
	require.NoError(t, err)
	_, err = svc.TicketTypes.Insert(ctx, models.TicketTypeUpsertRequest{Name: "VIP", PriceMultiplier: decimal.NewFromInt(2)})
	assert.True(t, crud.IsValidation(err))
}

func TestCityUniquePerCountry(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Cities.Insert(ctx, models.CityUpsertRequest{Name: "Sarajevo", CountryID: fx.Country.ID})
	assert.True(t, crud.IsValidation(err))

	other, err := svc.Countries.Insert(ctx, models.CountryUpsertRequest{Name: "Croatia"})
	require.NoError(t, err)
	city, err := svc.Cities.Insert(ctx, models.CityUpsertRequest{Name: "Sarajevo", CountryID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, "Croatia", city.CountryName)

	_, err = svc.Cities.Insert(ctx, models.CityUpsertRequest{Name: "Zagreb", CountryID: 999})
	assert.True(t, crud.IsValidation(err))
}

func TestSubcategoryUniquePerCategory(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Subcategories.Insert(ctx, models.SubcategoryUpsertRequest{Name: "Jazz", CategoryID: fx.Category.ID})
	assert.True(t, crud.IsValidation(err))

	film, err := svc.Categories.Insert(ctx, models.CategoryUpsertRequest{Name: "Film"})
	require.NoError(t, err)
	sub, err := svc.Subcategories.Insert(ctx, models.SubcategoryUpsertRequest{Name: "Jazz", CategoryID: film.ID})
	require.NoError(t, err)
	assert.Equal(t, "Film", sub.CategoryName)

	_, err = svc.Subcategories.Insert(ctx, models.SubcategoryUpsertRequest{Name: "Rock", CategoryID: 999})
	assert.True(t, crud.IsValidation(err))
}

func TestCategoryIncludesSubcategories(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	svc := NewService(db)

	resp, err := svc.Categories.GetByID(context.Background(), fx.Category.ID)
	require.NoError(t, err)
	require.Len(t, resp.Subcategories, 1)
	assert.Equal(t, "Jazz", resp.Subcategories[0].Name)
	assert.Equal(t, "Music", resp.Subcategories[0].CategoryName)
}

func TestDeletingCategoryCascadesToSubcategories(t *testing.T) {
	db := testinfra.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	cat, err := svc.Categories.Insert(ctx, models.CategoryUpsertRequest{Name: "Gaming"})
	require.NoError(t, err)
	_, err = svc.Subcategories.Insert(ctx, models.SubcategoryUpsertRequest{Name: "Esports", CategoryID: cat.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Categories.Delete(ctx, cat.ID))

	var count int64
	require.NoError(t, db.Model(&models.Subcategory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFilters(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Subcategories.Insert(ctx, models.SubcategoryUpsertRequest{Name: "Rock", CategoryID: fx.Category.ID, IsActive: boolPtr(false)})
	require.NoError(t, err)

	subs, err := svc.Subcategories.List(ctx, models.SubcategorySearch{IsActive: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, subs.Items, 1)
	assert.Equal(t, "Jazz", subs.Items[0].Name)

	subs, err = svc.Subcategories.List(ctx, models.SubcategorySearch{Name: "ROC"})
	require.NoError(t, err)
	require.Len(t, subs.Items, 1)
	assert.Equal(t, "Rock", subs.Items[0].Name)

	cities, err := svc.Cities.List(ctx, models.CitySearch{CountryID: &fx.Country.ID})
	require.NoError(t, err)
	require.Len(t, cities.Items, 1)
	assert.Equal(t, "Bosnia and Herzegovina", cities.Items[0].CountryName)
}

func TestTicketTypeMultiplier(t *testing.T) {
	db := testinfra.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	tt, err := svc.TicketTypes.Insert(ctx, models.TicketTypeUpsertRequest{Name: "Standard"})
	require.NoError(t, err)
	assert.True(t, tt.PriceMultiplier.Equal(decimal.NewFromInt(1)), "defaults to 1")

	_, err = svc.TicketTypes.Insert(ctx, models.TicketTypeUpsertRequest{Name: "Absurd", PriceMultiplier: decimal.NewFromInt(11)})
	assert.True(t, crud.IsValidation(err))
}
