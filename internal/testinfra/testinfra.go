// Package testinfra provides an in-memory store and fixtures for tests.
package testinfra

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/manifest-festivals/manifest/internal/database"
	"github.com/manifest-festivals/manifest/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database with foreign keys on.
// Each test gets its own database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// Fixtures is a small, fully linked catalog.
type Fixtures struct {
	Country     models.Country
	City        models.City
	Category    models.Category
	Subcategory models.Subcategory
	Organizer   models.Organizer
	UserRole    models.Role
	AdminRole   models.Role
	User        models.User
	Admin       models.User
	Standard    models.TicketType
}

func Seed(t testing.TB, db *gorm.DB) Fixtures {
	t.Helper()

	var f Fixtures
	f.Country = models.Country{Name: "Bosnia and Herzegovina", Flag: []byte{0x89, 0x50}}
	require.NoError(t, db.Create(&f.Country).Error)

	f.City = models.City{Name: "Sarajevo", CountryID: f.Country.ID}
	require.NoError(t, db.Create(&f.City).Error)

	f.Category = models.Category{Name: "Music", Description: "Music festivals", IsActive: true}
	require.NoError(t, db.Create(&f.Category).Error)

	f.Subcategory = models.Subcategory{Name: "Jazz", IsActive: true, CategoryID: f.Category.ID}
	require.NoError(t, db.Create(&f.Subcategory).Error)

	f.Organizer = models.Organizer{Name: "Jazz Association", IsActive: true}
	require.NoError(t, db.Create(&f.Organizer).Error)

	f.AdminRole = models.Role{Name: "Administrator", IsActive: true}
	f.UserRole = models.Role{Name: "User", IsActive: true}
	require.NoError(t, db.Create(&f.AdminRole).Error)
	require.NoError(t, db.Create(&f.UserRole).Error)

	f.User = CreateUser(t, db, "Amel", "Music", f.UserRole.ID)
	f.Admin = CreateUser(t, db, "Denis", "Admin", f.AdminRole.ID)

	f.Standard = models.TicketType{Name: "Standard", PriceMultiplier: decimal.NewFromInt(1), IsActive: true}
	require.NoError(t, db.Create(&f.Standard).Error)
	return f
}

func CreateUser(t testing.TB, db *gorm.DB, first, last string, roleID uint) models.User {
	t.Helper()

	u := models.User{
		FirstName: first,
		LastName:  last,
		Email:     fmt.Sprintf("%s.%s@example.com", first, last),
		Username:  fmt.Sprintf("%s%s", first, last),
		IsActive:  true,
	}
	require.NoError(t, db.Create(&u).Error)
	if roleID != 0 {
		require.NoError(t, db.Create(&models.UserRole{UserID: u.ID, RoleID: roleID, DateAssigned: time.Now()}).Error)
	}
	return u
}

// CreateFestival inserts a festival directly, bypassing hooks.
func CreateFestival(t testing.TB, db *gorm.DB, f Fixtures, title string, basePrice string) models.Festival {
	t.Helper()

	fest := models.Festival{
		Title:         title,
		StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		BasePrice:     decimal.RequireFromString(basePrice),
		IsActive:      true,
		CityID:        f.City.ID,
		SubcategoryID: f.Subcategory.ID,
		OrganizerID:   f.Organizer.ID,
	}
	require.NoError(t, db.Create(&fest).Error)
	return fest
}
