package database

import (
	"fmt"
	"time"

	"github.com/manifest-festivals/manifest/internal/config"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DBMigrate {
		if err := models.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logging.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("database connected")
	return db, nil
}

// Open applies the gorm settings every process and test shares: constraint
// errors are translated to gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
}

// SeedData inserts reference data and demo festivals once.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Role{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if count > 0 {
		logging.Info().Msg("data already seeded, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		roles := []models.Role{
			{Name: "Administrator", Description: "System administrator with full access", IsActive: true},
			{Name: "User", Description: "Regular user role", IsActive: true},
		}
		if err := tx.Create(&roles).Error; err != nil {
			return fmt.Errorf("failed to create roles: %w", err)
		}

		genders := []models.Gender{{Name: "Male"}, {Name: "Female"}}
		if err := tx.Create(&genders).Error; err != nil {
			return fmt.Errorf("failed to create genders: %w", err)
		}

		countries := []models.Country{{Name: "Bosnia and Herzegovina"}, {Name: "Croatia"}, {Name: "Serbia"}}
		if err := tx.Create(&countries).Error; err != nil {
			return fmt.Errorf("failed to create countries: %w", err)
		}

		cities := []models.City{
			{Name: "Sarajevo", CountryID: countries[0].ID},
			{Name: "Mostar", CountryID: countries[0].ID},
			{Name: "Zagreb", CountryID: countries[1].ID},
			{Name: "Novi Sad", CountryID: countries[2].ID},
		}
		if err := tx.Create(&cities).Error; err != nil {
			return fmt.Errorf("failed to create cities: %w", err)
		}

		users := []models.User{
			{FirstName: "Denis", LastName: "Music", Email: "admin@manifest.local", Username: "admin", IsActive: true, GenderID: &genders[0].ID, CityID: &cities[0].ID},
			{FirstName: "Amel", LastName: "Music", Email: "user@manifest.local", Username: "user", IsActive: true, GenderID: &genders[0].ID, CityID: &cities[1].ID},
			{FirstName: "Lejla", LastName: "Basic", Email: "user2@manifest.local", Username: "user2", IsActive: true, GenderID: &genders[1].ID, CityID: &cities[2].ID},
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("failed to create users: %w", err)
		}

		userRoles := []models.UserRole{
			{UserID: users[0].ID, RoleID: roles[0].ID, DateAssigned: time.Now().UTC()},
			{UserID: users[1].ID, RoleID: roles[1].ID, DateAssigned: time.Now().UTC()},
			{UserID: users[2].ID, RoleID: roles[1].ID, DateAssigned: time.Now().UTC()},
		}
		if err := tx.Create(&userRoles).Error; err != nil {
			return fmt.Errorf("failed to assign roles: %w", err)
		}

		categories := []models.Category{
			{Name: "Music", Description: "Music festivals and events", IsActive: true, Subcategories: []models.Subcategory{
				{Name: "Jazz", Description: "Jazz music festivals", IsActive: true},
				{Name: "Rock", Description: "Rock music festivals", IsActive: true},
				{Name: "Classical", Description: "Classical music festivals", IsActive: true},
			}},
			{Name: "Film", Description: "Film festivals and screenings", IsActive: true, Subcategories: []models.Subcategory{
				{Name: "Feature", Description: "Feature film festivals", IsActive: true},
				{Name: "Documentary", Description: "Documentary film festivals", IsActive: true},
			}},
			{Name: "Gaming", Description: "Gaming and esports festivals", IsActive: true, Subcategories: []models.Subcategory{
				{Name: "Esports", Description: "Competitive gaming events", IsActive: true},
			}},
		}
		if err := tx.Create(&categories).Error; err != nil {
			return fmt.Errorf("failed to create categories: %w", err)
		}

		organizers := []models.Organizer{
			{Name: "Sarajevo Jazz Association", IsActive: true},
			{Name: "Obala Art Centar", IsActive: true},
			{Name: "EXIT Foundation", IsActive: true},
		}
		if err := tx.Create(&organizers).Error; err != nil {
			return fmt.Errorf("failed to create organizers: %w", err)
		}

		ticketTypes := []models.TicketType{
			{Name: "Standard", PriceMultiplier: decimal.NewFromInt(1), IsActive: true},
			{Name: "VIP", PriceMultiplier: decimal.RequireFromString("1.5"), IsActive: true},
			{Name: "Student", PriceMultiplier: decimal.RequireFromString("0.7"), IsActive: true},
		}
		if err := tx.Create(&ticketTypes).Error; err != nil {
			return fmt.Errorf("failed to create ticket types: %w", err)
		}

		festivals := []models.Festival{
			{Title: "Sarajevo Jazz Fest", StartDate: parseDate("2026-11-01T18:00:00Z"), EndDate: parseDate("2026-11-06T23:00:00Z"),
				BasePrice: decimal.NewFromInt(40), IsActive: true, CityID: cities[0].ID,
				SubcategoryID: categories[0].Subcategories[0].ID, OrganizerID: organizers[0].ID},
			{Title: "Sarajevo Film Festival", StartDate: parseDate("2026-08-14T18:00:00Z"), EndDate: parseDate("2026-08-21T23:00:00Z"),
				BasePrice: decimal.NewFromInt(25), IsActive: true, CityID: cities[0].ID,
				SubcategoryID: categories[1].Subcategories[0].ID, OrganizerID: organizers[1].ID},
			{Title: "EXIT", StartDate: parseDate("2026-07-09T20:00:00Z"), EndDate: parseDate("2026-07-12T06:00:00Z"),
				BasePrice: decimal.NewFromInt(120), IsActive: true, CityID: cities[3].ID,
				SubcategoryID: categories[0].Subcategories[1].ID, OrganizerID: organizers[2].ID},
		}
		if err := tx.Create(&festivals).Error; err != nil {
			return fmt.Errorf("failed to create festivals: %w", err)
		}

		logging.Info().Int("festivals", len(festivals)).Msg("sample data seeded")
		return nil
	})
}

func parseDate(dateStr string) time.Time {
	t, _ := time.Parse(time.RFC3339, dateStr)
	return t
}
