// Package notification carries festival change notices from the API to the
// subscriber. The API side never waits on delivery.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/manifest-festivals/manifest/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Type string

const (
	Created Type = "Created"
	Updated Type = "Updated"
)

// FestivalNotification is the message published for every festival write.
type FestivalNotification struct {
	FestivalID       uint            `json:"festivalId"`
	Title            string          `json:"title"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	BasePrice        decimal.Decimal `json:"basePrice"`
	Location         string          `json:"location"`
	CityName         string          `json:"cityName"`
	SubcategoryName  string          `json:"subcategoryName"`
	OrganizerName    string          `json:"organizerName"`
	NotificationType Type            `json:"notificationType"`
	UserEmails       []string        `json:"userEmails"`
}

// Publisher hands a notification to the message broker.
type Publisher interface {
	Publish(ctx context.Context, n FestivalNotification) error
}

// FromFestival builds the payload from a festival loaded with its city,
// subcategory and organizer.
func FromFestival(f *models.Festival, typ Type, emails []string) FestivalNotification {
	n := FestivalNotification{
		FestivalID:       f.ID,
		Title:            f.Title,
		StartDate:        f.StartDate,
		EndDate:          f.EndDate,
		BasePrice:        f.BasePrice,
		NotificationType: typ,
		UserEmails:       emails,
	}
	if f.Location != nil {
		n.Location = *f.Location
	}
	if f.City != nil {
		n.CityName = f.City.Name
	}
	if f.Subcategory != nil {
		n.SubcategoryName = f.Subcategory.Name
	}
	if f.Organizer != nil {
		n.OrganizerName = f.Organizer.Name
	}
	return n
}

// Recipients returns the emails of active users holding the given role.
func Recipients(ctx context.Context, db *gorm.DB, role string) ([]string, error) {
	var emails []string
	err := db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ? AND users.is_active = ?", role, true).
		Order("users.id").
		Pluck("users.email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notification recipients: %w", err)
	}
	return emails, nil
}
