package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Upsert requests are shared by insert and update. IsActive defaults to true
// when omitted.

type CountryUpsertRequest struct {
	Name string `json:"name" binding:"required,max=50"`
	Flag []byte `json:"flag"`
}

type CityUpsertRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	CountryID uint   `json:"countryId" binding:"required"`
}

type CategoryUpsertRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=200"`
	IsActive    *bool  `json:"isActive"`
}

type SubcategoryUpsertRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=200"`
	IsActive    *bool  `json:"isActive"`
	CategoryID  uint   `json:"categoryId" binding:"required"`
}

type OrganizerUpsertRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	ContactInfo *string `json:"contactInfo" binding:"omitempty,max=200"`
	IsActive    *bool   `json:"isActive"`
}

type TicketTypeUpsertRequest struct {
	Name            string          `json:"name" binding:"required,max=50"`
	Description     *string         `json:"description" binding:"omitempty,max=200"`
	PriceMultiplier decimal.Decimal `json:"priceMultiplier"`
	IsActive        *bool           `json:"isActive"`
}

type FestivalUpsertRequest struct {
	Title         string          `json:"title" binding:"required,max=100"`
	StartDate     time.Time       `json:"startDate" binding:"required"`
	EndDate       time.Time       `json:"endDate" binding:"required"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	Location      *string         `json:"location" binding:"omitempty,max=100"`
	CityID        uint            `json:"cityId" binding:"required"`
	SubcategoryID uint            `json:"subcategoryId" binding:"required"`
	OrganizerID   uint            `json:"organizerId" binding:"required"`
	IsActive      *bool           `json:"isActive"`
}

type AssetUpsertRequest struct {
	FileName      string `json:"fileName" binding:"required,max=100"`
	ContentType   string `json:"contentType" binding:"required,max=100"`
	Base64Content string `json:"base64Content" binding:"required,base64"`
	FestivalID    uint   `json:"festivalId" binding:"required"`
}

type ReviewUpsertRequest struct {
	Rating     int     `json:"rating" binding:"required"`
	Comment    *string `json:"comment" binding:"omitempty,max=1000"`
	FestivalID uint    `json:"festivalId" binding:"required"`
	UserID     uint    `json:"userId" binding:"required"`
}

// TicketUpsertRequest issues a ticket. GeneratedCode is optional; the server
// generates one when it is blank.
type TicketUpsertRequest struct {
	FestivalID    uint   `json:"festivalId" binding:"required"`
	UserID        uint   `json:"userId" binding:"required"`
	TicketTypeID  uint   `json:"ticketTypeId" binding:"required"`
	GeneratedCode string `json:"generatedCode" binding:"max=100"`
}

// ActiveOrDefault resolves an optional IsActive flag.
func ActiveOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
