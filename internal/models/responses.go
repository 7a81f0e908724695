package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CountryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Flag []byte `json:"flag,omitempty"`
}

type CityResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	CountryID   uint   `json:"countryId"`
	CountryName string `json:"countryName"`
}

type CategoryResponse struct {
	ID            uint                  `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	IsActive      bool                  `json:"isActive"`
	Subcategories []SubcategoryResponse `json:"subcategories"`
}

type SubcategoryResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsActive     bool   `json:"isActive"`
	CategoryID   uint   `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

type OrganizerResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	ContactInfo *string `json:"contactInfo,omitempty"`
	IsActive    bool    `json:"isActive"`
}

type TicketTypeResponse struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	PriceMultiplier decimal.Decimal `json:"priceMultiplier"`
	IsActive        bool            `json:"isActive"`
}

type AssetResponse struct {
	ID            uint   `json:"id"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	Base64Content string `json:"base64Content,omitempty"`
	FestivalID    uint   `json:"festivalId"`
	FestivalTitle string `json:"festivalTitle"`
}

type FestivalResponse struct {
	ID              uint            `json:"id"`
	Title           string          `json:"title"`
	Logo            string          `json:"logo,omitempty"`
	CountryFlag     []byte          `json:"countryFlag,omitempty"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	Location        *string         `json:"location,omitempty"`
	IsActive        bool            `json:"isActive"`
	CityID          uint            `json:"cityId"`
	CityName        string          `json:"cityName"`
	CountryName     string          `json:"countryName"`
	SubcategoryID   uint            `json:"subcategoryId"`
	SubcategoryName string          `json:"subcategoryName"`
	CategoryName    string          `json:"categoryName"`
	OrganizerID     uint            `json:"organizerId"`
	OrganizerName   string          `json:"organizerName"`
	Assets          []AssetResponse `json:"assets"`
}

type ReviewResponse struct {
	ID            uint      `json:"id"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	FestivalLogo  string    `json:"festivalLogo,omitempty"`
	FestivalID    uint      `json:"festivalId"`
	FestivalTitle string    `json:"festivalTitle"`
	UserID        uint      `json:"userId"`
	UserFullName  string    `json:"userFullName"`
	Username      string    `json:"username"`
}

type TicketResponse struct {
	ID             uint            `json:"id"`
	FestivalID     uint            `json:"festivalId"`
	FestivalTitle  string          `json:"festivalTitle"`
	UserID         uint            `json:"userId"`
	Username       string          `json:"username"`
	UserFullName   string          `json:"userFullName"`
	TicketTypeID   uint            `json:"ticketTypeId"`
	TicketTypeName string          `json:"ticketTypeName"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	GeneratedCode  string          `json:"generatedCode"`
	IsRedeemed     bool            `json:"isRedeemed"`
	CreatedAt      time.Time       `json:"createdAt"`
	RedeemedAt     *time.Time      `json:"redeemedAt,omitempty"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type FestivalRevenueResponse struct {
	FestivalID   uint            `json:"festivalId"`
	Title        string          `json:"title"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

type FestivalRatingResponse struct {
	FestivalID    uint    `json:"festivalId"`
	Title         string  `json:"title"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

type BusinessReportResponse struct {
	TopGrossingFestivals        []FestivalRevenueResponse `json:"topGrossingFestivals"`
	TotalRevenueThisYear        decimal.Decimal           `json:"totalRevenueThisYear"`
	TotalTicketsSoldThisYear    int                       `json:"totalTicketsSoldThisYear"`
	UserWithMostTickets         *UserResponse             `json:"userWithMostTickets"`
	UserWithMostTicketsCount    *int                      `json:"userWithMostTicketsCount"`
	TopFestivalsByAverageRating []FestivalRatingResponse  `json:"topFestivalsByAverageRating"`
}
