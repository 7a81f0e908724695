package models

import "time"

// BaseSearch carries paging options shared by every list endpoint.
// Page is zero-based.
type BaseSearch struct {
	Page              *int `form:"page" binding:"omitempty,min=0"`
	PageSize          *int `form:"pageSize" binding:"omitempty,min=1,max=1000"`
	IncludeTotalCount bool `form:"includeTotalCount"`
	RetrieveAll       bool `form:"retrieveAll"`
}

func (b BaseSearch) Paging() BaseSearch { return b }

type CountrySearch struct {
	BaseSearch
	Name string `form:"name"`
}

type CitySearch struct {
	BaseSearch
	Name      string `form:"name"`
	CountryID *uint  `form:"countryId"`
}

type CategorySearch struct {
	BaseSearch
	Name     string `form:"name"`
	IsActive *bool  `form:"isActive"`
}

type SubcategorySearch struct {
	BaseSearch
	Name       string `form:"name"`
	IsActive   *bool  `form:"isActive"`
	CategoryID *uint  `form:"categoryId"`
}

type OrganizerSearch struct {
	BaseSearch
	Name     string `form:"name"`
	IsActive *bool  `form:"isActive"`
}

type TicketTypeSearch struct {
	BaseSearch
	Name     string `form:"name"`
	IsActive *bool  `form:"isActive"`
}

type FestivalSearch struct {
	BaseSearch
	Title          string     `form:"title"`
	CityID         *uint      `form:"cityId"`
	CityName       string     `form:"cityName"`
	SubcategoryID  *uint      `form:"subcategoryId"`
	OrganizerID    *uint      `form:"organizerId"`
	StartDateFrom  *time.Time `form:"startDateFrom" time_format:"2006-01-02"`
	StartDateTo    *time.Time `form:"startDateTo" time_format:"2006-01-02"`
	IsActive       *bool      `form:"isActive"`
	AttendedByUser *uint      `form:"attendedByUserId"`

	// WithoutAssets skips loading asset payloads.
	WithoutAssets bool `form:"-"`
}

type AssetSearch struct {
	BaseSearch
	FestivalID  *uint  `form:"festivalId"`
	FileName    string `form:"fileName"`
	ContentType string `form:"contentType"`
}

type ReviewSearch struct {
	BaseSearch
	FestivalID    *uint  `form:"festivalId"`
	FestivalTitle string `form:"festivalTitle"`
	UserID        *uint  `form:"userId"`
	UserFullName  string `form:"userFullName"`
	MinRating     *int   `form:"minRating"`
	MaxRating     *int   `form:"maxRating"`
}

type TicketSearch struct {
	BaseSearch
	FestivalID    *uint  `form:"festivalId"`
	UserID        *uint  `form:"userId"`
	UserFullName  string `form:"userFullName"`
	FestivalTitle string `form:"festivalTitle"`
	TicketTypeID  *uint  `form:"ticketTypeId"`
	IsRedeemed    *bool  `form:"isRedeemed"`
	Code          string `form:"code"`
}
