package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Country struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:50;not null;uniqueIndex"`
	Flag      []byte
	CreatedAt time.Time
}

type City struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;uniqueIndex:idx_cities_name_country"`
	CountryID uint   `gorm:"not null;uniqueIndex:idx_cities_name_country"`
	CreatedAt time.Time

	Country *Country `gorm:"foreignKey:CountryID"`
}

type Category struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:50;not null;uniqueIndex"`
	Description string `gorm:"size:200"`
	IsActive    bool   `gorm:"not null"`
	CreatedAt   time.Time

	Subcategories []Subcategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

type Subcategory struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:50;not null;uniqueIndex:idx_subcategories_name_category"`
	Description string `gorm:"size:200"`
	IsActive    bool   `gorm:"not null"`
	CategoryID  uint   `gorm:"not null;uniqueIndex:idx_subcategories_name_category"`
	CreatedAt   time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
}

type Organizer struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"size:100;not null;uniqueIndex"`
	ContactInfo *string `gorm:"size:200"`
	IsActive    bool    `gorm:"not null"`
	CreatedAt   time.Time
}

// TicketType multiplies Festival.BasePrice, e.g. 1.0 standard, 1.5 VIP.
type TicketType struct {
	ID              uint            `gorm:"primaryKey"`
	Name            string          `gorm:"size:50;not null;uniqueIndex"`
	Description     *string         `gorm:"size:200"`
	PriceMultiplier decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	IsActive        bool            `gorm:"not null"`
	CreatedAt       time.Time
}

type Festival struct {
	ID            uint            `gorm:"primaryKey"`
	Title         string          `gorm:"size:100;not null"`
	StartDate     time.Time       `gorm:"not null"`
	EndDate       time.Time       `gorm:"not null"`
	BasePrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Location      *string         `gorm:"size:100"`
	IsActive      bool            `gorm:"not null"`
	CityID        uint            `gorm:"not null;index"`
	SubcategoryID uint            `gorm:"not null;index"`
	OrganizerID   uint            `gorm:"not null;index"`
	CreatedAt     time.Time

	// Relationships
	City        *City        `gorm:"foreignKey:CityID"`
	Subcategory *Subcategory `gorm:"foreignKey:SubcategoryID"`
	Organizer   *Organizer   `gorm:"foreignKey:OrganizerID"`
	Assets      []Asset      `gorm:"foreignKey:FestivalID;constraint:OnDelete:CASCADE"`
	Reviews     []Review     `gorm:"foreignKey:FestivalID;constraint:OnDelete:CASCADE"`
	Tickets     []Ticket     `gorm:"foreignKey:FestivalID;constraint:OnDelete:CASCADE"`
}

type Asset struct {
	ID            uint   `gorm:"primaryKey"`
	FileName      string `gorm:"size:100;not null"`
	ContentType   string `gorm:"size:100;not null"`
	Base64Content string `gorm:"type:text;not null"`
	FestivalID    uint   `gorm:"not null;index"`
	CreatedAt     time.Time

	Festival *Festival `gorm:"foreignKey:FestivalID"`
}

type Review struct {
	ID         uint    `gorm:"primaryKey"`
	Rating     int     `gorm:"not null"`
	Comment    *string `gorm:"size:1000"`
	FestivalID uint    `gorm:"not null;index"`
	UserID     uint    `gorm:"not null;index"`
	CreatedAt  time.Time

	Festival *Festival `gorm:"foreignKey:FestivalID"`
	User     *User     `gorm:"foreignKey:UserID"`
}

type Ticket struct {
	ID            uint            `gorm:"primaryKey"`
	FestivalID    uint            `gorm:"not null;index"`
	UserID        uint            `gorm:"not null;index"`
	TicketTypeID  uint            `gorm:"not null;index"`
	FinalPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	GeneratedCode string          `gorm:"size:100;not null;uniqueIndex"`
	IsRedeemed    bool            `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"index"`
	RedeemedAt    *time.Time

	Festival   *Festival   `gorm:"foreignKey:FestivalID"`
	User       *User       `gorm:"foreignKey:UserID"`
	TicketType *TicketType `gorm:"foreignKey:TicketTypeID"`
}

// Identity entities below are owned by the account service; this module only
// reads them and seeds them for local development.

type Gender struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:50;not null;uniqueIndex"`
}

type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:50;not null;uniqueIndex"`
	Description string `gorm:"size:200"`
	IsActive    bool   `gorm:"not null"`
	CreatedAt   time.Time

	UserRoles []UserRole `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

type User struct {
	ID        uint   `gorm:"primaryKey"`
	FirstName string `gorm:"size:50;not null"`
	LastName  string `gorm:"size:50;not null"`
	Email     string `gorm:"size:100;not null;uniqueIndex"`
	Username  string `gorm:"size:100;not null;uniqueIndex"`
	IsActive  bool   `gorm:"not null"`
	GenderID  *uint
	CityID    *uint
	CreatedAt time.Time

	Gender    *Gender    `gorm:"foreignKey:GenderID"`
	City      *City      `gorm:"foreignKey:CityID"`
	UserRoles []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// UserFullNameSQL is the SQL form of User.FullName over the users table.
const UserFullNameSQL = "users.first_name || ' ' || users.last_name"

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type UserRole struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"not null;uniqueIndex:idx_user_roles_user_role"`
	RoleID       uint `gorm:"not null;uniqueIndex:idx_user_roles_user_role"`
	DateAssigned time.Time

	User *User `gorm:"foreignKey:UserID"`
	Role *Role `gorm:"foreignKey:RoleID"`
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Gender{},
		&Country{},
		&City{},
		&Role{},
		&User{},
		&UserRole{},
		&Category{},
		&Subcategory{},
		&Organizer{},
		&TicketType{},
		&Festival{},
		&Asset{},
		&Review{},
		&Ticket{},
	)
}
