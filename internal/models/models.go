package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusInactive   ProductStatus = "INACTIVE"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether no further status transition is permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	Name         string    `gorm:"not null"              json:"name"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Price and Cost are minor units (cents).
type Product struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"          json:"id"`
	Name        string        `gorm:"not null"                      json:"name"`
	Description string        `json:"description,omitempty"`
	SKU         string        `gorm:"uniqueIndex;default:null"      json:"sku,omitempty"`
	Price       int64         `gorm:"not null;check:price > 0"      json:"price"`
	Cost        int64         `json:"cost"`
	Stock       int           `gorm:"not null;check:stock >= 0"     json:"stock"`
	Status      ProductStatus `gorm:"not null;default:ACTIVE"       json:"status"`
	Image       string        `json:"image,omitempty"`
	CategoryID  uuid.UUID     `gorm:"type:uuid;index;not null"      json:"category_id"`
	Category    *Category     `json:"category,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Shipping columns are a denormalized snapshot of the address at checkout,
// not a reference to anything mutable. Total is fixed at creation time.
type Order struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey"     json:"id"`
	OrderNumber        string      `gorm:"uniqueIndex;not null"     json:"order_number"`
	CustomerID         uuid.UUID   `gorm:"type:uuid;index;not null" json:"customer_id"`
	Customer           *User       `json:"customer,omitempty"`
	Status             OrderStatus `gorm:"not null;default:PENDING" json:"status"`
	Total              int64       `gorm:"not null"                 json:"total"`
	ShippingStreet     string      `gorm:"not null"                 json:"-"`
	ShippingCity       string      `gorm:"not null"                 json:"-"`
	ShippingState      string      `gorm:"not null"                 json:"-"`
	ShippingPostalCode string      `gorm:"not null"                 json:"-"`
	ShippingCountry    string      `gorm:"not null"                 json:"-"`
	Items              []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Price is the product price at order time, never re-read afterwards.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     int64     `gorm:"not null"                 json:"price"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Review struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey"                             json:"id"`
	ProductID  uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_review_once"   json:"product_id"`
	Product    *Product     `json:"product,omitempty"`
	CustomerID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_review_once"   json:"customer_id"`
	Customer   *User        `json:"customer,omitempty"`
	Rating     int          `gorm:"not null;check:rating BETWEEN 1 AND 5"            json:"rating"`
	Comment    string       `json:"comment,omitempty"`
	Status     ReviewStatus `gorm:"not null;default:PENDING"                         json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Review{},
	)
}
