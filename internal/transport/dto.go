package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/shop-admin/internal/models"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	Details    any         `json:"details,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *UserSummary `json:"user"`
}

type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
	Avatar string    `json:"avatar,omitempty"`
}

func NewUserSummary(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		Avatar: u.Avatar,
	}
}

type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Avatar *string `json:"avatar"`
}

type CreateProductRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SKU         string    `json:"sku"`
	Price       int64     `json:"price"`
	Cost        int64     `json:"cost"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image"`
	CategoryID  uuid.UUID `json:"category_id"`
}

type PatchProductRequest struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	SKU         *string               `json:"sku"`
	Price       *int64                `json:"price"`
	Cost        *int64                `json:"cost"`
	Stock       *int                  `json:"stock"`
	Image       *string               `json:"image"`
	CategoryID  *uuid.UUID            `json:"category_id"`
	Status      *models.ProductStatus `json:"status"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PatchCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CreateReviewRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
}

type ModerateReviewRequest struct {
	Status models.ReviewStatus `json:"status"`
}

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"`
	ShippingAddress ShippingAddress   `json:"shipping_address"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Product   *models.Product `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     int64           `json:"price"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	Customer        *UserSummary        `json:"customer,omitempty"`
	Status          models.OrderStatus  `json:"status"`
	Total           int64               `json:"total"`
	ShippingAddress ShippingAddress     `json:"shipping_address"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	ItemCount       int                 `json:"item_count"`
	CreatedAt       time.Time           `json:"created_at"`
}

// NewOrderResponse rebuilds the nested shipping address from the flat
// snapshot columns and attaches item/customer projections.
func NewOrderResponse(o *models.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Product:   item.Product,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return &OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Customer:    NewUserSummary(o.Customer),
		Status:      o.Status,
		Total:       o.Total,
		ShippingAddress: ShippingAddress{
			Street:     o.ShippingStreet,
			City:       o.ShippingCity,
			State:      o.ShippingState,
			PostalCode: o.ShippingPostalCode,
			Country:    o.ShippingCountry,
		},
		Items:     items,
		ItemCount: len(o.Items),
		CreatedAt: o.CreatedAt,
	}
}

func NewOrderResponses(orders []models.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}
