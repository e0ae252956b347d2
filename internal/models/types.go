package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The storefront API speaks plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

type Category string

const (
	CategorySneakers Category = "sneakers"
	CategoryGlow     Category = "glow"
	CategoryLamps    Category = "lamps"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySneakers, CategoryGlow, CategoryLamps:
		return true
	}
	return false
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Popularity  float64         `json:"popularity"`
	Gallery     []string        `json:"gallery"`
}

// ProductInput is the admin payload for creating or editing a product.
type ProductInput struct {
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Gallery     []string        `json:"gallery"`
}

// ParseGallery splits a comma-separated list of image URLs, dropping blanks.
func ParseGallery(raw string) []string {
	gallery := []string{}
	for _, part := range strings.Split(raw, ",") {
		if url := strings.TrimSpace(part); url != "" {
			gallery = append(gallery, url)
		}
	}
	return gallery
}

type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal is price × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Offer struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	DiscountPercentage float64 `json:"discountPercentage"`
	EndDate            string  `json:"endDate"`
}

type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type ShippingDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentPayNow PaymentMethod = "Pay Now"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentPayNow
}

type OrderRequest struct {
	CartItems       []CartLine      `json:"cartItems"`
	ShippingDetails ShippingDetails `json:"shippingDetails"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
}

type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

type Notification struct {
	ID        uint64           `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
}
