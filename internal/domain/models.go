package domain

import (
	"errors"
)

var (
	ErrLoginRequired     = errors.New("login_required")
	ErrNotFound          = errors.New("resource_not_found")
	ErrTimeout           = errors.New("downstream_timeout")
	ErrUnavailable       = errors.New("downstream_unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidActionKind = errors.New("invalid_action_kind")
)

// Identity is the advisory user id mined from the bearer token.
// The zero value means no identity.
type Identity string

const Anonymous Identity = ""

func (i Identity) IsZero() bool { return i == Anonymous }

func (i Identity) String() string { return string(i) }

type Product struct {
	ProductID       int     `json:"product_id"`
	ProductName     string  `json:"product_name"`
	Category        string  `json:"category"`
	Subcategory     string  `json:"subcategory"`
	Price           float64 `json:"price"`
	QuantityInStock int     `json:"quantity_in_stock"`
	Manufacturer    string  `json:"manufacturer"`
	Description     string  `json:"description"`
	Weight          float64 `json:"weight"`
	Dimensions      string  `json:"dimensions"`
	ReleaseDate     string  `json:"release_date"`
	Rating          float64 `json:"rating"`
	IsFeatured      bool    `json:"is_featured"`
	IsOnSale        bool    `json:"is_on_sale"`
	SalePrice       float64 `json:"sale_price"`
	ImageURL        string  `json:"image_url"`
}

// ProductPage is the backend's paginated list envelope.
type ProductPage struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Products []Product `json:"products"`
}

type InteractionRecord struct {
	ID              int        `json:"id,omitempty"`
	UserID          int        `json:"user_id,omitempty"`
	ProductID       int        `json:"product_id"`
	InteractionType ActionKind `json:"interaction_type"`
	Timestamp       Timestamp  `json:"timestamp"`
}

type UserHistory struct {
	UserID  int                 `json:"user_id"`
	History []InteractionRecord `json:"history"`
}

// InteractionRequest is the body posted to /view, /like and /purchase.
type InteractionRequest struct {
	UserID    string `json:"user_id"`
	ProductID int    `json:"product_id"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoadStatus is the lifecycle of a data-loading view.
type LoadStatus string

const (
	LoadLoading LoadStatus = "loading"
	LoadReady   LoadStatus = "ready"
	LoadFailed  LoadStatus = "failed"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}
