package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category represents a taxonomy node in the catalog.
// The json tags correspond to the fields expected in API responses/requests.
type Category struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Product represents a single item in the catalog.
// Price uses decimal.Decimal rather than float64 so 2-fractional-digit
// currency values survive the round trip through the NUMERIC(10,2) column.
// CategoryTitle is filled in by the store from the joined category row; the
// API layer serializes it alongside the product.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int32           `json:"stock_quantity"`
	CategoryID    int64           `json:"category"`
	CategoryTitle string          `json:"-"`
	ImageURL      *string         `json:"image_url,omitempty"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Review is a rating plus optional comment left on a product. A reviewer
// (identified by name) can leave at most one review per product; the store
// enforces that with a unique index.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account that can authenticate against the admin API.
// PasswordHash is a bcrypt hash; the plaintext is never stored.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// AverageRating returns the arithmetic mean of the review ratings, or 0 when
// the slice is empty. The result is unrounded; callers round for display.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
