package store

import (
	"context"

	"github.com/shopspring/decimal"

	"shop-catalog-service/internal/domain"
)

// ListCategoriesParams holds parameters for listing categories.
type ListCategoriesParams struct {
	OrderBy   string // "title" (default) or "created_at"
	SortOrder string // "asc" or "desc"
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ListProductsParams holds parameters for listing products (pagination,
// filtering, sorting). Nil pointer fields impose no constraint; set fields
// combine with logical AND.
type ListProductsParams struct {
	Limit        int
	Offset       int
	MinPrice     *decimal.Decimal // inclusive lower bound on price
	MaxPrice     *decimal.Decimal // inclusive upper bound on price
	CategorySlug *string          // exact match on the related category's slug
	SearchTerm   *string          // case-insensitive substring match on name
	Query        *string          // free-text across name/description/category title
	IsAvailable  *bool
	SortBy       string // "name", "price", "stock_quantity" or "created_at"
	SortOrder    string // "asc" or "desc"
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) // Returns products and total count
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetRecentProducts(ctx context.Context, limit int) ([]domain.Product, error)
}

// ReviewStorer defines the database operations for product reviews.
// ListReviewsForProducts exists so list endpoints can attach reviews to a
// whole page of products with one query instead of one per product.
type ReviewStorer interface {
	CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error)
	ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error)
	ListReviewsForProducts(ctx context.Context, productIDs []int64) (map[int64][]domain.Review, error)
}

// UserStorer defines the database operations for admin accounts.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}
