package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"shop-catalog-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound    = errors.New("store: category not found")
	ErrCategoryTitleExists = errors.New("store: category title already exists")
	ErrCategorySlugExists  = errors.New("store: category slug already exists")
	ErrCategoryInUse       = errors.New("store: category still has products attached")
	ErrProductNotFound     = errors.New("store: product not found")
	ErrReviewExists        = errors.New("store: reviewer already reviewed this product")
	ErrUserNotFound        = errors.New("store: user not found")
	ErrUsernameExists      = errors.New("store: username already exists")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore implements the Storer interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO catalog.categories (title, slug)
		VALUES ($1, $2)
		RETURNING id, title, slug, created_at;
	`
	row := s.db.QueryRowContext(ctx, query, category.Title, category.Slug)

	var createdCategory domain.Category
	err := row.Scan(
		&createdCategory.ID,
		&createdCategory.Title,
		&createdCategory.Slug,
		&createdCategory.CreatedAt,
	)
	if err != nil {
		if dupErr := categoryConflict(err); dupErr != nil {
			return nil, dupErr
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &createdCategory, nil
}

// categoryConflict maps a unique-violation on the categories natural keys
// (title, slug) to the matching sentinel, or returns nil for other errors.
func categoryConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return nil
	}
	if strings.Contains(pqErr.Constraint, "categories_title_key") || strings.Contains(pqErr.Detail, "Key (title)") {
		return ErrCategoryTitleExists
	}
	if strings.Contains(pqErr.Constraint, "categories_slug_key") || strings.Contains(pqErr.Detail, "Key (slug)") {
		return ErrCategorySlugExists
	}
	return nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, error) {
	orderColumn := "title"
	if params.OrderBy == "created_at" {
		orderColumn = "created_at"
	}
	sortOrder := "ASC"
	if strings.ToUpper(params.SortOrder) == "DESC" {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, title, slug, created_at
		FROM catalog.categories
		ORDER BY %s %s;
	`, orderColumn, sortOrder)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}

	return categories, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, title, slug, created_at
		FROM catalog.categories
		WHERE id = $1;
	`
	var category domain.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Title,
		&category.Slug,
		&category.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE catalog.categories
		SET title = $1, slug = $2
		WHERE id = $3
		RETURNING id, title, slug, created_at;
	`
	var updatedCategory domain.Category
	err := s.db.QueryRowContext(ctx, query, category.Title, category.Slug, category.ID).Scan(
		&updatedCategory.ID,
		&updatedCategory.Title,
		&updatedCategory.Slug,
		&updatedCategory.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if dupErr := categoryConflict(err); dupErr != nil {
			return nil, dupErr
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updatedCategory, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM catalog.categories WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
			// products.category_id is ON DELETE RESTRICT
			return ErrCategoryInUse
		}
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// --- ProductStorer Implementation ---

const productColumns = `p.id, p.name, p.description, p.price, p.stock_quantity, p.category_id, c.title, p.image_url, p.is_available, p.created_at, p.updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.CategoryID, &p.CategoryTitle, &p.ImageURL, &p.IsAvailable,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO catalog.products
			(name, description, price, stock_quantity, category_id, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.StockQuantity,
		product.CategoryID, product.ImageURL, product.IsAvailable,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
			// category_id references a row that does not exist
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}

	// Re-read through the category join so the response carries the title.
	return s.GetProductByID(ctx, id)
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) {
	var queryArgs []interface{}
	var whereClauses []string
	argID := 1

	if params.SearchTerm != nil && *params.SearchTerm != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.name ILIKE $%d", argID))
		queryArgs = append(queryArgs, "%"+*params.SearchTerm+"%")
		argID++
	}
	if params.Query != nil && *params.Query != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d OR c.title ILIKE $%d)", argID, argID+1, argID+2))
		q := "%" + *params.Query + "%"
		queryArgs = append(queryArgs, q, q, q)
		argID += 3
	}
	if params.CategorySlug != nil && *params.CategorySlug != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("c.slug = $%d", argID))
		queryArgs = append(queryArgs, *params.CategorySlug)
		argID++
	}
	if params.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price >= $%d", argID))
		queryArgs = append(queryArgs, *params.MinPrice)
		argID++
	}
	if params.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price <= $%d", argID))
		queryArgs = append(queryArgs, *params.MaxPrice)
		argID++
	}
	if params.IsAvailable != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.is_available = $%d", argID))
		queryArgs = append(queryArgs, *params.IsAvailable)
		argID++
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	fromClause := " FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id"

	countQuery := "SELECT COUNT(*)" + fromClause + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}

	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	sortColumn := "p.name" // Default sort
	allowedSortColumns := map[string]string{
		"name":           "p.name",
		"price":          "p.price",
		"stock_quantity": "p.stock_quantity",
		"created_at":     "p.created_at",
	}
	if col, ok := allowedSortColumns[strings.ToLower(params.SortBy)]; ok {
		sortColumn = col
	}

	sortOrder := "ASC" // Default order
	if strings.ToUpper(params.SortOrder) == "DESC" {
		sortOrder = "DESC"
	}

	dataQuery := fmt.Sprintf("SELECT %s%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		productColumns, fromClause, whereCondition, sortColumn, sortOrder, argID, argID+1)

	finalQueryArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, dataQuery, finalQueryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, params.Limit)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}

	return products, totalCount, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id
		WHERE p.id = $1;
	`, productColumns)
	var product domain.Product
	err := scanProduct(s.db.QueryRowContext(ctx, query, id), &product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return &product, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE catalog.products
		SET name = $1, description = $2, price = $3, stock_quantity = $4,
			category_id = $5, image_url = $6, is_available = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING id;
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.StockQuantity,
		product.CategoryID, product.ImageURL, product.IsAvailable, product.ID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}

	return s.GetProductByID(ctx, id)
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	// reviews.product_id is ON DELETE CASCADE, so attached reviews go with it.
	query := `DELETE FROM catalog.products WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) GetRecentProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		return []domain.Product{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id
		WHERE p.is_available = TRUE
		ORDER BY p.created_at DESC
		LIMIT $1;
	`, productColumns)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: GetRecentProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("store: GetRecentProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: GetRecentProducts iteration error: %w", err)
	}
	return products, nil
}

// --- ReviewStorer Implementation ---

func (s *PostgresStore) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	query := `
		INSERT INTO catalog.reviews (product_id, name, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, name, rating, comment, created_at;
	`
	row := s.db.QueryRowContext(ctx, query, review.ProductID, review.Name, review.Rating, review.Comment)

	var createdReview domain.Review
	err := row.Scan(
		&createdReview.ID,
		&createdReview.ProductID,
		&createdReview.Name,
		&createdReview.Rating,
		&createdReview.Comment,
		&createdReview.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pgUniqueViolation:
				// (product_id, name) natural key
				return nil, ErrReviewExists
			case pgForeignKeyViolation:
				return nil, ErrProductNotFound
			}
		}
		return nil, fmt.Errorf("store: CreateReview failed to scan row: %w", err)
	}
	return &createdReview, nil
}

func (s *PostgresStore) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	query := `
		SELECT id, product_id, name, rating, comment, created_at
		FROM catalog.reviews
		WHERE product_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: ListReviewsByProduct failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Name, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListReviewsByProduct failed to scan review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListReviewsByProduct iteration error: %w", err)
	}
	return reviews, nil
}

// ListReviewsForProducts fetches the reviews for every product in productIDs
// with a single query and groups them by product, newest first. This is what
// keeps the product list endpoint at one review query per page.
func (s *PostgresStore) ListReviewsForProducts(ctx context.Context, productIDs []int64) (map[int64][]domain.Review, error) {
	grouped := make(map[int64][]domain.Review, len(productIDs))
	if len(productIDs) == 0 {
		return grouped, nil
	}

	query := `
		SELECT id, product_id, name, rating, comment, created_at
		FROM catalog.reviews
		WHERE product_id = ANY($1)
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("store: ListReviewsForProducts failed to query reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Name, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListReviewsForProducts failed to scan review row: %w", err)
		}
		grouped[r.ProductID] = append(grouped[r.ProductID], r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListReviewsForProducts iteration error: %w", err)
	}
	return grouped, nil
}

// --- UserStorer Implementation ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO catalog.users (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, is_admin, created_at;
	`
	row := s.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.IsAdmin)

	var createdUser domain.User
	err := row.Scan(
		&createdUser.ID,
		&createdUser.Username,
		&createdUser.PasswordHash,
		&createdUser.IsAdmin,
		&createdUser.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return &createdUser, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, password_hash, is_admin, created_at
		FROM catalog.users
		WHERE username = $1;
	`
	var user domain.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByUsername failed to scan row: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM catalog.users WHERE username = $1);`
	if err := s.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: UsernameExists failed to scan row: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
		return nil
	}
	return nil
}
