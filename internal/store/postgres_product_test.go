package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-catalog-service/internal/domain"
)

func productTestRows(products ...domain.Product) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "price", "stock_quantity",
		"category_id", "title", "image_url", "is_available", "created_at", "updated_at",
	})
	for _, p := range products {
		rows.AddRow(
			p.ID, p.Name, p.Description, p.Price.String(), p.StockQuantity,
			p.CategoryID, p.CategoryTitle, p.ImageURL, p.IsAvailable, p.CreatedAt, p.UpdatedAt,
		)
	}
	return rows
}

func getProductByIDQuery() string {
	return regexp.QuoteMeta(fmt.Sprintf(`
		SELECT %s
		FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id
		WHERE p.id = $1;
	`, productColumns))
}

func TestPostgresStore_GetProductByID_Found(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	expectedProduct := domain.Product{
		ID:            int64(1),
		Name:          "Wireless Mouse",
		Description:   "A mouse without wires",
		Price:         decimal.RequireFromString("24.99"),
		StockQuantity: 12,
		CategoryID:    int64(3),
		CategoryTitle: "Electronics",
		ImageURL:      PtrTo("https://example.com/mouse.png"),
		IsAvailable:   true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectQuery(getProductByIDQuery()).
		WithArgs(expectedProduct.ID).
		WillReturnRows(productTestRows(expectedProduct))

	product, err := store.GetProductByID(context.Background(), expectedProduct.ID)

	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, expectedProduct.ID, product.ID)
	assert.Equal(t, expectedProduct.Name, product.Name)
	assert.True(t, expectedProduct.Price.Equal(product.Price), "Price should survive the round trip")
	assert.Equal(t, expectedProduct.CategoryTitle, product.CategoryTitle)
	require.NotNil(t, product.ImageURL)
	assert.Equal(t, *expectedProduct.ImageURL, *product.ImageURL)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	productID := int64(99)
	mock.ExpectQuery(getProductByIDQuery()).WithArgs(productID).WillReturnError(sql.ErrNoRows)

	product, err := store.GetProductByID(context.Background(), productID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")
	assert.Nil(t, product)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	productToCreate := &domain.Product{
		Name:          "Mechanical Keyboard",
		Description:   "Clacky",
		Price:         decimal.RequireFromString("89.50"),
		StockQuantity: 5,
		CategoryID:    int64(3),
		IsAvailable:   true,
	}
	expectedID := int64(7)

	insertQuery := regexp.QuoteMeta(`
		INSERT INTO catalog.products
			(name, description, price, stock_quantity, category_id, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`)

	mock.ExpectQuery(insertQuery).
		WithArgs(
			productToCreate.Name, productToCreate.Description, productToCreate.Price,
			productToCreate.StockQuantity, productToCreate.CategoryID,
			productToCreate.ImageURL, productToCreate.IsAvailable,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(expectedID))

	// CreateProduct re-reads through the join to pick up the category title.
	persisted := *productToCreate
	persisted.ID = expectedID
	persisted.CategoryTitle = "Electronics"
	persisted.CreatedAt = now
	persisted.UpdatedAt = now
	mock.ExpectQuery(getProductByIDQuery()).
		WithArgs(expectedID).
		WillReturnRows(productTestRows(persisted))

	createdProduct, err := store.CreateProduct(context.Background(), productToCreate)

	require.NoError(t, err)
	require.NotNil(t, createdProduct)
	assert.Equal(t, expectedID, createdProduct.ID)
	assert.Equal(t, "Electronics", createdProduct.CategoryTitle)
	assert.True(t, productToCreate.Price.Equal(createdProduct.Price))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProduct_UnknownCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	productToCreate := &domain.Product{
		Name:        "Orphan Product",
		Description: "No home",
		Price:       decimal.RequireFromString("10.00"),
		CategoryID:  int64(999),
		IsAvailable: true,
	}

	insertQuery := regexp.QuoteMeta(`
		INSERT INTO catalog.products
			(name, description, price, stock_quantity, category_id, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`)

	pqErr := &pq.Error{Code: "23503", Constraint: "products_category_id_fkey"}
	mock.ExpectQuery(insertQuery).
		WithArgs(
			productToCreate.Name, productToCreate.Description, productToCreate.Price,
			productToCreate.StockQuantity, productToCreate.CategoryID,
			productToCreate.ImageURL, productToCreate.IsAvailable,
		).
		WillReturnError(pqErr)

	createdProduct, err := store.CreateProduct(context.Background(), productToCreate)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategoryNotFound), "Error should be ErrCategoryNotFound")
	assert.Nil(t, createdProduct)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_NoFilters(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	params := ListProductsParams{Limit: 12, Offset: 0}

	countQuery := regexp.QuoteMeta(`SELECT COUNT(*) FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id`)
	mock.ExpectQuery(countQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	dataQuery := regexp.QuoteMeta(fmt.Sprintf(
		"SELECT %s FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id ORDER BY p.name ASC LIMIT $1 OFFSET $2",
		productColumns,
	))
	products := []domain.Product{
		{ID: 1, Name: "Desk Lamp", Description: "Bright", Price: decimal.RequireFromString("15.00"), CategoryID: 2, CategoryTitle: "Home", IsAvailable: true, CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "Office Chair", Description: "Comfy", Price: decimal.RequireFromString("120.00"), CategoryID: 2, CategoryTitle: "Home", IsAvailable: true, CreatedAt: now, UpdatedAt: now},
	}
	mock.ExpectQuery(dataQuery).
		WithArgs(params.Limit, params.Offset).
		WillReturnRows(productTestRows(products...))

	listedProducts, totalCount, err := store.ListProducts(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 2, totalCount)
	require.Len(t, listedProducts, 2)
	assert.Equal(t, "Desk Lamp", listedProducts[0].Name)
	assert.Equal(t, "Office Chair", listedProducts[1].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_WithFilters(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	minPrice := decimal.RequireFromString("10.00")
	maxPrice := decimal.RequireFromString("100.00")
	params := ListProductsParams{
		Limit:        12,
		Offset:       12,
		CategorySlug: PtrTo("electronics"),
		MinPrice:     &minPrice,
		MaxPrice:     &maxPrice,
		IsAvailable:  PtrTo(true),
		SortBy:       "price",
		SortOrder:    "desc",
	}

	whereCondition := ` WHERE c.slug = $1 AND p.price >= $2 AND p.price <= $3 AND p.is_available = $4`

	countQuery := regexp.QuoteMeta(
		`SELECT COUNT(*) FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id` + whereCondition,
	)
	mock.ExpectQuery(countQuery).
		WithArgs(*params.CategorySlug, minPrice, maxPrice, *params.IsAvailable).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))

	dataQuery := regexp.QuoteMeta(fmt.Sprintf(
		"SELECT %s FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id%s ORDER BY p.price DESC LIMIT $5 OFFSET $6",
		productColumns, whereCondition,
	))
	product := domain.Product{
		ID: 9, Name: "USB Hub", Description: "Many ports",
		Price: decimal.RequireFromString("35.00"), CategoryID: 3, CategoryTitle: "Electronics",
		IsAvailable: true, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery(dataQuery).
		WithArgs(*params.CategorySlug, minPrice, maxPrice, *params.IsAvailable, params.Limit, params.Offset).
		WillReturnRows(productTestRows(product))

	listedProducts, totalCount, err := store.ListProducts(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 13, totalCount)
	require.Len(t, listedProducts, 1)
	assert.Equal(t, "USB Hub", listedProducts[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_SearchTerm(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	params := ListProductsParams{Limit: 12, SearchTerm: PtrTo("lamp")}

	countQuery := regexp.QuoteMeta(
		`SELECT COUNT(*) FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id WHERE p.name ILIKE $1`,
	)
	mock.ExpectQuery(countQuery).
		WithArgs("%lamp%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// A zero count short-circuits before the data query.
	listedProducts, totalCount, err := store.ListProducts(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 0, totalCount)
	assert.Empty(t, listedProducts)
	assert.NotNil(t, listedProducts, "Empty result should be a slice, not nil")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_BroadQuery(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	params := ListProductsParams{Limit: 12, Query: PtrTo("desk")}

	countQuery := regexp.QuoteMeta(
		`SELECT COUNT(*) FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id WHERE (p.name ILIKE $1 OR p.description ILIKE $2 OR c.title ILIKE $3)`,
	)
	mock.ExpectQuery(countQuery).
		WithArgs("%desk%", "%desk%", "%desk%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, totalCount, err := store.ListProducts(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 0, totalCount)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	productToUpdate := &domain.Product{
		ID:          int64(99),
		Name:        "Ghost Product",
		Description: "Vanished",
		Price:       decimal.RequireFromString("1.00"),
		CategoryID:  int64(1),
	}

	updateQuery := regexp.QuoteMeta(`
		UPDATE catalog.products
		SET name = $1, description = $2, price = $3, stock_quantity = $4,
			category_id = $5, image_url = $6, is_available = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING id;
	`)

	mock.ExpectQuery(updateQuery).
		WithArgs(
			productToUpdate.Name, productToUpdate.Description, productToUpdate.Price,
			productToUpdate.StockQuantity, productToUpdate.CategoryID,
			productToUpdate.ImageURL, productToUpdate.IsAvailable, productToUpdate.ID,
		).
		WillReturnError(sql.ErrNoRows)

	_, err := store.UpdateProduct(context.Background(), productToUpdate)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_Success(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	productID := int64(1)
	query := regexp.QuoteMeta(`DELETE FROM catalog.products WHERE id = $1;`)

	mock.ExpectExec(query).WithArgs(productID).WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DeleteProduct(context.Background(), productID)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	productID := int64(99)
	query := regexp.QuoteMeta(`DELETE FROM catalog.products WHERE id = $1;`)

	mock.ExpectExec(query).WithArgs(productID).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(context.Background(), productID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecentProducts(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	limit := 5

	query := regexp.QuoteMeta(fmt.Sprintf(`
		SELECT %s
		FROM catalog.products p JOIN catalog.categories c ON c.id = p.category_id
		WHERE p.is_available = TRUE
		ORDER BY p.created_at DESC
		LIMIT $1;
	`, productColumns))

	products := []domain.Product{
		{ID: 4, Name: "Newest", Description: "Just in", Price: decimal.RequireFromString("9.99"), CategoryID: 1, CategoryTitle: "Misc", IsAvailable: true, CreatedAt: now, UpdatedAt: now},
		{ID: 3, Name: "Older", Description: "Been here", Price: decimal.RequireFromString("8.99"), CategoryID: 1, CategoryTitle: "Misc", IsAvailable: true, CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
	}
	mock.ExpectQuery(query).WithArgs(limit).WillReturnRows(productTestRows(products...))

	recentProducts, err := store.GetRecentProducts(context.Background(), limit)

	require.NoError(t, err)
	require.Len(t, recentProducts, 2)
	assert.Equal(t, "Newest", recentProducts[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecentProducts_NonPositiveLimit(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	recentProducts, err := store.GetRecentProducts(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, recentProducts)

	require.NoError(t, mock.ExpectationsWereMet())
}
