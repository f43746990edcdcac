package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Demo catalog content for local development and demos.
var seedProductNames = []string{
	"Wireless Mechanical Keyboard", "1TB NVMe SSD", "Noise Cancelling Headphones",
	"4K Curved Monitor", "Ergonomic Office Chair", "Smart Home Hub",
	"High-Speed Blender", "Stainless Steel Water Bottle", "Portable Power Bank",
	"Digital Drawing Tablet", "Professional DSLR Camera", "Hiking Backpack 50L",
	"Organic Cotton T-Shirt", "Minimalist Leather Wallet", "Bluetooth Speaker",
}

var seedCategoryTitles = []string{
	"Electronics", "Home & Kitchen", "Fashion", "Outdoors",
}

// Slugify lowercases a title and reduces it to a URL-safe slug
// ("Home & Kitchen" -> "home-kitchen").
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func seedDescription(name string) string {
	return fmt.Sprintf("Experience the ultimate performance with the new %s. "+
		"Featuring cutting-edge technology and a sleek, durable design, it's perfect "+
		"for both professional use and everyday tasks. Get yours today!", name)
}

func seedComment(rating int) string {
	switch {
	case rating >= 4:
		return "Excellent product, highly recommend!"
	case rating == 3:
		return "It's decent, met expectations."
	default:
		return "Needs improvement, especially in features."
	}
}

// SeedDemoData wipes the catalog tables and repopulates them with demo
// categories, `items` products and 0-5 reviews per product. Everything runs
// inside one transaction so a failure never leaves a partial catalog behind.
func (s *PostgresStore) SeedDemoData(ctx context.Context, items int) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return s.seedDemoData(ctx, rng, items)
}

func (s *PostgresStore) seedDemoData(ctx context.Context, rng *rand.Rand, items int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: SeedDemoData failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after a successful commit

	for _, table := range []string{"catalog.reviews", "catalog.products", "catalog.categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return fmt.Errorf("store: SeedDemoData failed to clear %s: %w", table, err)
		}
	}

	// Categories, one multi-row insert.
	catValues := make([]string, 0, len(seedCategoryTitles))
	catArgs := make([]interface{}, 0, len(seedCategoryTitles)*2)
	for i, title := range seedCategoryTitles {
		catValues = append(catValues, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		catArgs = append(catArgs, title, Slugify(title))
	}
	catQuery := "INSERT INTO catalog.categories (title, slug) VALUES " +
		strings.Join(catValues, ", ") + " RETURNING id"
	catRows, err := tx.QueryContext(ctx, catQuery, catArgs...)
	if err != nil {
		return fmt.Errorf("store: SeedDemoData failed to insert categories: %w", err)
	}
	var categoryIDs []int64
	for catRows.Next() {
		var id int64
		if err := catRows.Scan(&id); err != nil {
			catRows.Close()
			return fmt.Errorf("store: SeedDemoData failed to scan category id: %w", err)
		}
		categoryIDs = append(categoryIDs, id)
	}
	if err := catRows.Err(); err != nil {
		catRows.Close()
		return fmt.Errorf("store: SeedDemoData category insert iteration error: %w", err)
	}
	catRows.Close()

	// Products, one multi-row insert.
	prodValues := make([]string, 0, items)
	prodArgs := make([]interface{}, 0, items*7)
	for i := 0; i < items; i++ {
		name := fmt.Sprintf("%s #%d", seedProductNames[rng.Intn(len(seedProductNames))], i+1)
		price := decimal.NewFromFloat(9.99 + rng.Float64()*990).Round(2)
		stock := int32(rng.Intn(501))
		imageURL := fmt.Sprintf("https://placehold.co/400x300?text=%s", strings.ReplaceAll(name, " ", "+"))

		base := len(prodArgs)
		prodValues = append(prodValues, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		prodArgs = append(prodArgs,
			name, seedDescription(name), price, stock,
			categoryIDs[rng.Intn(len(categoryIDs))], imageURL, stock > 0,
		)
	}
	prodQuery := "INSERT INTO catalog.products " +
		"(name, description, price, stock_quantity, category_id, image_url, is_available) VALUES " +
		strings.Join(prodValues, ", ") + " RETURNING id"
	prodRows, err := tx.QueryContext(ctx, prodQuery, prodArgs...)
	if err != nil {
		return fmt.Errorf("store: SeedDemoData failed to insert products: %w", err)
	}
	var productIDs []int64
	for prodRows.Next() {
		var id int64
		if err := prodRows.Scan(&id); err != nil {
			prodRows.Close()
			return fmt.Errorf("store: SeedDemoData failed to scan product id: %w", err)
		}
		productIDs = append(productIDs, id)
	}
	if err := prodRows.Err(); err != nil {
		prodRows.Close()
		return fmt.Errorf("store: SeedDemoData product insert iteration error: %w", err)
	}
	prodRows.Close()

	// Reviews, one multi-row insert across all products.
	var reviewValues []string
	var reviewArgs []interface{}
	for _, productID := range productIDs {
		numReviews := rng.Intn(6)
		for j := 0; j < numReviews; j++ {
			rating := rng.Intn(5) + 1
			base := len(reviewArgs)
			reviewValues = append(reviewValues, fmt.Sprintf("($%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4))
			reviewArgs = append(reviewArgs,
				productID, fmt.Sprintf("User%d_%d", j+1, productID), rating, seedComment(rating),
			)
		}
	}
	if len(reviewValues) > 0 {
		reviewQuery := "INSERT INTO catalog.reviews (product_id, name, rating, comment) VALUES " +
			strings.Join(reviewValues, ", ")
		if _, err := tx.ExecContext(ctx, reviewQuery, reviewArgs...); err != nil {
			return fmt.Errorf("store: SeedDemoData failed to insert reviews: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: SeedDemoData failed to commit: %w", err)
	}
	return nil
}
