package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/store"
)

// productPageSize is the fixed number of products per list page.
const productPageSize = 12

// HTTPHandler holds dependencies for the catalog HTTP handlers.
type HTTPHandler struct {
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	reviewStore   store.ReviewStorer
	requireAdmin  func(http.Handler) http.Handler
	validate      *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies. requireAdmin
// guards the write endpoints; pass a pass-through in tests.
func NewHTTPHandler(
	cs store.CategoryStorer,
	ps store.ProductStorer,
	rs store.ReviewStorer,
	requireAdmin func(http.Handler) http.Handler,
) *HTTPHandler {
	return &HTTPHandler{
		categoryStore: cs,
		productStore:  ps,
		reviewStore:   rs,
		requireAdmin:  requireAdmin,
		validate:      newValidator(),
	}
}

// newValidator builds a validator that reports json field names, so the
// field-level error map speaks the API's language rather than Go's.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses. Fields is
// populated for validation failures, keyed by the offending field name.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithFieldError(w http.ResponseWriter, field, reason string) {
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  "Validation failed",
		Fields: map[string]string{field: reason},
	})
}

func respondWithValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = validationReason(fe)
		}
	}
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  "Validation failed",
		Fields: fields,
	})
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	default:
		return "failed on the '" + fe.Tag() + "' rule"
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
			http.Error(w, `{"error": "Internal server error during JSON encoding"}`, http.StatusInternalServerError)
		}
	}
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// --- Serialization ---

// pagination matches the envelope the frontend pages through.
type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ProductResponse is the external representation of a product: the entity
// fields plus the joined category title, the rounded average rating and the
// embedded review list.
type ProductResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int32           `json:"stock_quantity"`
	CategoryID    int64           `json:"category"`
	CategoryTitle string          `json:"category_title"`
	AverageRating float64         `json:"average_rating"`
	Reviews       []domain.Review `json:"reviews"`
	ImageURL      *string         `json:"image_url,omitempty"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// newProductResponse builds the representation from a product and its
// (already fetched) reviews. The average is computed unrounded and rounded
// to 2 decimals here, at the serialization boundary only.
func newProductResponse(p *domain.Product, reviews []domain.Review) ProductResponse {
	if reviews == nil {
		reviews = []domain.Review{}
	}
	avg := domain.AverageRating(reviews)
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CategoryID:    p.CategoryID,
		CategoryTitle: p.CategoryTitle,
		AverageRating: math.Round(avg*100) / 100,
		Reviews:       reviews,
		ImageURL:      p.ImageURL,
		IsAvailable:   p.IsAvailable,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// --- Category Handlers ---

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// CategoryInput defines the expected input for creating or updating a category.
type CategoryInput struct {
	Title string `json:"title" validate:"required,max=255"`
	Slug  string `json:"slug" validate:"required,max=255"`
}

func (h *HTTPHandler) decodeCategoryInput(w http.ResponseWriter, r *http.Request) (*CategoryInput, bool) {
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return nil, false
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithValidationError(w, err)
		return nil, false
	}
	if !slugPattern.MatchString(input.Slug) {
		respondWithFieldError(w, "slug", "must contain only letters, numbers, hyphens and underscores")
		return nil, false
	}
	return &input, true
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeCategoryInput(w, r)
	if !ok {
		return
	}

	category := &domain.Category{Title: input.Title, Slug: input.Slug}
	createdCategory, err := h.categoryStore.CreateCategory(r.Context(), category)
	if err != nil {
		log.Printf("ERROR: CreateCategory store operation failed: %v", err)
		switch {
		case errors.Is(err, store.ErrCategoryTitleExists):
			respondWithError(w, http.StatusConflict, store.ErrCategoryTitleExists.Error())
		case errors.Is(err, store.ErrCategorySlugExists):
			respondWithError(w, http.StatusConflict, store.ErrCategorySlugExists.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, createdCategory)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	params := store.ListCategoriesParams{}

	orderBy := r.URL.Query().Get("order_by")
	switch orderBy {
	case "", "title", "created_at":
		params.OrderBy = orderBy
	default:
		respondWithFieldError(w, "order_by", "must be one of: title, created_at")
		return
	}
	params.SortOrder = r.URL.Query().Get("order")
	if params.SortOrder != "" && !strings.EqualFold(params.SortOrder, "asc") && !strings.EqualFold(params.SortOrder, "desc") {
		respondWithFieldError(w, "order", "must be one of: asc, desc")
		return
	}

	categories, err := h.categoryStore.ListCategories(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: ListCategories store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}

	respondWithJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	category, err := h.categoryStore.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		} else {
			log.Printf("ERROR: GetCategoryByID store operation for ID %d failed: %v", categoryID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	input, ok := h.decodeCategoryInput(w, r)
	if !ok {
		return
	}

	category := &domain.Category{ID: categoryID, Title: input.Title, Slug: input.Slug}
	updatedCategory, err := h.categoryStore.UpdateCategory(r.Context(), category)
	if err != nil {
		log.Printf("ERROR: UpdateCategory store operation for ID %d failed: %v", categoryID, err)
		switch {
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		case errors.Is(err, store.ErrCategoryTitleExists):
			respondWithError(w, http.StatusConflict, store.ErrCategoryTitleExists.Error())
		case errors.Is(err, store.ErrCategorySlugExists):
			respondWithError(w, http.StatusConflict, store.ErrCategorySlugExists.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update category")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, updatedCategory)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseIDParam(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	err = h.categoryStore.DeleteCategory(r.Context(), categoryID)
	if err != nil {
		log.Printf("ERROR: DeleteCategory store operation for ID %d failed: %v", categoryID, err)
		switch {
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		case errors.Is(err, store.ErrCategoryInUse):
			respondWithError(w, http.StatusConflict, store.ErrCategoryInUse.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		}
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Product Handlers ---

// ProductInput defines the expected input for creating or updating a product.
type ProductInput struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int32           `json:"stock_quantity" validate:"gte=0"`
	CategoryID    int64           `json:"category" validate:"required,gt=0"`
	ImageURL      *string         `json:"image_url" validate:"omitempty,url,max=2000"`
	IsAvailable   *bool           `json:"is_available"`
}

func (h *HTTPHandler) decodeProductInput(w http.ResponseWriter, r *http.Request) (*ProductInput, bool) {
	var input ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return nil, false
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithValidationError(w, err)
		return nil, false
	}
	// decimal.Decimal cannot carry validate tags; check price by hand.
	if !input.Price.IsPositive() {
		respondWithFieldError(w, "price", "must be greater than 0")
		return nil, false
	}
	if !input.Price.Equal(input.Price.Round(2)) {
		respondWithFieldError(w, "price", "must have at most 2 decimal places")
		return nil, false
	}
	return &input, true
}

func productFromInput(input *ProductInput) *domain.Product {
	isAvailable := true // Default to true if not provided
	if input.IsAvailable != nil {
		isAvailable = *input.IsAvailable
	}
	return &domain.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		CategoryID:    input.CategoryID,
		ImageURL:      input.ImageURL,
		IsAvailable:   isAvailable,
	}
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeProductInput(w, r)
	if !ok {
		return
	}

	createdProduct, err := h.productStore.CreateProduct(r.Context(), productFromInput(input))
	if err != nil {
		log.Printf("ERROR: CreateProduct store operation failed: %v", err)
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithFieldError(w, "category", "category does not exist")
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, newProductResponse(createdProduct, nil))
}

// parseListProductsParams translates the query string into a statically
// validated filter struct. Absent parameters impose no constraint; a
// malformed value fails naming the offending field.
func parseListProductsParams(w http.ResponseWriter, r *http.Request) (store.ListProductsParams, int, bool) {
	qParams := r.URL.Query()

	page := 1
	if pageStr := qParams.Get("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			respondWithFieldError(w, "page", "must be a positive integer")
			return store.ListProductsParams{}, 0, false
		}
		page = p
	}

	params := store.ListProductsParams{
		Limit:  productPageSize,
		Offset: (page - 1) * productPageSize,
	}

	if priceStr := qParams.Get("min_price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			respondWithFieldError(w, "min_price", "must be a decimal number")
			return store.ListProductsParams{}, 0, false
		}
		params.MinPrice = &price
	}
	if priceStr := qParams.Get("max_price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			respondWithFieldError(w, "max_price", "must be a decimal number")
			return store.ListProductsParams{}, 0, false
		}
		params.MaxPrice = &price
	}
	if slug := qParams.Get("category_slug"); slug != "" {
		params.CategorySlug = &slug
	}
	if term := qParams.Get("search_term"); term != "" {
		params.SearchTerm = &term
	}
	if q := qParams.Get("q"); q != "" {
		params.Query = &q
	}
	if availableStr := qParams.Get("is_available"); availableStr != "" {
		b, err := strconv.ParseBool(availableStr)
		if err != nil {
			respondWithFieldError(w, "is_available", "must be true or false")
			return store.ListProductsParams{}, 0, false
		}
		params.IsAvailable = &b
	}

	params.SortBy = qParams.Get("sort_by")
	allowedSortFields := map[string]bool{"name": true, "price": true, "stock_quantity": true, "created_at": true, "": true}
	if !allowedSortFields[params.SortBy] {
		respondWithFieldError(w, "sort_by", "must be one of: name, price, stock_quantity, created_at")
		return store.ListProductsParams{}, 0, false
	}
	params.SortOrder = qParams.Get("sort_order")
	if params.SortOrder != "" && !strings.EqualFold(params.SortOrder, "asc") && !strings.EqualFold(params.SortOrder, "desc") {
		respondWithFieldError(w, "sort_order", "must be one of: asc, desc")
		return store.ListProductsParams{}, 0, false
	}

	return params, page, true
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, page, ok := parseListProductsParams(w, r)
	if !ok {
		return
	}

	products, totalCount, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: ListProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	// One query for the whole page's reviews, not one per product.
	productIDs := make([]int64, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}
	reviewsByProduct, err := h.reviewStore.ListReviewsForProducts(r.Context(), productIDs)
	if err != nil {
		log.Printf("ERROR: ListProducts review batch fetch failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	data := make([]ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, newProductResponse(&products[i], reviewsByProduct[products[i].ID]))
	}

	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + productPageSize - 1) / productPageSize
	}
	response := struct {
		Data       []ProductResponse `json:"data"`
		Pagination pagination        `json:"pagination"`
	}{
		Data: data,
		Pagination: pagination{
			Page:       page,
			Limit:      productPageSize,
			TotalItems: totalCount,
			TotalPages: totalPages,
		},
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		} else {
			log.Printf("ERROR: GetProductByID store operation for ID %d failed: %v", productID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		}
		return
	}

	reviews, err := h.reviewStore.ListReviewsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: GetProductByID review fetch for ID %d failed: %v", productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	respondWithJSON(w, http.StatusOK, newProductResponse(product, reviews))
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	input, ok := h.decodeProductInput(w, r)
	if !ok {
		return
	}

	productToUpdate := productFromInput(input)
	productToUpdate.ID = productID

	updatedProduct, err := h.productStore.UpdateProduct(r.Context(), productToUpdate)
	if err != nil {
		log.Printf("ERROR: UpdateProduct store operation for ID %d failed: %v", productID, err)
		switch {
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithFieldError(w, "category", "category does not exist")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	reviews, err := h.reviewStore.ListReviewsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: UpdateProduct review fetch for ID %d failed: %v", productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, newProductResponse(updatedProduct, reviews))
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	// Reviews go with the product via ON DELETE CASCADE.
	err = h.productStore.DeleteProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: DeleteProduct store operation for ID %d failed: %v", productID, err)
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		}
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) GetRecentProducts(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 5 // Default limit
	}
	if limit > 20 {
		limit = 20
	}

	recent, err := h.productStore.GetRecentProducts(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: GetRecentProducts failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch recent products")
		return
	}

	productIDs := make([]int64, 0, len(recent))
	for _, p := range recent {
		productIDs = append(productIDs, p.ID)
	}
	reviewsByProduct, err := h.reviewStore.ListReviewsForProducts(r.Context(), productIDs)
	if err != nil {
		log.Printf("ERROR: GetRecentProducts review batch fetch failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch recent products")
		return
	}

	data := make([]ProductResponse, 0, len(recent))
	for i := range recent {
		data = append(data, newProductResponse(&recent[i], reviewsByProduct[recent[i].ID]))
	}
	respondWithJSON(w, http.StatusOK, data)
}

// --- Review Handlers (nested under a product) ---

// ReviewCreateInput defines the expected input for creating a review. Any
// product reference in the body is ignored; the review binds to the product
// in the URL path.
type ReviewCreateInput struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty"`
}

func (h *HTTPHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	if _, err := h.productStore.GetProductByID(r.Context(), productID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		} else {
			log.Printf("ERROR: ListProductReviews product lookup for ID %d failed: %v", productID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		}
		return
	}

	reviews, err := h.reviewStore.ListReviewsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: ListProductReviews store operation for ID %d failed: %v", productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	respondWithJSON(w, http.StatusOK, reviews)
}

func (h *HTTPHandler) CreateProductReview(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(r, "productId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input ReviewCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithValidationError(w, err)
		return
	}

	review := &domain.Review{
		ProductID: productID,
		Name:      input.Name,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}

	createdReview, err := h.reviewStore.CreateReview(r.Context(), review)
	if err != nil {
		log.Printf("ERROR: CreateProductReview store operation for product %d failed: %v", productID, err)
		switch {
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		case errors.Is(err, store.ErrReviewExists):
			respondWithError(w, http.StatusConflict, store.ErrReviewExists.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, createdReview)
}

// --- Route Registration ---

// RegisterRoutes sets up the catalog HTTP routes. Reads are public; writes
// on categories and products go through the admin guard. Review creation is
// public, reviewers are identified by name rather than an account.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.With(h.requireAdmin).Post("/", h.CreateCategory)
		r.Route("/{categoryId}", func(r chi.Router) {
			r.Get("/", h.GetCategoryByID)
			r.With(h.requireAdmin).Put("/", h.UpdateCategory)
			r.With(h.requireAdmin).Delete("/", h.DeleteCategory)
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.With(h.requireAdmin).Post("/", h.CreateProduct)
		// Must come before the {productId} route so "recent" is not parsed as an ID.
		r.Get("/recent", h.GetRecentProducts)

		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProductByID)
			r.With(h.requireAdmin).Put("/", h.UpdateProduct)
			r.With(h.requireAdmin).Delete("/", h.DeleteProduct)

			r.Get("/reviews", h.ListProductReviews)
			r.Post("/reviews", h.CreateProductReview)
		})
	})
}
