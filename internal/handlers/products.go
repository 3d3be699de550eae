package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	applog "scullery/internal/log"
	"scullery/internal/recipe"
	"scullery/models"
)

type productRequest struct {
	Name         string  `json:"name"`
	SellingPrice float64 `json:"selling_price"`
	Unit         string  `json:"unit"`
}

// ProductResource handles CRUD and costing for product records.
func ProductResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "product request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := resourcePath(r, "/api/products")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listProducts(w, r)
		case http.MethodPost:
			createProduct(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	productID, ok := parseID(segments[0])
	if !ok {
		applog.Debug(r.Context(), "invalid product identifier", "identifier", segments[0])
		http.NotFound(w, r)
		return
	}

	if len(segments) == 2 {
		switch {
		case segments[1] == "cost" && r.Method == http.MethodGet:
			productCost(w, r, productID)
		case segments[1] == "resolution" && r.Method == http.MethodGet:
			productResolution(w, r, productID)
		default:
			http.NotFound(w, r)
		}
		return
	}
	if len(segments) > 2 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showProduct(w, r, productID)
	case http.MethodPut:
		updateProduct(w, r, productID)
	case http.MethodDelete:
		deleteProduct(w, r, productID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Product

	if err := database.WithContext(ctx).
		Preload("RecipeLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Order("name asc").
		Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list products", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load products")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func showProduct(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	var product models.Product
	if err := database.WithContext(ctx).
		Preload("RecipeLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Preload("RecipeLines.Ingredient").
		Preload("RecipeLines.SourceProduct").
		First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload productRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid product create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	product := models.Product{
		Name:         strings.TrimSpace(payload.Name),
		SellingPrice: payload.SellingPrice,
		Unit:         normalizedUnit(payload.Unit),
	}

	if err := database.WithContext(ctx).Create(&product).Error; err != nil {
		applog.Error(ctx, "failed to create product", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create product")
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

func updateProduct(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	var existing models.Product
	if err := database.WithContext(ctx).First(&existing, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load product for update", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load product")
		return
	}

	var payload productRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid product update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	updates := map[string]any{
		"name":          strings.TrimSpace(payload.Name),
		"selling_price": payload.SellingPrice,
		"unit":          normalizedUnit(payload.Unit),
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update product", "error", err, "id", productID)
		writeJSONError(w, http.StatusBadRequest, "unable to update product")
		return
	}

	if err := database.WithContext(ctx).First(&existing, productID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load product")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

func deleteProduct(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	if err := database.WithContext(ctx).Delete(&models.Product{}, productID).Error; err != nil {
		applog.Error(ctx, "failed to delete product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productCost(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	catalog, err := recipe.Load(ctx, database)
	if err != nil {
		applog.Error(ctx, "failed to load catalog", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load catalog")
		return
	}

	result, err := catalog.Cost(productID)
	if err != nil {
		writeRecipeError(w, r, err, productID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type resolutionResponse struct {
	ProductID    uint                    `json:"product_id"`
	Requirements []resolutionRequirement `json:"requirements"`
	Warnings     []recipe.Warning        `json:"warnings,omitempty"`
}

type resolutionRequirement struct {
	IngredientID uint    `json:"ingredient_id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
}

func productResolution(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	catalog, err := recipe.Load(ctx, database)
	if err != nil {
		applog.Error(ctx, "failed to load catalog", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load catalog")
		return
	}

	resolved, err := catalog.Resolve(productID)
	if err != nil {
		writeRecipeError(w, r, err, productID)
		return
	}

	response := resolutionResponse{ProductID: productID, Warnings: resolved.Warnings}
	for _, requirement := range resolved.Requirements {
		entry := resolutionRequirement{
			IngredientID: requirement.IngredientID,
			Quantity:     requirement.Quantity,
		}
		if ingredient, ok := catalog.Ingredient(requirement.IngredientID); ok {
			entry.Code = ingredient.Code
			entry.Name = ingredient.Name
			entry.Unit = ingredient.Unit
		}
		response.Requirements = append(response.Requirements, entry)
	}

	writeJSON(w, http.StatusOK, response)
}

func writeRecipeError(w http.ResponseWriter, r *http.Request, err error, productID uint) {
	switch {
	case errors.Is(err, recipe.ErrUnknownProduct):
		http.NotFound(w, r)
	case errors.Is(err, recipe.ErrCycleDetected), errors.Is(err, recipe.ErrDepthExceeded):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		applog.Error(r.Context(), "recipe resolution failed", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, "unable to resolve product recipe")
	}
}
