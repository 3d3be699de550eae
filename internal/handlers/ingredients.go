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

type ingredientRequest struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	UnitCost       float64 `json:"unit_cost"`
	QuantityOnHand float64 `json:"quantity_on_hand"`
	ReorderLevel   float64 `json:"reorder_level"`
	IsComposite    bool    `json:"is_composite"`
	BatchSize      float64 `json:"batch_size"`
}

type replenishRequest struct {
	Quantity float64 `json:"quantity"`
}

// IngredientResource handles CRUD and replenishment for ingredient records.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "ingredient request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := resourcePath(r, "/api/ingredients")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	ingredientID, ok := parseID(segments[0])
	if !ok {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", segments[0])
		http.NotFound(w, r)
		return
	}

	if len(segments) == 2 {
		switch {
		case segments[1] == "replenish" && r.Method == http.MethodPost:
			replenishIngredient(w, r, ingredientID)
		case segments[1] == "unit-cost" && r.Method == http.MethodGet:
			compositeUnitCost(w, r, ingredientID)
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
		showIngredient(w, r, ingredientID)
	case http.MethodPut:
		updateIngredient(w, r, ingredientID)
	case http.MethodDelete:
		deleteIngredient(w, r, ingredientID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Ingredient

	query := database.WithContext(ctx).Order("code asc")
	if composite := strings.TrimSpace(r.URL.Query().Get("composite")); composite != "" {
		query = query.Where("is_composite = ?", composite == "true")
	}

	if err := query.Preload("BatchRecipe").Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func showIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	var ingredient models.Ingredient
	if err := database.WithContext(ctx).
		Preload("BatchRecipe").
		First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	writeJSON(w, http.StatusOK, ingredient)
}

func createIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateIngredientPayload(payload); err != nil {
		applog.Debug(ctx, "ingredient validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ingredient := models.Ingredient{
		Code:           strings.TrimSpace(payload.Code),
		Name:           strings.TrimSpace(payload.Name),
		Unit:           normalizedUnit(payload.Unit),
		UnitCost:       payload.UnitCost,
		QuantityOnHand: payload.QuantityOnHand,
		ReorderLevel:   payload.ReorderLevel,
		IsComposite:    payload.IsComposite,
		BatchSize:      payload.BatchSize,
	}

	if err := database.WithContext(ctx).Create(&ingredient).Error; err != nil {
		applog.Error(ctx, "failed to create ingredient", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create ingredient")
		return
	}

	writeJSON(w, http.StatusCreated, ingredient)
}

func updateIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	var existing models.Ingredient
	if err := database.WithContext(ctx).First(&existing, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load ingredient for update", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	var payload ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateIngredientPayload(payload); err != nil {
		applog.Debug(ctx, "ingredient update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{
		"code":             strings.TrimSpace(payload.Code),
		"name":             strings.TrimSpace(payload.Name),
		"unit":             normalizedUnit(payload.Unit),
		"unit_cost":        payload.UnitCost,
		"quantity_on_hand": payload.QuantityOnHand,
		"reorder_level":    payload.ReorderLevel,
		"is_composite":     payload.IsComposite,
		"batch_size":       payload.BatchSize,
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusBadRequest, "unable to update ingredient")
		return
	}

	if err := database.WithContext(ctx).First(&existing, ingredientID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	if err := database.WithContext(ctx).Delete(&models.Ingredient{}, ingredientID).Error; err != nil {
		applog.Error(ctx, "failed to delete ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete ingredient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func replenishIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	if engine == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "sale engine is not configured")
		return
	}

	var payload replenishRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid replenish payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Quantity <= 0 {
		writeJSONError(w, http.StatusBadRequest, "quantity must be greater than zero")
		return
	}

	ingredient, err := engine.Replenish(ctx, ingredientID, payload.Quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to replenish ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to replenish ingredient")
		return
	}

	writeJSON(w, http.StatusOK, ingredient)
}

func compositeUnitCost(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	catalog, err := recipe.Load(ctx, database)
	if err != nil {
		applog.Error(ctx, "failed to load catalog", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load catalog")
		return
	}

	result, err := catalog.CompositeUnitCost(ingredientID)
	if err != nil {
		if errors.Is(err, recipe.ErrUnknownIngredient) {
			http.NotFound(w, r)
			return
		}
		if errors.Is(err, recipe.ErrCycleDetected) || errors.Is(err, recipe.ErrDepthExceeded) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		applog.Error(ctx, "failed to compute composite unit cost", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to compute unit cost")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func validateIngredientPayload(payload ingredientRequest) error {
	if strings.TrimSpace(payload.Code) == "" {
		return errors.New("code is required")
	}
	if strings.TrimSpace(payload.Name) == "" {
		return errors.New("name is required")
	}
	if payload.IsComposite && payload.BatchSize <= 0 {
		return errors.New("composite ingredients require a positive batch_size")
	}
	return nil
}

func normalizedUnit(unit string) string {
	trimmed := strings.TrimSpace(unit)
	if trimmed == "" {
		return "ea"
	}
	return trimmed
}
