package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	applog "scullery/internal/log"
	"scullery/models"
)

type recipeLineRequest struct {
	OwnerProductID    *uint   `json:"owner_product_id"`
	OwnerIngredientID *uint   `json:"owner_ingredient_id"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	Position          int     `json:"position"`
	IngredientID      *uint   `json:"ingredient_id"`
	SourceProductID   *uint   `json:"source_product_id"`
}

// RecipeLineResource handles CRUD interactions for recipe line records.
func RecipeLineResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "recipe line request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := resourcePath(r, "/api/recipe-lines")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRecipeLines(w, r)
		case http.MethodPost:
			createRecipeLine(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	lineID, ok := parseID(path)
	if !ok {
		applog.Debug(r.Context(), "invalid recipe line identifier", "identifier", path)
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipeLine(w, r, lineID)
	case http.MethodPut:
		updateRecipeLine(w, r, lineID)
	case http.MethodDelete:
		deleteRecipeLine(w, r, lineID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipeLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.RecipeLine

	query := database.WithContext(ctx).
		Preload("Ingredient").
		Preload("SourceProduct").
		Order("position asc, id asc")

	if productParam := strings.TrimSpace(r.URL.Query().Get("owner_product_id")); productParam != "" {
		if idValue, err := strconv.ParseUint(productParam, 10, 64); err == nil {
			query = query.Where("owner_product_id = ?", uint(idValue))
		}
	}
	if ingredientParam := strings.TrimSpace(r.URL.Query().Get("owner_ingredient_id")); ingredientParam != "" {
		if idValue, err := strconv.ParseUint(ingredientParam, 10, 64); err == nil {
			query = query.Where("owner_ingredient_id = ?", uint(idValue))
		}
	}

	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list recipe lines", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe lines")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func showRecipeLine(w http.ResponseWriter, r *http.Request, lineID uint) {
	ctx := r.Context()
	var line models.RecipeLine
	if err := database.WithContext(ctx).
		Preload("Ingredient").
		Preload("SourceProduct").
		First(&line, lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe line", "error", err, "id", lineID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe line")
		return
	}

	writeJSON(w, http.StatusOK, line)
}

func createRecipeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload recipeLineRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe line create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateRecipeLinePayload(payload); err != nil {
		applog.Debug(ctx, "recipe line validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	line := models.RecipeLine{
		OwnerProductID:    payload.OwnerProductID,
		OwnerIngredientID: payload.OwnerIngredientID,
		Quantity:          payload.Quantity,
		Unit:              normalizedUnit(payload.Unit),
		Position:          payload.Position,
		IngredientID:      payload.IngredientID,
		SourceProductID:   payload.SourceProductID,
	}

	if err := database.WithContext(ctx).Create(&line).Error; err != nil {
		applog.Error(ctx, "failed to create recipe line", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create recipe line")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Ingredient").
		Preload("SourceProduct").
		First(&line, line.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload created recipe line", "error", err, "id", line.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe line")
		return
	}

	writeJSON(w, http.StatusCreated, line)
}

func updateRecipeLine(w http.ResponseWriter, r *http.Request, lineID uint) {
	ctx := r.Context()
	var existing models.RecipeLine
	if err := database.WithContext(ctx).First(&existing, lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe line for update", "error", err, "id", lineID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe line")
		return
	}

	var payload recipeLineRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe line update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateRecipeLinePayload(payload); err != nil {
		applog.Debug(ctx, "recipe line update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{
		"owner_product_id":    payload.OwnerProductID,
		"owner_ingredient_id": payload.OwnerIngredientID,
		"quantity":            payload.Quantity,
		"unit":                normalizedUnit(payload.Unit),
		"position":            payload.Position,
		"ingredient_id":       payload.IngredientID,
		"source_product_id":   payload.SourceProductID,
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update recipe line", "error", err, "id", lineID)
		writeJSONError(w, http.StatusBadRequest, "unable to update recipe line")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Ingredient").
		Preload("SourceProduct").
		First(&existing, lineID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated recipe line", "error", err, "id", lineID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe line")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

func deleteRecipeLine(w http.ResponseWriter, r *http.Request, lineID uint) {
	ctx := r.Context()
	if err := database.WithContext(ctx).Delete(&models.RecipeLine{}, lineID).Error; err != nil {
		applog.Error(ctx, "failed to delete recipe line", "error", err, "id", lineID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete recipe line")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateRecipeLinePayload(payload recipeLineRequest) error {
	if payload.Quantity <= 0 {
		return errors.New("quantity must be greater than zero")
	}

	hasProductOwner := payload.OwnerProductID != nil && *payload.OwnerProductID != 0
	hasIngredientOwner := payload.OwnerIngredientID != nil && *payload.OwnerIngredientID != 0
	if hasProductOwner == hasIngredientOwner {
		return errors.New("exactly one of owner_product_id or owner_ingredient_id must be set")
	}

	hasIngredient := payload.IngredientID != nil && *payload.IngredientID != 0
	hasSourceProduct := payload.SourceProductID != nil && *payload.SourceProductID != 0
	if hasIngredient == hasSourceProduct {
		return errors.New("exactly one of ingredient_id or source_product_id must be set")
	}

	return nil
}
