package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scullery/internal/db/mock"
	"scullery/internal/sales"
	"scullery/models"
)

// setupHandlers wires the package dependencies against a private seeded
// database. Handler tests share package state, so none of them run parallel.
func setupHandlers(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "-") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&models.Ingredient{}, &models.Product{}, &models.RecipeLine{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	if err := mock.Seed(context.Background(), db); err != nil {
		t.Fatalf("seed database: %v", err)
	}

	Configure(db, sales.NewEngine(db), sales.NewRegistry())
	t.Cleanup(func() {
		Configure(nil, nil, nil)
	})
	return db
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func ingredientID(t *testing.T, db *gorm.DB, code string) uint {
	t.Helper()
	var ingredient models.Ingredient
	if err := db.Where("code = ?", code).First(&ingredient).Error; err != nil {
		t.Fatalf("query ingredient %q: %v", code, err)
	}
	return ingredient.ID
}

func productID(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	var product models.Product
	if err := db.Where("name = ?", name).First(&product).Error; err != nil {
		t.Fatalf("query product %q: %v", name, err)
	}
	return product.ID
}
