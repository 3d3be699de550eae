package server

import (
	"context"
	"net/http"

	"scullery/internal/handlers"
	applog "scullery/internal/log"
	"scullery/internal/metrics"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/ingredients", handlers.IngredientResource)
	mux.HandleFunc("/api/ingredients/", handlers.IngredientResource)
	mux.HandleFunc("/api/products", handlers.ProductResource)
	mux.HandleFunc("/api/products/", handlers.ProductResource)
	mux.HandleFunc("/api/recipe-lines", handlers.RecipeLineResource)
	mux.HandleFunc("/api/recipe-lines/", handlers.RecipeLineResource)
	mux.HandleFunc("/api/sales/", handlers.SalesResource)
	applog.Debug(context.Background(), "http routes registered")
	return mux
}
