package router

import (
	"context"
	"net/http"

	"kknotes/internal/config"
	"kknotes/internal/loader"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func HealthRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	return router
}

// load runs a read under the configured load watchdog, so a hung backend read answers 504
// instead of holding the request open.
func load[T any](r *http.Request, name string, fetch func(ctx context.Context) (T, error)) (T, error) {
	return loader.NewView[T](name, config.Config.LoadTimeout).Load(r.Context(), fetch)
}
