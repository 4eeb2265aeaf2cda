package router

import (
	"context"
	"net/http"
	"time"

	"kknotes/internal/analytics"
	"kknotes/internal/auth"
	"kknotes/internal/models"
	repo "kknotes/internal/repository"
	"kknotes/internal/youtube"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func DashboardRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(auth.AuthCtx(), auth.RequireAdmin())

	router.Get("/stats", getStatsHandler)
	router.Get("/activity", listActivityHandler)

	return router
}

// GET: /stats
func getStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := load(r, "stats", func(ctx context.Context) (*models.DashboardStats, error) {
		return analytics.GenerateDashboardStats(ctx, repo.Repository, analytics.DefaultActivityWindow, time.Now())
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// GET: /activity?limit=
func listActivityHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 50)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := load(r, "activity", func(ctx context.Context) ([]*models.ActivityLogEntry, error) {
		return repo.Repository.RecentActivity(ctx, limit)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.ActivityLogEntry{}
	}
	render.JSON(w, r, entries)
}

func NormalizeRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(auth.AuthCtx(), auth.RequireAdmin())

	// GET: /?url=
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, youtube.Normalize(r.URL.Query().Get("url")))
	})

	return router
}
