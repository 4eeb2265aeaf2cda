package router

import (
	"context"
	"net/http"

	"kknotes/internal/auth"
	"kknotes/internal/middleware"
	"kknotes/internal/models"
	repo "kknotes/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func ContentRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(auth.AuthCtx())

	router.Route("/{contentType}", func(r chi.Router) {
		r.Use(middleware.ContentTypeCtx())

		r.Get("/count", countContentHandler)
		r.With(auth.RequireAdmin()).Post("/", addContentHandler)

		r.Route("/{semester}/{subject}", func(r chi.Router) {
			r.Use(middleware.SemesterCtx(), middleware.SubjectCtx())
			r.Get("/", listContentHandler)

			r.With(auth.RequireAdmin()).Patch("/{itemID}", updateContentHandler)
			r.With(auth.RequireAdmin()).Delete("/{itemID}", deleteContentHandler)
		})
	})

	return router
}

// GET: /{contentType}/count?semester=&subject=
func countContentHandler(w http.ResponseWriter, r *http.Request) {
	t := middleware.ContentType(r)
	semester := r.URL.Query().Get("semester")
	subject := r.URL.Query().Get("subject")

	count, err := load(r, "count/"+string(t), func(ctx context.Context) (int, error) {
		return repo.Repository.CountContentItems(ctx, t, semester, subject)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]int{"count": count})
}

// POST: /{contentType}
func addContentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddContentItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Type = middleware.ContentType(r)
	req.AddedBy = auth.GetSessionFromRequest(r)

	item, err := repo.Repository.AddContentItem(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// GET: /{contentType}/{semester}/{subject}
func listContentHandler(w http.ResponseWriter, r *http.Request) {
	t, semester, subject := middleware.ContentType(r), middleware.Semester(r), middleware.Subject(r)

	items, err := load(r, string(t)+"/"+semester+"/"+subject, func(ctx context.Context) ([]*models.ContentItem, error) {
		return repo.Repository.ListContentItems(ctx, t, semester, subject)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	// An empty list is a successful load, not a failure.
	if items == nil {
		items = []*models.ContentItem{}
	}
	render.JSON(w, r, items)
}

// PATCH: /{contentType}/{semester}/{subject}/{itemID}
func updateContentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateContentItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Type = middleware.ContentType(r)
	req.Semester = middleware.Semester(r)
	req.Subject = middleware.Subject(r)
	req.ItemID = chi.URLParam(r, "itemID")
	req.EditedBy = auth.GetSessionFromRequest(r)

	item, err := repo.Repository.UpdateContentItem(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

// DELETE: /{contentType}/{semester}/{subject}/{itemID}
func deleteContentHandler(w http.ResponseWriter, r *http.Request) {
	err := repo.Repository.DeleteContentItem(r.Context(), &models.DeleteContentItemRequest{
		Type:      middleware.ContentType(r),
		Semester:  middleware.Semester(r),
		Subject:   middleware.Subject(r),
		ItemID:    chi.URLParam(r, "itemID"),
		DeletedBy: auth.GetSessionFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"deleted": true})
}
