package router

import (
	"context"
	"net/http"

	"kknotes/internal/auth"
	"kknotes/internal/models"
	repo "kknotes/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func AdminRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(auth.AuthCtx(), auth.RequireAdmin())

	router.Get("/", listAdminsHandler)
	router.Post("/", addAdminHandler)

	router.Route("/{adminID}", func(r chi.Router) {
		r.With(auth.RequireSuperAdmin()).Post("/promote", changeAdminHandler((*repo.StoreRepository).PromoteToSuperAdmin))
		r.With(auth.RequireSuperAdmin()).Post("/demote", changeAdminHandler((*repo.StoreRepository).DemoteAdmin))
		r.Delete("/", changeAdminHandler((*repo.StoreRepository).RemoveAdmin))
	})

	return router
}

// GET: /
func listAdminsHandler(w http.ResponseWriter, r *http.Request) {
	admins, err := load(r, "admins", func(ctx context.Context) ([]*models.AdminRecord, error) {
		return repo.Repository.ListAdmins(ctx)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if admins == nil {
		admins = []*models.AdminRecord{}
	}
	render.JSON(w, r, admins)
}

// POST: /
func addAdminHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddAdminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.AddedBy = auth.GetSessionFromRequest(r)

	admin, err := repo.Repository.AddAdmin(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, admin)
}

// POST: /{adminID}/promote, POST: /{adminID}/demote and DELETE: /{adminID}
func changeAdminHandler(change func(*repo.StoreRepository, context.Context, *models.ChangeAdminRequest) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := change(repo.Repository, r.Context(), &models.ChangeAdminRequest{
			AdminID: chi.URLParam(r, "adminID"),
			Caller:  auth.GetSessionFromRequest(r),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]bool{"ok": true})
	}
}
