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

func SemesterRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(auth.AuthCtx())

	router.Get("/", listSemestersHandler)

	router.Route("/{semester}/subjects", func(r chi.Router) {
		r.Use(middleware.SemesterCtx())
		r.Get("/", listSubjectsHandler)
		r.With(auth.RequireAdmin()).Post("/", addSubjectHandler)

		r.Route("/{subject}", func(r chi.Router) {
			r.Use(middleware.SubjectCtx())
			r.With(auth.RequireAdmin()).Patch("/", updateSubjectHandler)
			r.With(auth.RequireAdmin()).Delete("/", deleteSubjectHandler)
		})
	})

	return router
}

// GET: /
func listSemestersHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, repo.Repository.ListSemesters())
}

// GET: /{semester}/subjects
func listSubjectsHandler(w http.ResponseWriter, r *http.Request) {
	semester := middleware.Semester(r)
	subjects, err := load(r, "subjects/"+semester, func(ctx context.Context) ([]models.Subject, error) {
		return repo.Repository.ListSubjects(ctx, semester)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	render.JSON(w, r, subjects)
}

// POST: /{semester}/subjects
func addSubjectHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddSubjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Semester = middleware.Semester(r)
	req.AddedBy = auth.GetSessionFromRequest(r)

	subject, err := repo.Repository.AddSubject(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, subject)
}

// PATCH: /{semester}/subjects/{subject}
func updateSubjectHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSubjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Semester = middleware.Semester(r)
	req.Key = middleware.Subject(r)
	req.EditedBy = auth.GetSessionFromRequest(r)

	subject, err := repo.Repository.UpdateSubject(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, subject)
}

// DELETE: /{semester}/subjects/{subject}
func deleteSubjectHandler(w http.ResponseWriter, r *http.Request) {
	err := repo.Repository.DeleteSubject(r.Context(), &models.DeleteSubjectRequest{
		Semester:  middleware.Semester(r),
		Key:       middleware.Subject(r),
		DeletedBy: auth.GetSessionFromRequest(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]bool{"deleted": true})
}
