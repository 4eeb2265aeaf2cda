// Package middleware validates the path parameters shared by the content routes and stores them
// in the request context.
package middleware

import (
	"context"
	"net/http"

	"kknotes/internal/models"
	"kknotes/internal/store"

	"github.com/go-chi/chi/v5"
)

type contextKey struct{ name string }

var (
	semesterKey    = &contextKey{"semester"}
	subjectKey     = &contextKey{"subject"}
	contentTypeKey = &contextKey{"contentType"}
)

// SemesterCtx reads {semester} and rejects anything but s1..s8.
func SemesterCtx() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			semester := chi.URLParam(r, "semester")
			if !models.IsValidSemester(semester) {
				http.Error(w, "Unknown semester "+semester, http.StatusNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), semesterKey, semester)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectCtx reads {subject} and rejects keys that cannot be stored.
func SubjectCtx() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := chi.URLParam(r, "subject")
			if !store.ValidKey(subject) {
				http.Error(w, "Invalid subject "+subject, http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContentTypeCtx reads {contentType}, accepting "notes", "videos" and their singular forms.
func ContentTypeCtx() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, "contentType")
			t, ok := models.ParseContentType(raw)
			if !ok {
				http.Error(w, "Unknown content type "+raw, http.StatusNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), contentTypeKey, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Semester(r *http.Request) string {
	s, _ := r.Context().Value(semesterKey).(string)
	return s
}

func Subject(r *http.Request) string {
	s, _ := r.Context().Value(subjectKey).(string)
	return s
}

func ContentType(r *http.Request) models.ContentType {
	t, _ := r.Context().Value(contentTypeKey).(models.ContentType)
	return t
}
