package router

import (
	"context"
	"errors"
	"net/http"

	"kknotes/internal/auth"
	"kknotes/internal/config"
	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	repo "kknotes/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/golang/glog"
)

func UserRoutes() *chi.Mux {
	router := chi.NewRouter()

	// Alter the current session. No auth middlewares required.
	router.Post("/session", createSessionHandler)
	router.Post("/signout", signOutHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthCtx())

		// Information about the current session, signed in or not
		r.Get("/me", getMeHandler)

		// User directory
		r.With(auth.RequireAdmin()).Get("/", listUsersHandler)
		r.With(auth.RequireAdmin()).Get("/{userID}", getUserHandler)
	})

	return router
}

// POST: /session
func createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// Create the session cookie. This will also verify the ID token in the process.
	expiresIn := config.Config.SessionCookieExpiration
	cookie, s, err := auth.SignIn(r.Context(), req.Token, expiresIn)
	if errors.Is(err, qerrors.ValidationError) || errors.Is(err, qerrors.Forbidden) {
		writeError(w, r, err)
		return
	} else if err != nil {
		glog.V(1).Infof("rejecting sign-in: %v", err)
		http.Error(w, "Invalid ID token", http.StatusUnauthorized)
		return
	}

	setSessionCookie(w, cookie, int(expiresIn.Seconds()))
	render.JSON(w, r, s)
}

// POST: /signout
func signOutHandler(w http.ResponseWriter, r *http.Request) {
	setSessionCookie(w, "", -1)
	render.JSON(w, r, models.Session{})
}

// GET: /me
func getMeHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, auth.GetSessionFromRequest(r))
}

// GET: /
func listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := load(r, "users", func(ctx context.Context) ([]*models.User, error) {
		return repo.Repository.ListUsers(ctx)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, users)
}

// GET: /{userID}
func getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := repo.Repository.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, user)
}

func setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	var sameSite http.SameSite
	if config.Config.IsHTTPS {
		sameSite = http.SameSiteNoneMode
	} else {
		sameSite = http.SameSiteLaxMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.Config.SessionCookieName,
		Value:    value,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   config.Config.IsHTTPS,
		Path:     "/",
	})
}
