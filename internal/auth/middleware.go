package auth

import (
	"context"
	"net/http"

	"kknotes/internal/config"
	"kknotes/internal/models"
	"kknotes/internal/session"

	"github.com/golang/glog"
)

type contextKey struct{ name string }

var sessionContextKey = &contextKey{"session"}

var (
	verifier Verifier
	resolver *session.Resolver
)

// Setup installs the cookie verifier and the role resolver used by the middlewares.
func Setup(v Verifier, r *session.Resolver) {
	verifier = v
	resolver = r
}

// AuthCtx resolves the session of every request and stores it in the request context. Requests
// without a valid session cookie get the signed-out session.
func AuthCtx() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := models.Session{}
			if cookie, err := r.Cookie(config.Config.SessionCookieName); err == nil && cookie.Value != "" {
				identity, err := verifier.VerifySessionCookie(r.Context(), cookie.Value)
				if err != nil {
					glog.V(1).Infof("ignoring session cookie: %v", err)
				} else {
					s = resolver.Roles(r.Context(), identity)
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, &s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a signed-in session. It must run after AuthCtx.
func RequireAuth() func(handler http.Handler) http.Handler {
	return require(func(s *models.Session) bool { return s.Authenticated })
}

// RequireAdmin rejects requests from anyone but admins.
func RequireAdmin() func(handler http.Handler) http.Handler {
	return require(func(s *models.Session) bool { return s.IsAdmin })
}

// RequireSuperAdmin rejects requests from anyone but super admins.
func RequireSuperAdmin() func(handler http.Handler) http.Handler {
	return require(func(s *models.Session) bool { return s.IsSuperAdmin })
}

// GetSessionFromRequest returns the session AuthCtx stored in the request context.
func GetSessionFromRequest(r *http.Request) *models.Session {
	if s, ok := r.Context().Value(sessionContextKey).(*models.Session); ok && s != nil {
		return s
	}
	return &models.Session{}
}

// Helpers

func require(allowed func(s *models.Session) bool) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSessionFromRequest(r)
			if !s.Authenticated {
				rejectUnauthorizedRequest(w)
				return
			}
			if !allowed(s) {
				rejectForbiddenRequest(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectUnauthorizedRequest(w http.ResponseWriter) {
	http.Error(w, "You must be authenticated to access this resource", http.StatusUnauthorized)
}

func rejectForbiddenRequest(w http.ResponseWriter) {
	http.Error(w, "You do not have permission to access this resource", http.StatusForbidden)
}
