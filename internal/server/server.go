package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kknotes/internal/config"
	rtr "kknotes/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"
	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

func Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.Logger,    // Log API Request Calls
		middleware.Recoverer, // Turn handler panics into 500s
	)

	router.Route("/", func(r chi.Router) {
		r.Mount("/", rtr.HealthRoutes())
	})

	router.Route("/v1", func(r chi.Router) {
		r.Mount("/users", rtr.UserRoutes())
		r.Mount("/semesters", rtr.SemesterRoutes())
		r.Mount("/content", rtr.ContentRoutes())
		r.Mount("/admins", rtr.AdminRoutes())
		r.Mount("/chat", rtr.ChatRoutes())
		r.Mount("/dashboard", rtr.DashboardRoutes())
		r.Mount("/normalize", rtr.NormalizeRoutes())
	})

	return router
}

// Handler wraps Routes in the CORS policy from the configuration.
func Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.Config.AllowedOrigins,
		AllowedHeaders:   []string{"Cookie", "Content-Type"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PATCH"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
	})
	return c.Handler(Routes())
}

// Start serves the API until ctx is cancelled, then drains in-flight requests.
func Start(ctx context.Context) error {
	if config.Config == nil {
		return errors.New("missing or invalid configuration")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", config.Config.Port),
		Handler:           Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		glog.Infof("Server is listening on port %v\n", config.Config.Port)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	glog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
