package router

import (
	"context"
	"net/http"
	"strconv"

	"kknotes/internal/auth"
	"kknotes/internal/config"
	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	repo "kknotes/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func ChatRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(auth.AuthCtx(), auth.RequireAuth())

	router.Get("/", listChatHandler)
	router.Post("/", sendChatHandler)
	router.With(auth.RequireAdmin()).Delete("/{messageID}", deleteChatHandler)

	return router
}

// GET: /?limit= (at most ChatHistoryLimit)
func listChatHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, config.Config.ChatHistoryLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit = min(limit, config.Config.ChatHistoryLimit)

	messages, err := load(r, "chat", func(ctx context.Context) ([]*models.ChatMessage, error) {
		return repo.Repository.ListChatMessages(ctx, limit)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, messages)
}

// POST: /
func sendChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SendChatMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Sender = auth.GetSessionFromRequest(r)

	msg, err := repo.Repository.SendChatMessage(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, msg)
}

// DELETE: /{messageID}
func deleteChatHandler(w http.ResponseWriter, r *http.Request) {
	err := repo.Repository.DeleteChatMessage(r.Context(), chi.URLParam(r, "messageID"), auth.GetSessionFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"deleted": true})
}

// limitParam reads the optional ?limit= query parameter.
func limitParam(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, qerrors.NewInvalidRequest("limit", "must be a positive number")
	}
	return n, nil
}
