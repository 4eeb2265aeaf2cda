package repository

import (
	"context"
	"strings"
	"unicode/utf8"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"

	"github.com/golang/glog"
	"golang.org/x/time/rate"
)

// MaxChatHistory caps the number of messages a single ListChatMessages call returns.
const MaxChatHistory = 200

// SendChatMessage appends a message to the global chat. The sender's role flags are copied into
// the message as they are at send time.
func (r *StoreRepository) SendChatMessage(ctx context.Context, req *models.SendChatMessageRequest) (*models.ChatMessage, error) {
	if err := requireSession(req.Sender); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, qerrors.NewInvalidRequest("text", "is required")
	}
	if utf8.RuneCountInString(text) > models.MaxChatMessageLength {
		return nil, qerrors.NewInvalidRequest("text", "is too long")
	}

	userID, email := sessionUser(req.Sender)
	if !r.chatLimiter(userID).Allow() {
		return nil, qerrors.RateLimited
	}

	msg := &models.ChatMessage{
		UserID:       userID,
		UserEmail:    email,
		Text:         text,
		IsAdmin:      req.Sender.IsAdmin,
		IsSuperAdmin: req.Sender.IsSuperAdmin,
	}
	if id := req.Sender.Identity; id != nil {
		msg.UserName = id.DisplayName
		msg.UserPhoto = id.AvatarURL
	}
	if msg.UserName == "" {
		msg.UserName = "Anonymous"
	}

	id, err := r.store.Push(ctx, models.StoreChatPath, map[string]interface{}{
		"userId":       msg.UserID,
		"userName":     msg.UserName,
		"userEmail":    msg.UserEmail,
		"userPhoto":    msg.UserPhoto,
		"text":         msg.Text,
		"timestamp":    store.ServerTimestamp(),
		"isAdmin":      msg.IsAdmin,
		"isSuperAdmin": msg.IsSuperAdmin,
	})
	if err != nil {
		return nil, qerrors.Backend("sending chat message", err)
	}
	msg.ID = id
	msg.Timestamp = r.clock().UnixMilli()
	return msg, nil
}

// ListChatMessages returns the last n messages, oldest first. n is clamped to [1, MaxChatHistory].
func (r *StoreRepository) ListChatMessages(ctx context.Context, n int) ([]*models.ChatMessage, error) {
	n = max(1, min(n, MaxChatHistory))

	nodes, err := r.store.ReadLastN(ctx, models.StoreChatPath, "timestamp", n)
	if err != nil {
		return nil, qerrors.Backend("listing chat messages", err)
	}

	messages := make([]*models.ChatMessage, 0, len(nodes))
	for _, node := range nodes {
		msg := &models.ChatMessage{}
		if err := decode(node.Value, msg); err != nil {
			glog.V(1).Infof("skipping malformed chat message %s: %v", node.Key, err)
			continue
		}
		msg.ID = node.Key
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteChatMessage removes a message. Only admins may delete messages.
func (r *StoreRepository) DeleteChatMessage(ctx context.Context, id string, caller *models.Session) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if !store.ValidKey(id) {
		return qerrors.MessageNotFoundError
	}

	path := store.Join(models.StoreChatPath, id)
	raw, err := r.store.Read(ctx, path)
	if err != nil {
		return qerrors.Backend("reading chat message", err)
	}
	if raw == nil {
		return qerrors.MessageNotFoundError
	}
	if err := r.store.Remove(ctx, path); err != nil {
		return qerrors.Backend("deleting chat message", err)
	}
	return nil
}

func (r *StoreRepository) chatLimiter(userID string) *rate.Limiter {
	r.chatLimitersLock.Lock()
	defer r.chatLimitersLock.Unlock()

	l, ok := r.chatLimiters[userID]
	if !ok {
		l = rate.NewLimiter(r.chatRate, r.chatBurst)
		r.chatLimiters[userID] = l
	}
	return l
}
