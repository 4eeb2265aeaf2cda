package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
)

func TestSendChatMessage(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	sender := adminSession("a@x.com")

	tests := []struct {
		name   string
		req    *models.SendChatMessageRequest
		target error
	}{
		{"anonymous", &models.SendChatMessageRequest{Text: "hi"}, qerrors.Forbidden},
		{"blank", &models.SendChatMessageRequest{Text: "   ", Sender: sender}, qerrors.ValidationError},
		{"too long", &models.SendChatMessageRequest{Text: strings.Repeat("x", 1001), Sender: sender}, qerrors.ValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.SendChatMessage(ctx, tt.req); !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}

	msg, err := r.SendChatMessage(ctx, &models.SendChatMessageRequest{Text: "  hello  ", Sender: sender})
	if err != nil {
		t.Fatalf("Expected no error sending, got %v", err)
	}
	if msg.Text != "hello" || !msg.IsAdmin || msg.IsSuperAdmin || msg.UserEmail != "a@x.com" {
		t.Errorf("Expected the sender's flags to be captured, got %+v", msg)
	}
}

func TestChatRateLimit(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	sender := studentSession("s1")

	for i := 0; i < 2; i++ {
		if _, err := r.SendChatMessage(ctx, &models.SendChatMessageRequest{Text: "spam", Sender: sender}); err != nil {
			t.Fatalf("Expected message %d to be allowed, got %v", i, err)
		}
	}
	if _, err := r.SendChatMessage(ctx, &models.SendChatMessageRequest{Text: "spam", Sender: sender}); !errors.Is(err, qerrors.RateLimited) {
		t.Errorf("Expected RateLimited, got %v", err)
	}
	if _, err := r.SendChatMessage(ctx, &models.SendChatMessageRequest{Text: "hi", Sender: studentSession("s2")}); err != nil {
		t.Errorf("Expected another user to be unaffected, got %v", err)
	}
}

func TestListChatMessages(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	for _, id := range []string{"s1", "s2", "s3"} {
		r.SendChatMessage(ctx, &models.SendChatMessageRequest{Text: "from " + id, Sender: studentSession(id)})
	}

	messages, err := r.ListChatMessages(ctx, 2)
	if err != nil {
		t.Fatalf("Expected no error listing, got %v", err)
	}
	if len(messages) != 2 || messages[0].Text != "from s2" || messages[1].Text != "from s3" {
		t.Errorf("Expected the last two messages oldest first, got %v", messages)
	}
}

func TestDeleteChatMessage(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	msg, _ := r.SendChatMessage(ctx, &models.SendChatMessageRequest{Text: "oops", Sender: studentSession("s1")})

	if err := r.DeleteChatMessage(ctx, msg.ID, studentSession("s1")); !errors.Is(err, qerrors.Forbidden) {
		t.Errorf("Expected Forbidden for a student, got %v", err)
	}
	if err := r.DeleteChatMessage(ctx, msg.ID, adminSession("a@x.com")); err != nil {
		t.Errorf("Expected no error deleting, got %v", err)
	}
	if err := r.DeleteChatMessage(ctx, msg.ID, adminSession("a@x.com")); !errors.Is(err, qerrors.NotFound) {
		t.Errorf("Expected NotFound deleting twice, got %v", err)
	}
}
