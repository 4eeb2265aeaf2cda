package auth

import (
	"context"
	"fmt"
	"time"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
)

// SignIn exchanges an ID token for a session cookie and handles the sign-in: the session is
// resolved and the user's profile is updated.
func SignIn(ctx context.Context, idToken string, expiresIn time.Duration) (string, models.Session, error) {
	if idToken == "" {
		return "", models.Session{}, qerrors.NewInvalidRequest("token", "is required")
	}
	cookie, err := verifier.CreateSessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", models.Session{}, err
	}
	identity, err := verifier.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("verifying new session: %w", err)
	}
	return cookie, resolver.Resolve(ctx, identity), nil
}
