// Package auth connects the Firebase identity provider to sessions: it turns ID tokens and
// session cookies into identities and gates HTTP routes on the resolved roles.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"

	firebaseAuth "firebase.google.com/go/auth"
)

// IdentityProvider is the source of sign-in and sign-out events for a client.
type IdentityProvider interface {
	// OnAuthChange registers fn for identity changes: the identity on sign-in, nil on sign-out.
	OnAuthChange(fn func(identity *models.Identity)) (unsubscribe func())
	SignIn(ctx context.Context, idToken string) (*models.Identity, error)
	SignOut(ctx context.Context) error
}

// Verifier creates and checks session cookies.
type Verifier interface {
	CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookie(ctx context.Context, cookie string) (*models.Identity, error)
}

// FirebaseIdentityProvider implements IdentityProvider and Verifier with Firebase Auth.
type FirebaseIdentityProvider struct {
	client         *firebaseAuth.Client
	allowedDomains []string

	mu           sync.Mutex
	listeners    map[int]func(*models.Identity)
	nextListener int
}

// NewFirebaseIdentityProvider wraps an Auth client. When allowedDomains is not empty only
// emails in those domains may sign in.
func NewFirebaseIdentityProvider(client *firebaseAuth.Client, allowedDomains []string) *FirebaseIdentityProvider {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	return &FirebaseIdentityProvider{
		client:         client,
		allowedDomains: domains,
		listeners:      make(map[int]func(*models.Identity)),
	}
}

func (p *FirebaseIdentityProvider) OnAuthChange(fn func(identity *models.Identity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignIn verifies an ID token and announces the identity behind it.
func (p *FirebaseIdentityProvider) SignIn(ctx context.Context, idToken string) (*models.Identity, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ID token", qerrors.Forbidden)
	}
	identity, err := p.identity(ctx, token.UID)
	if err != nil {
		return nil, err
	}
	p.emit(identity)
	return identity, nil
}

// SignOut announces that no identity is signed in.
func (p *FirebaseIdentityProvider) SignOut(ctx context.Context) error {
	p.emit(nil)
	return nil
}

// CreateSessionCookie exchanges an ID token for a session cookie. Firebase verifies the token in
// the process.
func (p *FirebaseIdentityProvider) CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ID token", qerrors.Forbidden)
	}
	// Reject disallowed domains before a cookie is ever issued.
	if _, err := p.identity(ctx, token.UID); err != nil {
		return "", err
	}

	cookie, err := p.client.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", qerrors.Backend("creating session cookie", err)
	}
	return cookie, nil
}

// VerifySessionCookie checks a session cookie, including whether the session was revoked or the
// user disabled, and returns its identity.
func (p *FirebaseIdentityProvider) VerifySessionCookie(ctx context.Context, cookie string) (*models.Identity, error) {
	token, err := p.client.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session", qerrors.Forbidden)
	}
	return p.identity(ctx, token.UID)
}

// Helpers

func (p *FirebaseIdentityProvider) identity(ctx context.Context, uid string) (*models.Identity, error) {
	user, err := p.client.GetUser(ctx, uid)
	if err != nil {
		if firebaseAuth.IsUserNotFound(err) {
			return nil, qerrors.UserNotFoundError
		}
		return nil, qerrors.Backend("getting user", err)
	}

	identity := &models.Identity{
		ID:          user.UID,
		Email:       models.NormalizeEmail(user.Email),
		DisplayName: user.DisplayName,
		AvatarURL:   user.PhotoURL,
	}
	if !EmailAllowed(identity.Email, p.allowedDomains) {
		return nil, qerrors.InvalidEmailError
	}
	return identity, nil
}

func (p *FirebaseIdentityProvider) emit(identity *models.Identity) {
	p.mu.Lock()
	fns := make([]func(*models.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}

// EmailAllowed reports whether email belongs to one of domains. An empty list allows every
// email, and the super admin is always allowed.
func EmailAllowed(email string, domains []string) bool {
	if len(domains) == 0 || models.IsSuperAdminEmail(email) {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if domain == d {
			return true
		}
	}
	return false
}
