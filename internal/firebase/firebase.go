package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebaseSDK "firebase.google.com/go"
	firebaseAuth "firebase.google.com/go/auth"
	"firebase.google.com/go/db"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase App object. It is nil until Initialize succeeds.
var App *firebaseSDK.App
var Context context.Context

// Options selects the Firebase project and credentials.
type Options struct {
	CredentialsFile string
	ProjectID       string
	DatabaseURL     string
}

// Initialize creates the process-wide Firebase App. It is called once at startup; every client
// built from it shares the same connection settings.
func Initialize(ctx context.Context, o Options) error {
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}

	app, err := firebaseSDK.NewApp(ctx, &firebaseSDK.Config{
		ProjectID:   o.ProjectID,
		DatabaseURL: o.DatabaseURL,
	}, opts...)
	if err != nil {
		return fmt.Errorf("error initializing Firebase app: %v", err)
	}

	App = app
	Context = ctx
	return nil
}

// Database returns a Realtime Database client for the initialized App.
func Database() (*db.Client, error) {
	if App == nil {
		return nil, fmt.Errorf("firebase app is not initialized")
	}
	return App.Database(Context)
}

// Auth returns an Auth client for the initialized App.
func Auth() (*firebaseAuth.Client, error) {
	if App == nil {
		return nil, fmt.Errorf("firebase app is not initialized")
	}
	return App.Auth(Context)
}

// Firestore returns a Firestore client for the initialized App.
func Firestore() (*firestore.Client, error) {
	if App == nil {
		return nil, fmt.Errorf("firebase app is not initialized")
	}
	return App.Firestore(Context)
}
