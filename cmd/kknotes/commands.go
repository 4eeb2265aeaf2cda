package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kknotes/internal/auth"
	"kknotes/internal/firebase"
	"kknotes/internal/loader"
	"kknotes/internal/models"
	"kknotes/internal/server"
	"kknotes/internal/session"

	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, r, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			provider, err := identityProvider(c.AllowedEmailDomains)
			if err != nil {
				return err
			}
			auth.Setup(provider, session.NewResolver(r))

			return server.Start(ctx)
		},
	}
}

func whoamiCommand() *cobra.Command {
	var idToken string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Sign in with an ID token and print the resolved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, r, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			provider, err := identityProvider(c.AllowedEmailDomains)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), c.LoadTimeout)
			defer cancel()

			tracker := session.NewTracker(session.NewResolver(r))
			tracker.Follow(ctx, provider)
			sessions := tracker.Subscribe(ctx)

			if _, err := provider.SignIn(ctx, idToken); err != nil {
				return err
			}
			for s := range sessions {
				if !s.Authenticated {
					continue
				}
				out, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			return errors.New("timed out resolving the session")
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Firebase ID token to sign in with")
	cmd.MarkFlagRequired("id-token")
	return cmd
}

func watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <notes|videos> <semester> <subject>",
		Short: "Print a content list and refresh it until interrupted",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := models.ParseContentType(args[0])
			if !ok {
				return fmt.Errorf("unknown content type %q", args[0])
			}
			semester, subject := args[1], args[2]

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, r, err := bootstrap(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			view := loader.NewView[[]*models.ContentItem](string(t)+"/"+semester+"/"+subject, c.LoadTimeout)
			view.Watch(ctx, c.PollInterval, func(ctx context.Context) ([]*models.ContentItem, error) {
				return r.ListContentItems(ctx, t, semester, subject)
			}, func(items []*models.ContentItem, err error) {
				if err != nil {
					fmt.Fprintf(out, "load failed: %v\n", err)
					return
				}
				fmt.Fprintf(out, "-- %d %s in %s/%s (load %d)\n", len(items), t, semester, subject, view.Generation())
				for _, item := range items {
					fmt.Fprintf(out, "%s\t%s\t%s\n", item.ID, item.Title, item.Link)
				}
			})
			return nil
		},
	}
}

func identityProvider(allowedDomains []string) (*auth.FirebaseIdentityProvider, error) {
	client, err := firebase.Auth()
	if err != nil {
		return nil, err
	}
	return auth.NewFirebaseIdentityProvider(client, allowedDomains), nil
}
