package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"kknotes/internal/config"
	"kknotes/internal/firebase"
	"kknotes/internal/repository"
	"kknotes/internal/store"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "kknotes",
		Short:         "KKNotes study material backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// glog reads its settings from the standard flag set; cobra has already filled it in.
			if err := flag.CommandLine.Parse(nil); err != nil {
				return err
			}
			return initConfig()
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(serveCommand(), whoamiCommand(), watchCommand())

	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kknotes:", err)
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	d := config.DefaultConfig()

	flags := cmd.PersistentFlags()
	flags.AddGoFlagSet(flag.CommandLine)
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.Int("port", d.Port, "HTTP port")
	flags.String("store", d.StoreBackend, "Content store backend (rtdb, memory)")
	flags.String("activity", d.ActivityBackend, "Activity log backend (rtdb, firestore)")
	flags.String("credentials", d.CredentialsFile, "Firebase service account file")
	flags.String("project-id", d.ProjectID, "Firebase project ID")
	flags.String("database-url", d.DatabaseURL, "Realtime Database URL")

	bindFlag(cmd, "http.port", "port")
	bindFlag(cmd, "store.backend", "store")
	bindFlag(cmd, "activity.backend", "activity")
	bindFlag(cmd, "firebase.credentials_file", "credentials")
	bindFlag(cmd, "firebase.project_id", "project-id")
	bindFlag(cmd, "firebase.database_url", "database-url")
}

func bindFlag(cmd *cobra.Command, key, name string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kknotes")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}
	return nil
}

// bootstrap loads the configuration, initializes Firebase and builds the process-wide
// repository. Background work such as the connectivity heartbeat stops with ctx.
func bootstrap(ctx context.Context) (*config.ServerConfig, *repository.StoreRepository, error) {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	config.Config = c

	err = firebase.Initialize(ctx, firebase.Options{
		CredentialsFile: c.CredentialsFile,
		ProjectID:       c.ProjectID,
		DatabaseURL:     c.DatabaseURL,
	})
	if err != nil {
		return nil, nil, err
	}

	s, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	activity, err := openActivityLog(c, s)
	if err != nil {
		return nil, nil, err
	}

	r, err := repository.New(repository.Config{
		Store:                 s,
		Activity:              activity,
		ChatMessagesPerMinute: c.ChatMessagesPerMinute,
	})
	if err != nil {
		return nil, nil, err
	}
	repository.Repository = r
	return c, r, nil
}

func openStore(ctx context.Context, c *config.ServerConfig) (store.Store, error) {
	if c.StoreBackend == "memory" {
		glog.Warning("using the in-memory store; nothing will be persisted")
		return store.NewMemory(nil), nil
	}

	client, err := firebase.Database()
	if err != nil {
		return nil, err
	}
	rtdb := store.NewRTDB(client)
	rtdb.OnConnectedChange(func(connected bool) {
		glog.Infof("realtime database connected: %v", connected)
	})
	go rtdb.StartHeartbeat(ctx)
	return rtdb, nil
}

func openActivityLog(c *config.ServerConfig, s store.Store) (repository.ActivityLog, error) {
	if c.ActivityBackend != "firestore" {
		return repository.NewStoreActivityLog(s), nil
	}
	client, err := firebase.Firestore()
	if err != nil {
		return nil, err
	}
	return repository.NewFirestoreActivityLog(client), nil
}
