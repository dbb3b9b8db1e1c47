package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Alexander-D-Karpov/redditmusic/internal/api"
	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/internal/services"
	"github.com/Alexander-D-Karpov/redditmusic/internal/storage"
)

var (
	configPath string
	cfg        *config.Config
	log        = logging.For("MAIN")
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging for all components")
	lo.Must0(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
}

var rootCmd = &cobra.Command{
	Use:           "redditmusic",
	Short:         "Play music posted to Reddit from the terminal",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		if err := logging.Setup(cfg); err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}

		log.WithFields(logrus.Fields{
			"api":      cfg.API.BaseURL,
			"database": cfg.Storage.DatabasePath,
		}).Debug("Configuration loaded")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

// session wires the pieces every command needs: the Reddit client, the
// settings database, the store hydrated from it, and the fetch service.
type session struct {
	client   *api.Client
	db       *storage.Database
	store    *player.Store
	fetch    *services.FetchService
	settings *services.SettingsSync
}

func newSession(ctx context.Context) (*session, error) {
	db, err := storage.NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := player.NewStore(player.DefaultSettings(cfg))
	settings := services.NewSettingsSync(store, db)
	if err := settings.Hydrate(ctx); err != nil {
		log.WithError(err).Warn("Failed to restore settings, using defaults")
	}
	settings.Start()

	client := api.NewClient(cfg)

	return &session{
		client:   client,
		db:       db,
		store:    store,
		fetch:    services.NewFetchService(cfg, client, store),
		settings: settings,
	}, nil
}

func (s *session) Close() {
	s.fetch.Cancel()
	s.settings.Stop()

	log.WithFields(logrus.Fields(s.client.Stats())).Debug("API usage")

	if err := s.db.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
