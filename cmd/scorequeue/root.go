package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Guizzs26/scorebook-sync/internal/config"
	"github.com/Guizzs26/scorebook-sync/internal/kv"
	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/internal/offline"
	"github.com/Guizzs26/scorebook-sync/internal/remote"
	"github.com/Guizzs26/scorebook-sync/internal/service"
	"github.com/Guizzs26/scorebook-sync/pkg/infra"
)

// app is the wired device-side stack for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   kv.Store
	manager *offline.Manager
	client  *remote.Client
	probe   service.Probe
	syncer  *service.Synchronizer
}

var (
	cur *app

	flagStorePath string
	flagBackend   string
	flagAPIURL    string
	flagOffline   bool
)

var rootCmd = &cobra.Command{
	Use:          "scorequeue",
	Short:        "Offline scoring queue for the scorebook app",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		cur = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cur == nil {
			return nil
		}
		defer infra.CloseLogger()
		return cur.store.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStorePath, "store", "", "local data directory (default STORE_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "local storage backend: badger or sqlite (default STORE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api", "", "score API base URL (default API_URL)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "treat the score API as unreachable")
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagStorePath != "" {
		cfg.StorePath = flagStorePath
	}
	if flagBackend != "" {
		cfg.StoreBackend = flagBackend
	}
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}

	logger := slog.New(infra.NewHandler(cfg, cmd.ErrOrStderr()))
	slog.SetDefault(logger)

	store, err := kv.Open(cfg.StoreBackend, filepath.Clean(cfg.StorePath))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	manager := offline.NewManager(
		offline.NewActionStore(store),
		offline.NewSnapshotCache(store),
		offline.NewConflictLedger(store),
		logger,
	)

	client := remote.New(cfg.APIURL, cfg.RemoteTimeout)
	var probe service.Probe = remote.NewHTTPProbe(client, logger)
	if flagOffline {
		probe = remote.StaticProbe(false)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		manager: manager,
		client:  client,
		probe:   probe,
		syncer:  service.NewSynchronizer(manager.Actions(), manager.Conflicts(), client, probe, logger),
	}, nil
}

// parseFields reads a JSON object argument.
func parseFields(arg string) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal([]byte(arg), &doc); err != nil {
		return nil, fmt.Errorf("fields must be a JSON object: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("fields must be a JSON object")
	}
	return doc, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
