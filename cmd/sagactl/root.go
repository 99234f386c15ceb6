package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/saga-engine/internal/config"
	"github.com/jwebster45206/saga-engine/internal/storage"
	"github.com/jwebster45206/saga-engine/pkg/library"
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	muted = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	good  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	bad   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sagactl",
		Short:         "Inspect and maintain saga-engine worlds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newWorldsCmd(), newCharactersCmd())
	return root
}

// openLibrary loads the library from the configured backend. The returned
// func closes the backend.
func openLibrary(ctx context.Context) (*library.Library, func(), error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, _, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	cleanup := func() { _ = store.Close() }

	lib := library.New(store, logger)
	if err := lib.Load(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return lib, cleanup, nil
}
