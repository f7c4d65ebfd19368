package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/config"
	"github.com/sheriffsale/auctionmap/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "auctionmap",
	Short: "Sheriff sale auction geocoding pipeline",
	Long:  "Parses the sheriff sale auction list, geocodes every property through a tiered resolver with a persistent cache, clusters nearby listings, and renders the spreadsheet, GeoJSON, and map artifacts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore opens the cache database and applies migrations.
func initStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
