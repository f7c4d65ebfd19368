package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/export"
	"github.com/sheriffsale/auctionmap/internal/pipeline"
	"github.com/sheriffsale/auctionmap/pkg/geocode"
)

var processOut string

var processCmd = &cobra.Command{
	Use:   "process <auction-list.xlsx>",
	Short: "Process an auction list into spreadsheet, GeoJSON, and map artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		resolver := geocode.NewResolver(st,
			geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
			geocode.WithAISBaseURL(cfg.Geocode.AISBaseURL),
			geocode.WithGatekeeperKey(cfg.Geocode.GatekeeperKey),
			geocode.WithNominatimBaseURL(cfg.Geocode.NominatimBaseURL),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithAccountDelay(time.Duration(cfg.Geocode.AccountDelayMS)*time.Millisecond),
			geocode.WithSearchDelay(time.Duration(cfg.Geocode.SearchDelayMS)*time.Millisecond),
			geocode.WithRateLimit(cfg.Geocode.RateLimitRPS),
		)

		result, err := pipeline.New(cfg.Pipeline, resolver, st).Run(ctx, input)
		if err != nil {
			return err
		}

		outDir := processOut
		if outDir == "" {
			outDir = cfg.Export.Dir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}

		xlsxPath := filepath.Join(outDir, cfg.Export.XLSXName)
		if err := export.WriteXLSX(xlsxPath, result.Records); err != nil {
			return err
		}
		geojsonPath := filepath.Join(outDir, cfg.Export.GeoJSONName)
		if err := export.WriteGeoJSON(geojsonPath, result.Records); err != nil {
			return err
		}
		mapPath := filepath.Join(outDir, cfg.Export.MapName)
		if err := export.WriteHTMLMap(mapPath, result.Groups); err != nil {
			return err
		}

		resolved := 0
		for i := range result.Records {
			if result.Records[i].HasCoords() {
				resolved++
			}
		}
		zap.L().Info("process complete",
			zap.String("run_id", result.RunID),
			zap.Int("records", len(result.Records)),
			zap.Int("resolved", resolved),
			zap.Int("neighborhoods", len(result.Groups)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %d records (%d resolved) into %s\n",
			len(result.Records), resolved, outDir)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOut, "out", "o", "", "output directory (default from config)")
	rootCmd.AddCommand(processCmd)
}
