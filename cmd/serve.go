package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/fiv-automation/internal/api"
	"github.com/ginjaninja78/fiv-automation/internal/converter"
)

var serveAddr string

// serveCmd exposes both pipelines over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the FIV and settlement pipelines over HTTP",
	Long: `Endpoints:
  POST /api/v1/fiv                  invoiceFile, referenceFile -> FIV workbook
  POST /api/v1/settlement/sheets    file -> candidate worksheets
  POST /api/v1/settlement/filter    file, sheet, start, end -> filtered workbook
  GET  /health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := mainConfig.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		router := api.NewRouter(mainConfig, converter.New(mainConfig, logger), logger)
		logger.Info("FIV service listening", zap.String("addr", addr))
		if err := router.Run(addr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}
