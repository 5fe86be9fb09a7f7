package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/veridoc-io/reportlint/internal/llm"
	"github.com/veridoc-io/reportlint/internal/server"
	"github.com/veridoc-io/reportlint/internal/store"
)

var (
	serveAddr      string
	serveUploadDir string
	serveDataDir   string
	serveJSONLogs  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review server",
	Long: `Start the HTTP review server: upload documents, analyze them, preview
the findings and download annotated copies.

Every provider with an API key in the configuration is registered and
selectable per analyze request.

Examples:
  reportlint serve
  reportlint serve --addr :9000 --data-dir ./data`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveUploadDir, "upload-dir", "", "directory for uploaded documents")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "directory for the document registry")
	serveCmd.Flags().BoolVar(&serveJSONLogs, "json-logs", false, "emit logs as JSON")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveJSONLogs {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveUploadDir != "" {
		cfg.Server.UploadDir = serveUploadDir
	}
	if serveDataDir != "" {
		cfg.Server.DataDir = serveDataDir
	}

	st, err := store.New(cfg.Server.DataDir)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	registry := llm.NewRegistry()
	for name := range cfg.Providers {
		provider, err := buildProvider(cfg, name, "")
		if err != nil {
			logrus.WithError(err).WithField("provider", name).Warn("provider not available")
			continue
		}
		if err := registry.Register(provider); err != nil {
			return err
		}
	}
	if registry.Count() == 0 {
		return fmt.Errorf("no review providers configured; set an API key and retry")
	}
	if !registry.Has(cfg.DefaultProvider) {
		cfg.DefaultProvider = registry.List()[0]
	}

	return server.New(cfg, st, registry).Run()
}
