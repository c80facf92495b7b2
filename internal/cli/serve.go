package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/server"
	"github.com/ppiankov/clearview/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveFlags  pipelineFlags
	serveAddr   string
	storeDriver string
	storeDSN    string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes extraction, analysis, uploads and PDF reports over HTTP.

Routes:
  GET  /health
  GET  /extract          POST /extract
  POST /analyze          POST /analyze/upload
  POST /report           GET  /records[/:id]

Example:
  clearview serve --addr :8080
  clearview serve --store sqlite --dsn ./clearview.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&storeDriver, "store", "", "report store driver (mysql, sqlite)")
	serveCmd.Flags().StringVar(&storeDSN, "dsn", "", "report store DSN")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := serveFlags.config()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if storeDSN != "" {
		cfg.Store.DSN = storeDSN
	}

	p, closer, err := serveFlags.build(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if st != nil {
		defer func() { _ = st.Close() }()
	} else {
		log.Info().Msg("report persistence disabled")
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(p, render.NewPDFRenderer(cfg.Output.IncludeFooter), st, cfg.Server, Version)
	return srv.Run(ctx)
}
