package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/listing-customizer/internal/ratelimit"
	"github.com/jonathan/listing-customizer/internal/server"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes listing, overlay and cache maintenance endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("shutdown", "error", err)
		}
	}()

	port := a.cfg.Server.Port
	if servePort != "" {
		port = servePort
	}

	opts := server.Options{
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:      a.logger,
	}
	if a.cfg.Auth.JWTSecret != "" {
		jwtConfig, err := a.cfg.JWT()
		if err != nil {
			return fmt.Errorf("failed to create JWT config: %w", err)
		}
		opts.JWTService = server.NewJWTService(jwtConfig)
	} else {
		a.logger.Warn("auth.jwt_secret not set; overlay and cache routes will reject every request")
	}

	srv := server.New(server.Config{
		Port:           port,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		UploadDir:      a.files.BasePath(),
		UploadPrefix:   a.files.PublicPrefix(),
		MaxUploadBytes: a.cfg.Uploads.MaxBytes,
	}, a.svc, opts)

	return srv.Start(ctx)
}
