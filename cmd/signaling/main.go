package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossy-p/signalhub/config"
	"github.com/mossy-p/signalhub/internal/handlers"
	"github.com/mossy-p/signalhub/internal/logging"
	"github.com/mossy-p/signalhub/internal/middleware"
	"github.com/mossy-p/signalhub/internal/redis"
	"github.com/mossy-p/signalhub/internal/signaling"
	"github.com/mossy-p/signalhub/internal/turn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	logging.Setup("info", "console")
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("signalhub failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "signalhub",
		Short:         "WebRTC signaling relay with rooms and TURN credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the signaling server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	root.AddCommand(newTokenCmd(&configPath))
	return root
}

func newTokenCmd(configPath *string) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the /api endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, subject, ttl, time.Now())
			if err != nil {
				return errors.Wrap(err, "issue token")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serve(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	var presence signaling.Presence
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		p := redis.NewPresence(client, cfg.Redis.TTL, 0)
		go p.Run(ctx)
		defer p.Close()
		presence = p
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis presence mirror enabled")
	}

	hub := handlers.NewHub(signaling.Options{
		MaxClients:  cfg.Rooms.MaxClients,
		StunServers: cfg.StunServers,
		Minter:      turn.NewMinter(cfg.Turn()),
		Presence:    presence,
	})
	go hub.Run(ctx)

	router := handlers.NewRouter(ctx, cfg, hub)
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Keys are read before privileges are dropped.
	scheme := "http"
	if cfg.Server.Secure {
		cert, err := loadCertificate(cfg.Server.Cert, cfg.Server.Key, cfg.Server.Password)
		if err != nil {
			return err
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		scheme = "https"
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	if cfg.UID != 0 {
		if err := dropPrivileges(cfg.UID); err != nil {
			_ = ln.Close()
			return err
		}
		log.Info().Int("uid", cfg.UID).Msg("dropped privileges")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("url", fmt.Sprintf("%s://localhost:%d", scheme, cfg.Server.Port)).Msg("Signaling server running")
		if cfg.Server.Secure {
			serveErr <- srv.ServeTLS(ln, "", "")
		} else {
			serveErr <- srv.Serve(ln)
		}
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
