// Command sockgate runs the websocket admission gateway.
//
// It supports two commands:
//  1. "serve" (default) – runs the HTTP server exposing /ws, the REST API, /metrics and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server against an existing API or an internal one
//
// Settings come from SOCKGATE_* environment variables (optionally loaded from
// a .env file); command line flags override them.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/sockgate/api"
	"github.com/wricardo/sockgate/config"
	"github.com/wricardo/sockgate/game/auth"
	"github.com/wricardo/sockgate/game/service"
	"github.com/wricardo/sockgate/game/session"
	"github.com/wricardo/sockgate/logging"
	"github.com/wricardo/sockgate/metrics"
	"github.com/wricardo/sockgate/transport/mcp"
	"github.com/wricardo/sockgate/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "sockgate"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "websocket admission gateway with ticket cookies",
		Version: Version,
		Flags:   serverFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run HTTP server with /ws, REST API, /metrics and /mcp (default)",
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "REST API to proxy to; an internal server is started when unreachable",
					},
				},
				Action: runMCP,
			},
		},
	}
}

// serverFlags are declared on the root command and inherited by subcommands
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before reading the environment"},
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		&cli.StringFlag{Name: "cookie-name", Usage: "Identity ticket cookie name"},
		&cli.StringFlag{Name: "wire-format", Usage: "Inbound frame format (json or text)"},
		&cli.StringSliceFlag{Name: "allowed-origin", Usage: "Origin allowed on /ws (repeatable; default any)"},
		&cli.DurationFlag{Name: "prune-interval", Usage: "How often to prune stale tickets (0 disables)"},
		&cli.DurationFlag{Name: "prune-after", Usage: "Age after which a ticket without sockets is pruned"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
	}
}

// loadConfig reads .env and the environment, then applies flags that were set
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(cmd.String("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("cookie-name") {
		cfg.CookieName = cmd.String("cookie-name")
	}
	if cmd.IsSet("wire-format") {
		cfg.WireFormat = cmd.String("wire-format")
	}
	if cmd.IsSet("allowed-origin") {
		cfg.AllowedOrigins = cmd.StringSlice("allowed-origin")
	}
	if cmd.IsSet("prune-interval") {
		cfg.PruneInterval = cmd.Duration("prune-interval")
	}
	if cmd.IsSet("prune-after") {
		cfg.PruneAfter = cmd.Duration("prune-after")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services holds everything a running gateway needs
type services struct {
	registry *session.Registry
	hub      *websocket.Hub
	metrics  *metrics.Metrics
	gateway  *websocket.Gateway
	service  service.ConnectionService
	api      *api.Server
}

// initializeServices wires the registry, hub, gateway and REST API.
// The hub is not started; callers run it with their own context.
func initializeServices(cfg *config.Config, logger *zap.Logger) *services {
	registry := session.NewRegistry()
	m := metrics.New(registry.Count)
	hub := websocket.NewHub(logger, m)
	authorizer := auth.NewPresenceAuthorizer(registry)

	gateway := websocket.NewGateway(registry, hub,
		websocket.WithAuthorizer(authorizer),
		websocket.WithCodec(cfg.Codec()),
		websocket.WithCheckOrigin(cfg.OriginChecker()),
		websocket.WithDecoder(cfg.Decoder()),
		websocket.WithLogger(logger),
		websocket.WithMetrics(m),
	)

	svc := service.NewConnectionService(registry, authorizer, hub)

	return &services{
		registry: registry,
		hub:      hub,
		metrics:  m,
		gateway:  gateway,
		service:  svc,
		api:      api.NewServer(svc, gateway, m.Handler(), logger),
	}
}

// newRouter mounts the API server and the /mcp endpoint
func newRouter(s *services, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", s.api)
	if mcpClient != nil {
		mainRouter.Handle("/mcp", mcpClient)
	}
	return mainRouter
}

// runServe starts the HTTP server and, if enabled, the ngrok tunnel and the
// prune routine. It blocks until SIGINT/SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := initializeServices(cfg, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()

	if cfg.PruneEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruneRoutine(ctx, s.registry, s.hub, cfg.PruneInterval, cfg.PruneAfter, logger)
		}()
	}

	addr := cfg.Addr()
	mcpClient := mcp.NewClient("http://" + addr)
	handler := newRouter(s, mcpClient)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("websocket", "ws://"+addr+"/ws"),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("mcp", "http://"+addr+"/mcp"),
			zap.String("cookie", cfg.CookieName),
			zap.String("wire_format", cfg.WireFormat),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		logger.Error("HTTP server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, logger *zap.Logger) {
	if cfg.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel", zap.String("domain", cfg.Domain))
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 15 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("websocket", url+"/ws"),
		zap.String("api", url+"/api"),
	)

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// pruneRoutine periodically removes tickets admitted more than after ago
// that have no live socket.
func pruneRoutine(ctx context.Context, registry *session.Registry, hub *websocket.Hub, interval, after time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := registry.Prune(now.Add(-after), hub.IsLive)
			if removed > 0 {
				logger.Info("pruned stale tickets", zap.Int("removed", removed), zap.Int("remaining", registry.Count()))
			}
		}
	}
}

// runMCP runs an MCP stdio server. It proxies to --api-url, or the configured
// address when a server already answers there; otherwise it starts an
// internal HTTP API on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	if baseURL == "" {
		baseURL = "http://" + cfg.Addr()
	}

	if !apiReachable(baseURL) {
		logger.Info("no API server found, starting internal HTTP server", zap.String("tried", baseURL))

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen for internal server: %w", err)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		s := initializeServices(cfg, logger)
		go s.hub.Run(ctx)

		httpServer := &http.Server{Handler: s.api, ReadHeaderTimeout: 15 * time.Second}
		defer httpServer.Close()

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()

		baseURL = "http://" + listener.Addr().String()
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	if err := mcp.NewClient(baseURL).ServeStdio(); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

func apiReachable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
