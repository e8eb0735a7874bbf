// Command kalah-game starts the Kalah board server.
//
// It supports two modes:
//  1. "server" (default): runs the HTTP server exposing the REST API, board
//     updates over WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp": runs an MCP stdio server backed by a running API server,
//     or by an internal one when none answers
//
// Flags (each with an environment variable) control host/port, the preset
// and data directories, debug logging, optional game archiving to Redis or
// MongoDB, and an optional ngrok tunnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/kalah-game/api"
	"github.com/wricardo/kalah-game/game/archive"
	"github.com/wricardo/kalah-game/game/boards"
	"github.com/wricardo/kalah-game/game/config"
	"github.com/wricardo/kalah-game/game/player"
	"github.com/wricardo/kalah-game/game/security"
	"github.com/wricardo/kalah-game/game/service"
	"github.com/wricardo/kalah-game/transport/mcp"
	"github.com/wricardo/kalah-game/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Kalah Game Server"
)

const (
	cleanupInterval = time.Hour
	finishedMaxAge  = 24 * time.Hour
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	} else {
		log.Debug().Msg("loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

// newApp declares the command line
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "kalah-game",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing opening presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "data-dir", Value: "data", Usage: "directory for boards and players", Sources: cli.EnvVars("DATA_DIR")},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for the start player and Computer moves (0 = time based)", Sources: cli.EnvVars("SEED")},
			&cli.StringFlag{Name: "redis-host", Usage: "archive game events to this Redis (host:port)", Sources: cli.EnvVars("REDIS_HOST")},
			&cli.StringFlag{Name: "redis-pass", Usage: "Redis password", Sources: cli.EnvVars("REDIS_PASS")},
			&cli.StringFlag{Name: "mongo-uri", Usage: "archive game records to this MongoDB", Sources: cli.EnvVars("MONGO_URI")},
			&cli.StringFlag{Name: "mongo-db", Value: "kalah", Usage: "MongoDB database", Sources: cli.EnvVars("MONGO_DB")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: setupLogging,
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server",
				Action:  runStdioMCP,
			},
		},
	}
}

// options is the parsed command line
type options struct {
	host        string
	port        int
	configDir   string
	dataDir     string
	seed        uint64
	redisHost   string
	redisPass   string
	mongoURI    string
	mongoDB     string
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        cmd.Int("port"),
		configDir:   cmd.String("config-dir"),
		dataDir:     cmd.String("data-dir"),
		seed:        cmd.Uint64("seed"),
		redisHost:   cmd.String("redis-host"),
		redisPass:   cmd.String("redis-pass"),
		mongoURI:    cmd.String("mongo-uri"),
		mongoDB:     cmd.String("mongo-db"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cmd.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return ctx, nil
}

// services holds everything the transports need
type services struct {
	game     service.GameService
	boards   *boards.Manager
	registry *security.Registry
	redis    *archive.RedisRecorder
}

// initializeServices wires presets, players, boards, archiving and the
// game service, restoring persisted players and boards.
func initializeServices(opts options) (*services, error) {
	presets, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}

	playerStore, err := security.NewFileStore(filepath.Join(opts.dataDir, "players.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to create player store: %w", err)
	}
	registryOptions := []security.Option{security.WithPlayerStore(playerStore)}
	if opts.seed != 0 {
		registryOptions = append(registryOptions, security.WithComputer(player.NewRandomPlayer(security.ComputerName, opts.seed)))
	}
	registry := security.NewRegistry(registryOptions...)
	if err := registry.LoadPersistedPlayers(); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted players")
	}

	persistence, err := boards.NewFilePersistence(filepath.Join(opts.dataDir, "boards"))
	if err != nil {
		return nil, fmt.Errorf("failed to create board persistence: %w", err)
	}
	boardManager := boards.NewManagerWithPersistence(persistence)
	if err := boardManager.LoadPersistedBoards(registry.FindPlayer); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted boards")
	}

	s := &services{boards: boardManager, registry: registry}

	var serviceOptions []service.Option
	if opts.seed != 0 {
		serviceOptions = append(serviceOptions, service.WithSeed(opts.seed))
	}

	var recorders archive.Multi
	if opts.redisHost != "" {
		s.redis = archive.NewRedisRecorder(opts.redisHost, opts.redisPass)
		recorders = append(recorders, s.redis)
		log.Info().Str("host", opts.redisHost).Msg("archiving game events to redis")
	}
	if opts.mongoURI != "" {
		recorders = append(recorders, archive.NewMongoRecorder(opts.mongoURI, opts.mongoDB))
		log.Info().Str("db", opts.mongoDB).Msg("archiving game records to mongodb")
	}
	if len(recorders) > 0 {
		serviceOptions = append(serviceOptions, service.WithRecorder(recorders))
	}

	s.game = service.NewGameService(registry, boardManager, presets, serviceOptions...)
	return s, nil
}

// close flushes boards and archived events
func (s *services) close() {
	if err := s.boards.SaveAll(); err != nil {
		log.Warn().Err(err).Msg("failed to save boards")
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to flush redis archive")
		}
	}
}

// cleanupRoutine drops long finished boards from memory
func (s *services) cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.boards.CleanupFinished(finishedMaxAge); removed > 0 {
				log.Info().Int("count", removed).Msg("cleaned up finished boards")
			}
		case <-ctx.Done():
			return
		}
	}
}

// newRouter mounts the REST API at the root and the MCP proxy at /mcp
func newRouter(gameService service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(gameService, hub))
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer serves until ctx is cancelled. If ngrok is enabled it also
// serves through a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Info().Str("version", Version).Msg("starting " + AppName)

	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	go svcs.cleanupRoutine(ctx)

	addr := opts.addr()
	router := newRouter(svcs.game, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("rest", fmt.Sprintf("http://%s/v1", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?board=<board_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, router)
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Info().Msg("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Info().Str("domain", opts.ngrokDomain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("rest", ngrokURL+"/v1").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on the configured address; otherwise it starts an internal one
// on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	externalURL := "http://" + opts.addr()

	baseURL, err := externalServer(externalURL)
	if err != nil {
		log.Info().Err(err).Msg("no external API server found, starting internal HTTP server")

		svcs, err := initializeServices(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + internalAddr
	}

	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// externalServer returns url when a healthy API server answers there
func externalServer(url string) (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url + "/health")
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return url, nil
}
