package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphflow/engine/cmd/server/config"
	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/infrastructure/cache"
	"github.com/graphflow/engine/internal/infrastructure/graph"
	"github.com/graphflow/engine/internal/infrastructure/graph/loader"
	"github.com/graphflow/engine/internal/infrastructure/http/handlers"
	"github.com/graphflow/engine/internal/infrastructure/http/middleware"
	"github.com/graphflow/engine/internal/infrastructure/llm"
	"github.com/graphflow/engine/internal/infrastructure/messaging/nats"
	"github.com/graphflow/engine/internal/infrastructure/monitoring"
	"github.com/graphflow/engine/internal/infrastructure/persistence/postgres"
	"github.com/graphflow/engine/internal/infrastructure/scheduler"
	"github.com/graphflow/engine/internal/infrastructure/tools"
	"github.com/graphflow/engine/internal/nodes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	fmt.Println("graphflow server")
	fmt.Printf("listening on: %s\n", cfg.ServerAddr())

	ctx := context.Background()

	var embedded *postgres.EmbeddedServer
	if cfg.Database.Embedded {
		var dbCfg postgres.Config
		embedded, dbCfg, err = postgres.StartEmbedded(uint32(cfg.Database.Port), cfg.Database.Database, cfg.Database.User, cfg.Database.Password)
		if err != nil {
			log.Fatalf("failed to start embedded postgres: %v", err)
		}
		cfg.Database.Host = dbCfg.Host
		defer embedded.Stop()
		fmt.Println("embedded postgres started")
	}

	if err := postgres.Migrate(cfg.PostgresDSN(), "file://migrations"); err != nil {
		log.Printf("migration warning: %v", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, Database: cfg.Database.Database, SSLMode: cfg.Database.SSLMode,
	})
	var routeSink *postgres.RouteStateSink
	if err != nil {
		log.Printf("database unavailable, route state sink disabled: %v", err)
	} else {
		defer postgres.Close(pool)
		routeSink = postgres.NewRouteStateSink(pool, 256)
		defer routeSink.Close()
		fmt.Println("route state sink connected")
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	var poolMirror *cache.PoolMirror
	if err != nil {
		log.Printf("redis unavailable, variable pool mirror disabled: %v", err)
	} else {
		defer redisCache.Close()
		poolMirror = cache.NewPoolMirror(redisCache, 24*time.Hour)
		fmt.Println("variable pool mirror connected")
	}

	watermillLogger := watermill.NewStdLogger(false, false)
	publisher, err := nats.NewPublisher(cfg.NATS.URL, watermillLogger)
	var eventPublisher *nats.Publisher
	if err != nil {
		log.Printf("nats unavailable, event publisher disabled: %v", err)
	} else {
		eventPublisher = publisher
		defer eventPublisher.Close()
		fmt.Println("event publisher connected")
	}

	metrics := monitoring.NewMetrics("graphflow")

	observer := &graph.RunObserver{
		RouteSink:  routeSink,
		PoolMirror: poolMirror,
		Publisher:  eventPublisher,
		Metrics:    metrics,
	}

	toolRegistry := tools.NewRegistry()
	if err := tools.RegisterBuiltinTools(toolRegistry); err != nil {
		log.Fatalf("failed to register built-in tools: %v", err)
	}

	llmClients := map[string]llm.Client{}
	if cfg.LLM.OpenAIAPIKey != "" {
		llmClients["openai"] = llm.NewOpenAIClient(cfg.LLM.OpenAIAPIKey)
	}
	if cfg.LLM.AnthropicAPIKey != "" {
		llmClients["anthropic"] = llm.NewAnthropicClient(cfg.LLM.AnthropicAPIKey)
	}

	registry := nodes.Register(llmClients, toolRegistry)

	definitions, err := loader.FromDir(cfg.Engine.GraphsDir)
	if err != nil {
		log.Fatalf("failed to load graph definitions: %v", err)
	}
	fmt.Printf("loaded %d graph definitions from %s\n", len(definitions), cfg.Engine.GraphsDir)

	engines := make(map[string]*graph.Engine, len(definitions))
	for id, def := range definitions {
		mode := graph.ModeWorkflow
		if def.Mode == "chat" {
			mode = graph.ModeChat
		}
		engines[id] = graph.NewEngine(graph.Config{
			Graph:    def.Graph,
			Registry: registry,
			Mode:     mode,
			Limits:   graph.Limits{MaxSteps: cfg.Engine.MaxSteps, MaxExecutionTime: cfg.Engine.MaxExecutionTime},
			Timeout:  cfg.Engine.Timeout,
		})
	}

	if cfg.Cron.Expr != "" {
		targetEngine, ok := engines[cfg.Cron.GraphID]
		if !ok {
			log.Printf("scheduler disabled: graph %q not found", cfg.Cron.GraphID)
		} else {
			emptyInputs := func() *execution.VariablePool { return execution.NewVariablePool() }
			sched, err := scheduler.New(cfg.Cron.Expr, cfg.Cron.GraphID, targetEngine, emptyInputs, observer)
			if err != nil {
				log.Fatalf("failed to start scheduler: %v", err)
			}
			sched.Start(ctx)
			fmt.Printf("scheduler firing %q on %q\n", cfg.Cron.GraphID, cfg.Cron.Expr)
		}
	}

	runHandler := handlers.NewRunHandler(engines, observer)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler()

	e.Use(middleware.Logger())
	e.Use(middleware.Metrics(metrics))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if redisCache != nil {
		e.Use(middleware.RedisRateLimit(redisCache.Client(), 60, time.Minute))
	} else {
		e.Use(middleware.SimpleRateLimit(20, 40))
	}

	if cfg.Auth.Enabled {
		e.Use(middleware.OptionalAuth(cfg.Auth.JWTSecret))
		fmt.Println("authentication enabled")
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "healthy"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/v1")
	api.POST("/graphs/:graph_id/runs", runHandler.CreateRun)

	go func() {
		if err := e.Start(cfg.ServerAddr()); err != nil {
			log.Printf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	fmt.Println("shutdown complete")
}
