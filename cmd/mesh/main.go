package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wealthops/advisory-mesh/agents"
	"github.com/wealthops/advisory-mesh/broker"
	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/orchestrate"
	"github.com/wealthops/advisory-mesh/routing"
	"github.com/wealthops/advisory-mesh/transport/inmem"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to mesh config JSON file (optional)")
		query      = flag.String("query", "", "Advisor query to process (required)")
		household  = flag.String("household", "", "Household scope for the query")
		account    = flag.String("account", "", "Account scope for the query")
		tableFile  = flag.String("table", "", "Routing table YAML override (overrides config)")
		useLLM     = flag.Bool("llm", false, "Route with the LLM strategy (requires OPENAI_API_KEY)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Usage: mesh -query <text> [-household <id>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.DefaultMeshConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *tableFile != "" {
		cfg.Router.TablePath = *tableFile
	}
	if *useLLM {
		cfg.Router.Strategy = "llm"
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cfg.Broker.Logger = logger
	cfg.Coordinator.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus := inmem.New(inmem.Config{
		BufferSize:             cfg.Transport.BufferSize,
		MaxDeliveryCount:       cfg.Transport.MaxDeliveryCount,
		InitialRedeliveryDelay: cfg.Transport.InitialRedeliveryDelay(),
		MaxRedeliveryDelay:     cfg.Transport.MaxRedeliveryDelay(),
	})
	defer bus.Close()

	services := make([]*agents.Service, 0, 3)

	nl2sql, err := agents.NewNL2SQL(bus, cfg.Broker, demoSQLEngine())
	if err != nil {
		log.Fatalf("Failed to create nl2sql service: %v", err)
	}
	services = append(services, nl2sql)

	vector, err := agents.NewVector(bus, cfg.Broker, demoSearchEngine())
	if err != nil {
		log.Fatalf("Failed to create vector service: %v", err)
	}
	services = append(services, vector)

	api, err := agents.NewAPI(bus, cfg.Broker, demoPlanEngine())
	if err != nil {
		log.Fatalf("Failed to create api service: %v", err)
	}
	services = append(services, api)

	for _, svc := range services {
		go func(svc *agents.Service) {
			if err := svc.Run(ctx); err != nil {
				logger.Error("agent service stopped",
					slog.String("agent", svc.Agent().String()),
					slog.String("error", err.Error()))
			}
		}(svc)
	}

	orchBroker, err := broker.New(messaging.AgentOrchestrator, bus, cfg.Broker)
	if err != nil {
		log.Fatalf("Failed to create orchestrator broker: %v", err)
	}
	go func() {
		if err := orchBroker.Run(ctx); err != nil {
			logger.Error("orchestrator broker stopped", slog.String("error", err.Error()))
		}
	}()

	router, err := buildRouter(cfg.Router, logger)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	coordinator, err := orchestrate.NewCoordinator(
		router,
		orchestrate.NewBrokerClient(orchBroker),
		orchestrate.TextComposer{},
		cfg.Coordinator,
	)
	if err != nil {
		log.Fatalf("Failed to create coordinator: %v", err)
	}

	updates := coordinator.ProcessQuery(ctx, orchestrate.QueryRequest{
		Query:       *query,
		HouseholdID: *household,
		AccountID:   *account,
	})

	for update := range updates {
		switch update.Type {
		case orchestrate.UpdateComplete:
			fmt.Printf("\n%s\n", update.Content)
		case orchestrate.UpdateError:
			log.Fatalf("Query failed: %s", update.Content)
		default:
			fmt.Printf("[%s] %s: %s\n", update.Type, update.Agent, update.Content)
		}
	}

	metrics := orchBroker.Metrics()
	fmt.Printf("\nEnvelopes published: %d, received: %d\n", metrics.Published, metrics.Received)
}

// buildRouter assembles the routing strategy: keyword scoring by
// default, optionally fronted by the LLM router with keyword fallback.
func buildRouter(cfg config.RouterConfig, logger *slog.Logger) (routing.Router, error) {
	table := routing.DefaultTable()
	if cfg.TablePath != "" {
		loaded, err := routing.LoadTable(cfg.TablePath)
		if err != nil {
			return nil, err
		}
		table = loaded
	}

	keyword := routing.NewKeywordRouter(table)
	if cfg.Strategy != "llm" {
		return keyword, nil
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llm routing requires OPENAI_API_KEY")
	}
	llm := routing.NewLLMRouter(openai.NewClient(apiKey), cfg.Model, table)
	return routing.NewFallbackRouter(llm, keyword, logger), nil
}
