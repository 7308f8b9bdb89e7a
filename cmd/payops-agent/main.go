// Command payops-agent runs the closed-loop payment remediation agent:
// an event feed (simulated or Kafka), the detection and decision cycle,
// and a websocket endpoint streaming cycle results to dashboards.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"

	"github.com/meshpay/payops-agent/config"
	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/engine"
	"github.com/meshpay/payops-agent/executor"
	"github.com/meshpay/payops-agent/memory"
	"github.com/meshpay/payops-agent/provider"
	"github.com/meshpay/payops-agent/recall"
	chromemstore "github.com/meshpay/payops-agent/recall/store/chromem"
	"github.com/meshpay/payops-agent/report"
	"github.com/meshpay/payops-agent/simulator"
	"github.com/meshpay/payops-agent/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := memory.NewStore()
	exec := executor.New(store, executor.WithAlertCooldown(cfg.AlertCooldown))

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	llm := provider.NewAnthropic(&client,
		provider.WithModel(cfg.Model),
		provider.WithMaxTokens(cfg.MaxTokens),
		provider.WithTimeout(cfg.ProviderTimeout),
	)

	engineOpts := []engine.Option{}
	if cfg.RecallEnabled {
		incidents, err := chromemstore.New()
		if err != nil {
			log.Fatalf("[MAIN] incident store: %v", err)
		}
		defer incidents.Close()
		emb, closeEmb, err := newEmbedder(cfg)
		if err != nil {
			log.Fatalf("[MAIN] embedder: %v", err)
		}
		defer closeEmb()
		engineOpts = append(engineOpts, engine.WithRecall(
			recall.NewSimpleManager(incidents, emb, nil),
		))
	}
	eng := engine.New(store, llm, exec, engineOpts...)

	hub := report.NewHub()
	defer hub.Close()

	controller := engine.NewController(eng,
		engine.WithInterval(cfg.CycleInterval),
		engine.WithOnResult(func(result *core.CycleResult) {
			hub.Broadcast(result)
		}),
	)

	sim := simulator.New()
	switch cfg.EventSource {
	case "kafka":
		consumer, err := stream.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.KafkaTopic, store)
		if err != nil {
			log.Fatalf("[MAIN] kafka consumer: %v", err)
		}
		defer consumer.Close()
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("[MAIN] kafka start: %v", err)
		}
	default:
		go pumpSimulator(ctx, sim, store, cfg.FeedInterval, cfg.BatchSize)
	}

	controller.Start(ctx)
	defer controller.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/scenarios/", scenarioHandler(sim))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[MAIN] listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[MAIN] http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[MAIN] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[MAIN] http shutdown: %v", err)
	}
}

// pumpSimulator feeds synthetic transaction batches into the store until the
// context is cancelled.
func pumpSimulator(ctx context.Context, sim *simulator.Simulator, store *memory.Store, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[MAIN] simulator feed: batch=%d every %s", batchSize, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Ingest(sim.GenerateBatch(batchSize))
		}
	}
}

// scenarioHandler toggles simulator scenarios:
// POST /scenarios/{name}/activate and POST /scenarios/{name}/deactivate.
func scenarioHandler(sim *simulator.Simulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/scenarios/")
		var name string
		var activate bool
		switch {
		case strings.HasSuffix(rest, "/activate"):
			name = strings.TrimSuffix(rest, "/activate")
			activate = true
		case strings.HasSuffix(rest, "/deactivate"):
			name = strings.TrimSuffix(rest, "/deactivate")
		default:
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var ok bool
		if activate {
			ok = sim.Activate(name)
		} else {
			ok = sim.Deactivate(name)
		}
		if !ok {
			http.Error(w, "unknown scenario", http.StatusNotFound)
			return
		}
		log.Printf("[MAIN] scenario %s active=%t", name, activate)
		w.WriteHeader(http.StatusOK)
	}
}
