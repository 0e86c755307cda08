// tradeagent runs the autonomous perpetual-futures trading agent: the
// scheduled scan/decision loop, the goal-driven orchestrator, the chat
// surface and the dashboard HTTP API, all sharing one store backend and
// one trade-contract enforcement layer.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/perpctl/tradeagent/pkg/api"
	"github.com/perpctl/tradeagent/pkg/autonomy"
	"github.com/perpctl/tradeagent/pkg/chat"
	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/masking"
	"github.com/perpctl/tradeagent/pkg/orchestrator"
	"github.com/perpctl/tradeagent/pkg/planner"
	"github.com/perpctl/tradeagent/pkg/reflector"
	"github.com/perpctl/tradeagent/pkg/scheduler"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/store/memstore"
	pgstore "github.com/perpctl/tradeagent/pkg/store/postgres"
	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/tradecontract"
	"github.com/perpctl/tradeagent/pkg/venue"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8080")
	ownerID := getEnv("INSTANCE_ID", "tradeagent-"+time.Now().UTC().Format("20060102150405"))

	cfg, err := config.Load(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bundle, pool, err := setupStore(ctx)
	if err != nil {
		log.Fatalf("setting up store: %v", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	market := venue.NewHyperliquidClient(cfg.Venue.BaseURL, cfg.Venue.RequestsPerSecond, cfg.Venue.Timeout, getEnv("WALLET_ADDRESS", ""))

	llmClient, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatalf("building LLM client: %v", err)
	}

	maskSvc, err := masking.New(cfg.Masking)
	if err != nil {
		log.Fatalf("building masking service: %v", err)
	}

	enforcer := tradecontract.New(cfg.TradeContract, market, bundle.Spending)

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry); err != nil {
		log.Fatalf("registering tools: %v", err)
	}

	orch := &orchestrator.Orchestrator{
		Config: cfg,
		Registry: registry,
		Planner: planner.New(llmClient),
		Reflector: reflector.New(llmClient),
		Critic: reflector.NewCritic(llmClient),

		Market: market,
		Journal: bundle.Journal,
		Incidents: bundle.Incidents,
		Playbooks: bundle.Playbooks,
		LLMClient: llmClient,
		Executor: enforcer,
		Limiter: bundle.Spending,
		Masker: maskSvc,

		Identity: "You are an autonomous perpetual futures trading agent. Be precise, cite the numbers behind every call, and never place an order the trade contract would reject.",
	}

	autonomyEngine := &autonomy.Engine{
		Config: cfg.Autonomy,
		Market: market,
		Executor: enforcer,
		Journal: bundle.Journal,
		Policy: bundle.Policy,
		Limiter: bundle.Spending,
		Discover: &autonomy.MarketScanDiscoverer{
			Market: market,
			Symbols: cfg.Venue.ConfiguredSymbols,
			MinFundingAbs: 0.0005,
		},
		Symbols: cfg.Venue.ConfiguredSymbols,
	}

	sched := scheduler.New(bundle.Scheduler, cfg.Scheduler, ownerID)

	scanJob := scheduler.NewAutonomyScanJob(autonomyEngine, cfg.Autonomy.BaseIntervalSeconds)
	if err := sched.Register(ctx, scanJob); err != nil {
		log.Fatalf("registering autonomy scan job: %v", err)
	}
	reportJob, err := scheduler.NewAutonomyDailyReportJob(autonomyEngine, cfg.Autonomy.DailyReportTime)
	if err != nil {
		log.Fatalf("building autonomy daily report job: %v", err)
	}
	if err := sched.Register(ctx, reportJob); err != nil {
		log.Fatalf("registering autonomy daily report job: %v", err)
	}

	chatSvc := &chat.Service{
		Orchestrator: orch,
		Scheduler: sched,
		Tasks: bundle.Tasks,
	}
	if slackToken := os.Getenv("SLACK_BOT_TOKEN"); slackToken != "" {
		slackAdapter := chat.NewSlackAdapter(slackToken, chatSvc)
		chatSvc.Notifier = slackAdapter
		autonomyEngine.Notify = func(ctx context.Context, message string) {
			for _, channel := range cfg.Autonomy.ChatChannels {
				if err := slackAdapter.Deliver(ctx, channel, "", message); err != nil {
					slog.Warn("autonomy: delivering notification to Slack failed", "channel", channel, "error", err)
				}
			}
		}
	}
	if err := chatSvc.RestoreActiveTasks(ctx); err != nil {
		log.Fatalf("restoring active scheduled tasks: %v", err)
	}

	sched.Start(ctx)
	defer sched.Stop()

	apiServer := api.NewServer(cfg, bundle.Journal, bundle.Incidents, bundle.Playbooks, bundle.Tasks, sched, bundle, chatSvc,
		[]string{scheduler.AutonomyScanJobName, scheduler.AutonomyDailyReportJobName})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}()

	log.Printf("tradeagent listening on %s (owner=%s)", httpAddr, ownerID)
	if err := apiServer.Start(httpAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server stopped: %v", err)
	}
}

// storeBundle collects one implementation of every store interface plus
// a Pinger, letting main wire orchestrator/autonomy/scheduler/api
// identically regardless of backend.
type storeBundle struct {
	Journal store.Journal
	Incidents store.Incidents
	Playbooks store.Playbooks
	Policy store.AutonomyPolicyStore
	Spending store.SpendingLimiter
	Scheduler store.SchedulerStore
	Tasks store.ScheduledTasks
	api.Pinger
}

type poolCloser interface {
	Close()
}

// setupStore connects to Postgres when DATABASE_URL is set, migrating on
// startup, and falls back to an in-memory store otherwise — the same
// fallback memstore.Bundle gives every package's tests, useful here for
// local runs without a database.
func setupStore(ctx context.Context) (*storeBundle, poolCloser, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("DATABASE_URL not set, using in-memory store")
		mem := memstore.New()
		return &storeBundle{
			Journal: mem.Journal, Incidents: mem.Incidents, Playbooks: mem.Playbooks,
			Policy: mem.Policy, Spending: mem.Spending, Scheduler: mem.Scheduler, Tasks: mem.Tasks,
			Pinger: mem,
		}, nil, nil
	}

	if err := pgstore.RunMigrations(dsn); err != nil {
		return nil, nil, err
	}
	pool, err := pgstore.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	log.Println("connected to PostgreSQL and applied migrations")
	pg := pgstore.New(pool)
	return &storeBundle{
		Journal: pg.Journal, Incidents: pg.Incidents, Playbooks: pg.Playbooks,
		Policy: pg.Policy, Spending: pg.Spending, Scheduler: pg.Scheduler, Tasks: pg.Tasks,
		Pinger: pool,
	}, pool, nil
}
