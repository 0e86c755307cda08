// Package api provides the HTTP surface for the trading agent: a
// dashboard read API over the journal/incidents/playbooks stores, the
// generic chat webhook ingress, and a health/readiness endpoint, wired
// with plain gin.Default() since gin is the API router this module's
// go.mod carries.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perpctl/tradeagent/pkg/chat"
	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/scheduler"
	"github.com/perpctl/tradeagent/pkg/store"
)

// Pinger is satisfied by a connection pool's Ping method, so Server can
// health-check storage without depending on pgxpool or memstore directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	engine *gin.Engine
	httpServer *http.Server

	cfg *config.Config
	journal store.Journal
	incidents store.Incidents
	playbooks store.Playbooks
	tasks store.ScheduledTasks
	scheduler *scheduler.Scheduler
	pool Pinger
	chatSvc *chat.Service

	// healthJobNames lists the recurring scheduler jobs health checks
	// against (e.g. the autonomy scan) — a named job whose lease hasn't
	// advanced past its expected cadence indicates a stuck or crashed
	// worker.
	healthJobNames []string
}

// NewServer builds the router and registers every route in one step.
func NewServer(cfg *config.Config, journal store.Journal, incidents store.Incidents, playbooks store.Playbooks, tasks store.ScheduledTasks, sched *scheduler.Scheduler, pool Pinger, chatSvc *chat.Service, healthJobNames []string) *Server {
	engine := gin.Default()

	s := &Server{
		engine: engine,
		cfg: cfg,
		journal: journal,
		incidents: incidents,
		playbooks: playbooks,
		tasks: tasks,
		scheduler: sched,
		pool: pool,
		chatSvc: chatSvc,
		healthJobNames: healthJobNames,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/journal/recent", s.recentJournalHandler)
	v1.GET("/journal/today", s.todayJournalHandler)
	v1.GET("/incidents/top", s.topIncidentsHandler)
	v1.GET("/playbooks/:key", s.getPlaybookHandler)
	v1.GET("/scheduled_tasks", s.listScheduledTasksHandler)

	if s.chatSvc != nil {
		v1.POST("/chat/webhook", gin.WrapF(chat.NewWebhookHandler(s.chatSvc)))
	}
}

// Handler exposes the underlying gin.Engine as an http.Handler, for
// StartWithListener/tests that want to drive requests without binding a
// real port.
func (s *Server) Handler() http.Handler { return s.engine }

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

const healthCheckTimeout = 5 * time.Second
