package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"

	"budgetmanager/internal/core"
	"budgetmanager/internal/log"
	"budgetmanager/internal/metrics"
	"budgetmanager/internal/middleware/ratelimit"
	"budgetmanager/internal/services"
)

// RecurringService is the recurring-expense API the handlers depend on.
type RecurringService interface {
	List(ctx context.Context, userID int64) ([]core.RecurrenceRule, error)
	Get(ctx context.Context, userID, id int64) (core.RecurrenceRule, error)
	Create(ctx context.Context, userID int64, rule core.RecurrenceRule) (core.RecurrenceRule, error)
	Update(ctx context.Context, userID, id int64, upd services.RuleUpdate) (core.RecurrenceRule, error)
	Delete(ctx context.Context, userID, id int64) error
	ToggleActive(ctx context.Context, userID, id int64) (core.RecurrenceRule, error)
}

// BudgetService is the template and budget API the handlers depend on.
type BudgetService interface {
	CreateTemplate(ctx context.Context, userID int64, t core.Template) (core.Template, error)
	ListTemplates(ctx context.Context, userID int64) ([]core.Template, error)
	GetTemplate(ctx context.Context, userID, id int64) (core.Template, error)
	SetDefaultTemplate(ctx context.Context, userID, templateID int64) (core.Template, error)
	UpdateTemplate(ctx context.Context, userID, id int64, t core.Template) (core.Template, error)
	DeleteTemplate(ctx context.Context, userID, id int64) error
	GenerateBudget(ctx context.Context, userID int64, month core.Month) (services.Generation, error)
	GetBudget(ctx context.Context, userID, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	BudgetExpenses(ctx context.Context, userID, id int64) ([]core.Expense, error)
	AddExpense(ctx context.Context, userID, budgetID int64, e core.Expense) (core.Expense, error)
	Rematerialize(ctx context.Context, userID, budgetID int64) (services.MaterializeResult, error)
	Summary(ctx context.Context, userID, id int64) (core.MonthOverview, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires a Server. Ready may be nil, in which case /readyz always
// succeeds. A nil Metrics gets a fresh registry.
type Options struct {
	Addr      string
	Recurring RecurringService
	Budgets   BudgetService
	Ready     Pinger
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	recurring RecurringService
	budgets   BudgetService
	ready     Pinger
	logger    *log.Logger
	metrics   *metrics.Metrics
	validate  *validator.Validate
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		recurring: opts.Recurring,
		budgets:   opts.Budgets,
		ready:     opts.Ready,
		logger:    logger,
		metrics:   m,
		validate:  newValidator(),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
	}
	m.RegisterRateLimit(
		func() float64 { return float64(s.limiter.GetMetrics().TotalHits) },
		func() float64 { return float64(s.limiter.GetMetrics().ClientCount) },
	)
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.metrics.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.ComponentMiddleware(log.ComponentHTTP))
	r.Use(log.RequestIDMiddleware(middleware.GetReqID))
	r.Use(log.AccessLog(extractClientIP))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(extractClientIP))
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(requireUser)

		r.Route("/recurring-expenses", func(r chi.Router) {
			r.Get("/", s.handleListRecurring)
			r.Post("/", s.handleCreateRecurring)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRecurring)
				r.Put("/", s.handleUpdateRecurring)
				r.Delete("/", s.handleDeleteRecurring)
				r.Patch("/toggle-active", s.handleToggleRecurring)
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTemplate)
				r.Put("/", s.handleUpdateTemplate)
				r.Delete("/", s.handleDeleteTemplate)
				r.Post("/set-default", s.handleSetDefaultTemplate)
			})
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/generate", s.handleGenerateBudget)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBudget)
				r.Get("/expenses", s.handleListExpenses)
				r.Post("/expenses", s.handleAddExpense)
				r.Post("/materialize", s.handleRematerialize)
				r.Get("/summary", s.handleSummary)
			})
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			respond(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
