package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadflow-crm/leadflow-backend/api/controllers"
	"github.com/leadflow-crm/leadflow-backend/api/middleware"
	"github.com/leadflow-crm/leadflow-backend/internal/agents"
	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	"github.com/leadflow-crm/leadflow-backend/internal/audit"
	"github.com/leadflow-crm/leadflow-backend/internal/auth"
	"github.com/leadflow-crm/leadflow-backend/internal/leads"
	"github.com/leadflow-crm/leadflow-backend/internal/sources"
	"github.com/leadflow-crm/leadflow-backend/pkg/auth/session"
	"github.com/leadflow-crm/leadflow-backend/pkg/config"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// RouterParams collects every dependency the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionManager sessionManager
	HealthDeps     map[string]controllers.Pinger

	AuthService     auth.Service
	RegisterService auth.RegisterService
	LeadService     leads.Service
	AuditRecorder   *audit.Recorder
	SourceService   sources.Service
	AgentService    agents.Service
	RuleService     assignment.Service
	ManualAssigner  controllers.ManualAssignService
	AutoAssigner    controllers.LeadAssignService
	Sweeper         controllers.SweepService
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.HealthDeps))
	})

	r.Get("/api/public/ping", controllers.PublicPing())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		// Account creation requires an authenticated managing actor; the
		// service enforces which roles each actor may create.
		r.Post("/auth/register", controllers.AuthRegister(p.RegisterService, logg))

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", controllers.CreateLead(p.LeadService, logg))
			r.Get("/", controllers.ListLeads(p.LeadService, logg))
			r.Get("/{leadID}", controllers.GetLead(p.LeadService, logg))
			r.Patch("/{leadID}/status", controllers.UpdateLeadStatus(p.LeadService, logg))
			r.Get("/{leadID}/history", controllers.LeadHistory(p.AuditRecorder, logg))
			r.Post("/{leadID}/assign", controllers.AssignLead(p.AutoAssigner, logg))
		})

		r.Route("/assignment-rules", func(r chi.Router) {
			r.Post("/", controllers.CreateRule(p.RuleService, logg))
			r.Get("/", controllers.ListRules(p.RuleService, logg))
			r.Get("/{ruleID}", controllers.GetRule(p.RuleService, logg))
			r.Patch("/{ruleID}", controllers.UpdateRule(p.RuleService, logg))
			r.Delete("/{ruleID}", controllers.DeleteRule(p.RuleService, logg))
			r.Get("/{ruleID}/status", controllers.RuleStatus(p.RuleService, logg))
			r.Route("/{ruleID}/members", func(r chi.Router) {
				r.Post("/", controllers.AddRuleMember(p.RuleService, logg))
				r.Patch("/{memberID}", controllers.UpdateRuleMember(p.RuleService, logg))
				r.Delete("/{memberID}", controllers.RemoveRuleMember(p.RuleService, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/manual", controllers.ManualAssign(p.ManualAssigner, logg))
			r.Post("/sweep", controllers.TriggerSweep(p.Sweeper, logg))
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", controllers.ListAgents(p.AgentService, logg))
			r.Patch("/{agentID}", controllers.SetAgentActive(p.AgentService, logg))
		})

		r.Route("/sources", func(r chi.Router) {
			r.Post("/", controllers.CreateSource(p.SourceService, logg))
			r.Get("/", controllers.ListSources(p.SourceService, logg))
			r.Get("/{sourceID}", controllers.GetSource(p.SourceService, logg))
			r.Patch("/{sourceID}", controllers.UpdateSource(p.SourceService, logg))
		})

		r.With(middleware.RequireRole("admin", logg)).Get("/admin/ping", controllers.AdminPing())
		r.With(middleware.RequireRole("agent", logg)).Get("/agent/ping", controllers.AgentPing())
	})

	return r
}
