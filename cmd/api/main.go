package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leadflow-crm/leadflow-backend/api/controllers"
	"github.com/leadflow-crm/leadflow-backend/api/routes"
	"github.com/leadflow-crm/leadflow-backend/internal/agents"
	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	"github.com/leadflow-crm/leadflow-backend/internal/audit"
	"github.com/leadflow-crm/leadflow-backend/internal/auth"
	"github.com/leadflow-crm/leadflow-backend/internal/leads"
	"github.com/leadflow-crm/leadflow-backend/internal/sources"
	"github.com/leadflow-crm/leadflow-backend/internal/users"
	"github.com/leadflow-crm/leadflow-backend/pkg/auth/session"
	"github.com/leadflow-crm/leadflow-backend/pkg/config"
	"github.com/leadflow-crm/leadflow-backend/pkg/db"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	"github.com/leadflow-crm/leadflow-backend/pkg/metrics"
	"github.com/leadflow-crm/leadflow-backend/pkg/migrate"
	"github.com/leadflow-crm/leadflow-backend/pkg/pubsub"
	"github.com/leadflow-crm/leadflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	if err := auth.EnsureBootstrapAdmin(context.Background(), userRepo, cfg.Bootstrap, cfg.Password, logg); err != nil {
		logg.Error(context.Background(), "failed to seed bootstrap admin", err)
		os.Exit(1)
	}

	auditRecorder, err := audit.NewRecorder(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}

	healthDeps := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	// Without Pub/Sub leads still get assigned, just on the sweep cadence.
	var publisher *pubsub.LeadEventPublisher
	if cfg.PubSub.Enabled(cfg.GCP) {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err = pubsub.NewLeadEventPublisher(psClient.LeadPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create lead event publisher", err)
			os.Exit(1)
		}
		healthDeps["pubsub"] = psClient
	}

	leadServiceParams := leads.ServiceParams{
		Logger: logg,
		Store:  leads.NewRepository(dbClient.DB()),
		Audit:  auditRecorder,
	}
	if publisher != nil {
		leadServiceParams.Publisher = publisher
	}
	leadService, err := leads.NewService(leadServiceParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create lead service", err)
		os.Exit(1)
	}

	sourceService, err := sources.NewService(sources.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create source service", err)
		os.Exit(1)
	}

	agentService, err := agents.NewService(userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create agent service", err)
		os.Exit(1)
	}

	assignmentRepo := assignment.NewRepository(dbClient.DB())
	assignmentMetrics := metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer)

	ruleService, err := assignment.NewService(assignmentRepo, agentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create rule service", err)
		os.Exit(1)
	}

	executor, err := assignment.NewExecutor(assignment.ExecutorParams{
		Logger:  logg,
		Store:   assignmentRepo,
		Metrics: assignmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment executor", err)
		os.Exit(1)
	}

	manualAssigner, err := assignment.NewManualAssigner(assignment.ManualAssignerParams{
		Logger:  logg,
		Store:   assignmentRepo,
		Agents:  agentService,
		Metrics: assignmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create manual assigner", err)
		os.Exit(1)
	}

	autoAssigner, err := assignment.NewAutoAssigner(assignment.AutoAssignerParams{
		Logger:   logg,
		Leads:    leads.NewRepository(dbClient.DB()),
		Executor: executor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto assigner", err)
		os.Exit(1)
	}

	sweeper, err := assignment.NewSweeper(assignment.SweeperParams{
		Logger:    logg,
		Leads:     leads.NewRepository(dbClient.DB()),
		Executor:  executor,
		BatchSize: cfg.Assignment.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			Redis:          redisClient,
			SessionManager: sessionManager,
			HealthDeps:     healthDeps,

			AuthService:     authService,
			RegisterService: registerService,
			LeadService:     leadService,
			AuditRecorder:   auditRecorder,
			SourceService:   sourceService,
			AgentService:    agentService,
			RuleService:     ruleService,
			ManualAssigner:  manualAssigner,
			AutoAssigner:    autoAssigner,
			Sweeper:         sweeper,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
