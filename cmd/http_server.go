package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/auth"
	"github.com/frahmantamala/workspace-management/internal/core/events"
	"github.com/frahmantamala/workspace-management/internal/focus"
	focusPostgres "github.com/frahmantamala/workspace-management/internal/focus/postgres"
	"github.com/frahmantamala/workspace-management/internal/identity"
	identityPostgres "github.com/frahmantamala/workspace-management/internal/identity/postgres"
	"github.com/frahmantamala/workspace-management/internal/identityprovider"
	"github.com/frahmantamala/workspace-management/internal/preference"
	preferencePostgres "github.com/frahmantamala/workspace-management/internal/preference/postgres"
	"github.com/frahmantamala/workspace-management/internal/transport/middleware"
	"github.com/frahmantamala/workspace-management/internal/transport/rest"
	"github.com/frahmantamala/workspace-management/internal/user"
	userPostgres "github.com/frahmantamala/workspace-management/internal/user/postgres"
	"github.com/frahmantamala/workspace-management/internal/workspace"
	"github.com/frahmantamala/workspace-management/internal/workspace/local"
	"github.com/frahmantamala/workspace-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
	Checks map[string]rest.Pinger

	AuthHandler       *auth.Handler
	UserHandler       *user.Handler
	IdentityHandler   *identity.Handler
	FocusHandler      *focus.Handler
	PreferenceHandler *preference.Handler
	WorkspaceHandler  *workspace.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.Checks,
		deps.AuthHandler,
		deps.UserHandler,
		deps.IdentityHandler,
		deps.FocusHandler,
		deps.PreferenceHandler,
		deps.WorkspaceHandler,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

// authUserSource adapts the user directory to what the auth service needs.
type authUserSource struct {
	users *user.Service
}

func (a authUserSource) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &auth.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	bus := events.NewEventBus(lg)

	identityRepo := identityPostgres.NewIdentityRepository(gormDB)
	identityService := identity.NewService(identityRepo, lg, config.Identity.RetryBudget)

	userRepo := userPostgres.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, lg)

	focusRepo := focusPostgres.NewFocusRepository(gormDB)
	focusService := focus.NewService(focusRepo, bus, lg)

	preferenceRepo := preferencePostgres.NewPreferenceRepository(gormDB)
	preferenceService := preference.NewService(preferenceRepo, focusService, userService, bus, lg)

	// deleted focuses must redirect selections before the delete returns
	bus.Subscribe(events.FocusDeletedEvent, preferenceService.HandleFocusDeleted)

	localStore, err := local.Open(config.Workspace.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local snapshot store: %w", err)
	}
	workspaceService := workspace.NewService(focusRepo, localStore, bus, lg)

	var provider identityprovider.Provider
	if config.Identity.ProviderURL != "" {
		provider = identityprovider.NewClient(identityprovider.Config{
			BaseURL:        config.Identity.ProviderURL,
			APIKey:         config.Identity.ProviderAPIKey,
			RequestTimeout: config.Identity.RequestTimeout,
		}, lg)
	} else {
		lg.Warn("no identity provider configured, using in-process dev provider")
		provider = identityprovider.NewDevProvider(config.Security.BCryptCost, lg)
	}

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(provider, identityService, authUserSource{users: userService}, tokens, lg)

	router := chi.NewRouter()
	router.Use(middleware.LoggingMiddleware(lg))

	return &Dependencies{
		Config: config,
		DB:     db,
		Router: router,
		Logger: lg,
		Checks: map[string]rest.Pinger{
			"postgres":    db.DB,
			"local_store": localStore,
		},

		AuthHandler:       auth.NewHandler(authService),
		UserHandler:       user.NewHandler(userService),
		IdentityHandler:   identity.NewHandler(identityService),
		FocusHandler:      focus.NewHandler(focusService, preferenceService),
		PreferenceHandler: preference.NewHandler(preferenceService),
		WorkspaceHandler:  workspace.NewHandler(workspaceService),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
