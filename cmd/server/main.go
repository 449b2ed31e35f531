package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/metrics"
	"github.com/YassinSultan/CoreSystem-Backend/internal/repository/postgres"
	"github.com/YassinSultan/CoreSystem-Backend/internal/scheduler"
	schedulerjobs "github.com/YassinSultan/CoreSystem-Backend/internal/scheduler/jobs"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
	"github.com/YassinSultan/CoreSystem-Backend/internal/storage"
	"github.com/YassinSultan/CoreSystem-Backend/internal/upload"
	systemlog "github.com/YassinSultan/CoreSystem-Backend/pkg/logger"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Security struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		JWTSecretFile string `mapstructure:"jwt_secret_file"`
	} `mapstructure:"security"`
	Admin struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"admin"`
	Uploads struct {
		Dir         string `mapstructure:"dir"`
		BaseURL     string `mapstructure:"base_url"`
		MaxFileSize int64  `mapstructure:"max_file_size"`
	} `mapstructure:"uploads"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "create-admin":
			if err := runCreateAdminCommand(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	isDebugMode := strings.EqualFold(cfg.App.Env, "development")
	logger, logStore, err := newLogger(cfg, isDebugMode)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	if !isDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dbPool, err := newDBPool(context.Background(), cfg)
	if err != nil {
		logger.Fatal("connect database failed", zap.Error(err))
	}
	defer dbPool.Close()

	userRepo := postgres.NewUserRepository(dbPool)
	recordRepo := postgres.NewRecordRepository(dbPool)

	store := storage.NewLocal(storage.LocalConfig{
		BaseDir: cfg.Uploads.Dir,
		BaseURL: cfg.Uploads.BaseURL,
	}, logger)
	resolver := upload.NewResolver(store, cfg.Uploads.MaxFileSize)
	engine := crud.NewEngine(recordRepo, resolver, store, logger)

	secret := []byte(cfg.Security.JWTSecret)
	authSvc := service.NewAuthService(userRepo, secret)
	estimateSvc := service.NewEstimateService(engine, recordRepo)
	abstractSvc := service.NewAbstractService(engine)
	projectSvc := service.NewProjectService(engine)
	systemSvc := service.NewSystemService(dbPool, logStore)

	if strings.TrimSpace(cfg.Admin.Password) != "" {
		if err := authSvc.EnsureAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Password); err != nil {
			logger.Fatal("seed admin failed", zap.Error(err))
		}
	} else {
		logger.Warn("admin seeding skipped, admin.password not set")
	}

	sweepJob := schedulerjobs.NewUploadSweepJob(cfg.Uploads.Dir, store, recordRepo, logger)
	cronRunner := scheduler.NewScheduler(scheduler.Deps{SweepJob: sweepJob}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))
	router.Use(metrics.HTTPMiddleware())

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Database.PingTimeout)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  "database unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)

	router.GET("/internal/metrics", gin.WrapH(promhttp.Handler()))

	router.Static("/"+storage.UploadRoot, filepath.Join(cfg.Uploads.Dir, storage.UploadRoot))

	api.RegisterRoutes(router, api.Deps{
		Engine:    engine,
		Auth:      authSvc,
		Estimates: estimateSvc,
		Abstracts: abstractSvc,
		Projects:  projectSvc,
		System:    systemSvc,
		JWTSecret: secret,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func loadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CORESYSTEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "CORESYSTEM_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_secret_file", "")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("uploads.dir", ".")
	v.SetDefault("uploads.base_url", "http://127.0.0.1:8000")
	v.SetDefault("uploads.max_file_size", upload.DefaultMaxFileSize)
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if strings.TrimSpace(cfg.Security.JWTSecret) == "" && strings.TrimSpace(cfg.Security.JWTSecretFile) != "" {
		// #nosec G304 -- path is provided by operator config.
		raw, err := os.ReadFile(strings.TrimSpace(cfg.Security.JWTSecretFile))
		if err != nil {
			return Config{}, fmt.Errorf("read security.jwt_secret_file failed: %w", err)
		}
		cfg.Security.JWTSecret = strings.TrimSpace(string(raw))
	}

	if cfg.Database.URL == "" {
		return Config{}, errors.New("database.url is required")
	}
	if cfg.Database.MaxConns <= 0 {
		return Config{}, errors.New("database.max_conns must be greater than 0")
	}
	if cfg.Database.PingTimeout <= 0 {
		return Config{}, errors.New("database.ping_timeout must be greater than 0")
	}
	if strings.TrimSpace(cfg.Security.JWTSecret) == "" {
		return Config{}, errors.New("security.jwt_secret is required")
	}
	if len(cfg.CORS.AllowOrigins) == 0 {
		return Config{}, errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return Config{}, errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	return cfg, nil
}

func newLogger(cfg Config, development bool) (*zap.Logger, *systemlog.Store, error) {
	base, err := systemlog.New(cfg.Log.Level, development)
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger failed: %w", err)
	}

	logStore := systemlog.NewStore(1000)
	return systemlog.Attach(base, logStore), logStore, nil
}

func newDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}
	return pool, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func runMigrateCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	migrationDir := "/migrations"
	if _, statErr := os.Stat(migrationDir); statErr != nil {
		migrationDir = "./migrations"
	}

	migrator, err := migrate.New("file://"+migrationDir, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}

	fmt.Println("migrations applied successfully")
	return nil
}

func runCreateAdminCommand(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	username := fs.String("username", "admin", "admin username")
	password := fs.String("password", "", "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*password) == "" {
		return errors.New("username and password are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := service.NewAuthService(postgres.NewUserRepository(pool), []byte(cfg.Security.JWTSecret))
	if err := authSvc.EnsureAdmin(ctx, *username, *password); err != nil {
		return fmt.Errorf("create admin failed: %w", err)
	}

	fmt.Println("admin account ready")
	return nil
}

func runHealthcheck() int {
	cfg, err := loadConfig()
	port := 8000
	if err == nil {
		port = cfg.Server.Port
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
