package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mutsasns/mutsasns/backend/go-services/handlers"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/handler"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/repository"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/service"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/comment"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/database"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/events"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/media"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/oidc"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/sessions"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/storage"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/tokens"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/users"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/metrics"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

const mongoConnectAttempts = 5

// App is a fully wired HTTP service.
type App struct {
	Router  *gin.Engine
	cfg     *config.Config
	started time.Time
	closers []func(context.Context) error

	redis          *redis.Client
	mongo          *mongo.Client
	idVerifier     middleware.Verifier
	accessVerifier middleware.Verifier
}

// New connects to every configured dependency and mounts all routes.
// Missing MongoDB, Redis, Kafka or Keycloak settings fall back to in-process
// implementations; a configured dependency that cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	a := &App{cfg: cfg, started: time.Now()}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	layout, err := media.LayoutByName(cfg.Media.Layout)
	if err != nil {
		return nil, err
	}

	if err := a.connectRedis(ctx); err != nil {
		return nil, err
	}
	articles, images, comments, userRepo, sessionRepo, err := a.repositories(ctx)
	if err != nil {
		return nil, err
	}
	backend, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}
	publisher, err := a.publisher()
	if err != nil {
		return nil, err
	}
	a.connectOIDC(ctx)

	userSvc := users.NewService(userRepo)
	articleSvc := service.New(articles, images, userSvc, media.NewWriter(layout, backend), service.WithPublisher(publisher))
	commentSvc := comment.NewService(comments, articles, userSvc)
	authHandler := handlers.NewAuthHandler(cfg, userSvc, sessions.NewService(sessionRepo), a.idVerifier)

	a.Router = a.router(authHandler, articleSvc, commentSvc)
	if backend.Name() == "fs" {
		a.Router.Static("/static", filepath.Join(cfg.Media.BaseDir, layout.StaticRoot))
	}
	logger.Infof("wired: layout=%s storage=%s mongo=%v redis=%v kafka=%v oidc=%v",
		layout.Name, backend.Name(), a.mongo != nil, a.redis != nil, len(cfg.Kafka.Brokers) > 0, a.idVerifier != nil)
	ok = true
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	if a.cfg.Redis.Host == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr(), Password: a.cfg.Redis.Password, DB: a.cfg.Redis.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis %s: %w", a.cfg.Redis.Addr(), err)
	}
	a.redis = client
	sessions.SetBlacklistClient(client)
	a.closers = append(a.closers, func(context.Context) error {
		sessions.SetBlacklistClient(nil)
		return client.Close()
	})
	logger.Infof("connected to Redis at %s", a.cfg.Redis.Addr())
	return nil
}

func (a *App) repositories(ctx context.Context) (
	repository.ArticleRepository, repository.ImageRepository, repository.CommentRepository,
	users.UserRepository, sessions.Repository, error,
) {
	var sessionRepo sessions.Repository
	if a.redis != nil {
		sessionRepo = sessions.NewRedisRepository(a.redis, "mutsasns:session:")
	}

	if a.cfg.MongoDB.URI == "" {
		logger.Warnf("MONGODB_URI not set; using in-memory repositories")
		if sessionRepo == nil {
			sessionRepo = sessions.NewMemoryRepository()
		}
		return repository.NewMemoryArticleRepo(), repository.NewMemoryImageRepo(), repository.NewMemoryCommentRepo(),
			users.NewMemoryUserRepository(), sessionRepo, nil
	}

	client, err := database.ConnectMongoWithRetry(ctx, a.cfg.MongoDB.URI, a.cfg.MongoDB.Timeout, mongoConnectAttempts,
		func(attempt int, err error) {
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, mongoConnectAttempts, err)
		})
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("mongodb: %w", err)
	}
	a.mongo = client
	a.closers = append(a.closers, client.Disconnect)

	db := client.Database(a.cfg.MongoDB.Database)
	if sessionRepo == nil {
		sessionRepo = sessions.NewMongoRepository(db.Collection("sessions"))
	}
	return repository.NewMongoArticleRepo(db), repository.NewMongoImageRepo(db), repository.NewMongoCommentRepo(db),
		users.NewMongoUserRepository(db.Collection("users")), sessionRepo, nil
}

func (a *App) publisher() (events.Publisher, error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
	if err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return p.Close() })
	return p, nil
}

// connectOIDC is best effort: local tokens keep working while Keycloak is down.
func (a *App) connectOIDC(ctx context.Context) {
	issuer := a.cfg.Keycloak.Issuer()
	if issuer == "" || a.cfg.Keycloak.ClientID == "" {
		return
	}
	ver, err := oidc.NewVerifier(ctx, issuer, a.cfg.Keycloak.ClientID)
	if err != nil {
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
		return
	}
	a.idVerifier = ver
	a.accessVerifier = ver.ForAccessTokens()
}

func (a *App) router(auth *handlers.AuthHandler, articles *service.Service, comments *comment.Service) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery(), cors())
	r.MaxMultipartMemory = 8 << 20

	if a.cfg.RateLimit.Enabled {
		if a.cfg.RateLimit.UseRedis && a.redis != nil {
			win := time.Duration(a.cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(a.redis, a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	r.GET("/ready", a.ready)

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterSwagger(r)
	auth.Register(r.Group("/"))

	verifier := middleware.Verifier(tokens.NewVerifier(a.cfg.JWT.Secret))
	if a.accessVerifier != nil {
		verifier = middleware.Chain{verifier, a.accessVerifier}
	}
	api := r.Group("/api", middleware.AuthMiddleware(verifier, auth.ProvisionFromClaims()))
	auth.RegisterProtected(api)
	handler.RegisterArticleRoutes(api, articles, a.cfg.Media.MaxUploadBytes)
	comment.RegisterRoutes(api, comments)
	return r
}

// ready reports 503 while a configured dependency does not answer.
func (a *App) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	deps := map[string]bool{}
	ready := true
	if a.redis != nil {
		deps["redis"] = a.redis.Ping(ctx).Err() == nil
		ready = ready && deps["redis"]
	}
	if a.mongo != nil {
		deps["mongodb"] = a.mongo.Ping(ctx, nil) == nil
		ready = ready && deps["mongodb"]
	}
	if a.cfg.Keycloak.Issuer() != "" {
		deps["oidc"] = a.idVerifier != nil
	}
	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(a.started).String()})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Infof("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.Close(shutdownCtx)
}

// Close releases connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// cors is permissive for the browser client; OPTIONS preflights end here.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length, "+middleware.RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
