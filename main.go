package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sheetsync/sheetsync/backend/go-services/handlers"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/collab"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/config"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/database"
	dochandler "github.com/sheetsync/sheetsync/backend/go-services/internal/document/handler"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/service"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/oidc"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/presence"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/sessions"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/storage"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/tokens"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/users"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/logger"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/metrics"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v", cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Connect to Redis early: blacklist checks, presence and the rate limiter
	// all use the same client.
	var redisClient *redis.Client
	var presenceStore *presence.Store
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
			sessions.SetBlacklistClient(redisClient)
			presenceStore = presence.NewStore(redisClient, "presence:", cfg.Presence.TTL)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Token verification: Keycloak OIDC when configured, shared-secret JWT as
	// the standalone alternative, insecure parsing only for integration tests.
	var verifier middleware.Verifier
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" && cfg.Keycloak.Realm != "" {
		issuer := strings.TrimRight(cfg.Keycloak.URL, "/") + "/realms/" + cfg.Keycloak.Realm
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && cfg.JWT.Secret != "" {
		verifier = tokens.NewVerifier(cfg.JWT.Secret)
		logger.Infof("using shared-secret JWT verifier")
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// Document store: MongoDB when configured, in-memory fallback for dev.
	var mongoUp bool
	var userSvc *users.Service
	docSvc := service.NewMemoryService()
	if cfg.MongoDB.URI != "" {
		// Retry/backoff when connecting to MongoDB to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts, falling back to in-memory store: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			mongoUp = true
			db := client.Database(cfg.MongoDB.Database)
			docSvc = service.NewMongoService(db.Collection("documents"))
			userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		}
	} else {
		logger.Warnf("MONGODB_URI not set, documents are stored in memory only")
	}

	// Snapshot archiving is optional: saves succeed without it.
	var archiver collab.SnapshotArchiver
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		st, err := storage.NewMinIOStorage(mcfg)
		if err != nil {
			logger.Warnf("minio unavailable, snapshot archiving disabled: %v", err)
		} else {
			archiver = st
			logger.Infof("snapshot archiving to bucket %q enabled", mcfg.Bucket)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["storage"] = mongoUp || cfg.MongoDB.URI == ""
		if !deps["storage"] {
			ready = false
		}
		deps["auth"] = verifier != nil
		if verifier == nil {
			ready = false
		}
		if cfg.Redis.Host != "" {
			deps["redis"] = redisClient != nil
			if redisClient == nil {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	if verifier != nil {
		api := r.Group("/api/document", middleware.AuthMiddleware(verifier))
		var lister dochandler.PresenceLister
		if presenceStore != nil {
			lister = presenceStore
		}
		dochandler.RegisterDocumentRoutes(api, docSvc, lister)

		var ps collab.PresenceStore
		if presenceStore != nil {
			ps = presenceStore
		}
		ws := collab.NewHandler(collab.NewRegistry(), docSvc, ps, archiver)
		ws.Register(r, verifier)

		me := r.Group("/api/v1")
		me.GET("/me", middleware.AuthMiddleware(verifier), func(c *gin.Context) {
			claims, _ := c.Get("claims")
			if userSvc != nil {
				if cm, ok := claims.(map[string]interface{}); ok {
					u, err := userSvc.UpsertFromClaims(c.Request.Context(), cm)
					if err == nil && u != nil {
						c.JSON(http.StatusOK, gin.H{"user": u})
						return
					}
				}
			}
			// fallback: return claims
			c.JSON(http.StatusOK, gin.H{"claims": claims})
		})
	} else {
		logger.Warnf("no token verifier configured, document API and websocket are not registered")
	}

	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting collaboration service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

// corsMiddleware reflects allowed origins. "*" admits any origin, which is
// fine for dev but should be narrowed in production.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, documentId")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
