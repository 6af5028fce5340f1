package httpapi

import (
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/soramar/chatd/chatd/config"
	"github.com/soramar/chatd/chatd/identity"
	"github.com/soramar/chatd/chatd/session"
	ports "github.com/soramar/chatd/chatd/session/ports"
)

// NewRouter wires the HTTP surface: auth routes delegated to the identity
// service, chat routes delegated to the session orchestrator.
func NewRouter(orch *session.Orchestrator, ids *identity.Service, resolver ports.IdentityResolver, corsCfg config.CORSConfig, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(corsCfg))

	h := &handlers{orch: orch, ids: ids, resolver: resolver, logger: logger}

	router.GET("/", h.health)
	router.POST("/signup", h.signup)
	router.POST("/login", h.login)
	router.GET("/chat/history", h.chatHistory)
	router.POST("/chat", h.chat)

	return router
}

// corsMiddleware accepts the explicit allow-list plus any origin under the
// trusted platform suffix. Everything else is rejected before reaching the
// handlers.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if slices.Contains(cfg.AllowedOrigins, origin) {
				return true
			}
			return cfg.TrustedSuffix != "" && strings.HasSuffix(origin, cfg.TrustedSuffix)
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
