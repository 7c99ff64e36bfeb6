// Package api exposes the duty engine over HTTP.
package api

import (
	"net/http"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/config"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/duty"
	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	engine *duty.Engine
	users  *store.Store
	cfg    config.APIConfig
	logger *zap.Logger
}

func NewServer(engine *duty.Engine, users *store.Store, cfg config.APIConfig, logger *zap.Logger) *Server {
	if cfg.MemberHeader == "" {
		cfg.MemberHeader = config.Default().API.MemberHeader
	}
	return &Server{
		engine: engine,
		users:  users,
		cfg:    cfg,
		logger: logger,
	}
}

// Router builds the gin engine. metrics, when set, is served at /metrics.
func (s *Server) Router(metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	if len(s.cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{"Origin", "Content-Type", s.cfg.MemberHeader},
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	authed := router.Group("/", requireMember(s.cfg.MemberHeader))

	authed.GET("/heroes", s.listHeroes)
	authed.POST("/heroes", s.createHero)
	authed.GET("/heroes/:hero", s.getHero)
	authed.DELETE("/heroes/:hero", s.deleteHero)
	authed.PUT("/heroes/:hero/members/:member", s.addMember)
	authed.DELETE("/heroes/:hero/members/:member", s.removeMember)

	authed.GET("/heroes/:hero/schedule", s.getSchedule)
	authed.PUT("/heroes/:hero/schedule", s.proposeShift)
	authed.DELETE("/heroes/:hero/schedule/:start", s.deleteShift)

	authed.GET("/heroes/:hero/stats", s.stats)
	authed.POST("/heroes/:hero/recalculate", s.recalculate)
	authed.POST("/recalculate", s.recalculateAll)
	authed.POST("/reconcile", s.reconcile)

	authed.GET("/users/me", s.currentUser)
	authed.POST("/users/me", s.login)
	authed.PUT("/users/me/release-notes", s.seenReleaseNotes)

	return router
}
