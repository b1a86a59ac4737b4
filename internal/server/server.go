package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/orgforge/orgforge/internal/authorization"
	"github.com/orgforge/orgforge/internal/config"
	"github.com/orgforge/orgforge/internal/invitation"
	invitationdomain "github.com/orgforge/orgforge/internal/invitation/domain"
	"github.com/orgforge/orgforge/internal/observability"
	obsmiddleware "github.com/orgforge/orgforge/internal/observability/logger"
	obsmetrics "github.com/orgforge/orgforge/internal/observability/metrics"
	obstracing "github.com/orgforge/orgforge/internal/observability/tracing"
	"github.com/orgforge/orgforge/internal/organization"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	"github.com/orgforge/orgforge/internal/orguser"
	orguserdomain "github.com/orgforge/orgforge/internal/orguser/domain"
	"github.com/orgforge/orgforge/internal/profile"
	"github.com/orgforge/orgforge/internal/providers/email"
	"github.com/orgforge/orgforge/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgforge/orgforge/internal/identity"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	email.Module,
	identity.Module,
	profile.Module,
	organization.Module,
	invitation.Module,
	orguser.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	authzSvc      authorization.Service
	provisioner   organizationdomain.Provisioner
	orgUserSvc    orguserdomain.Service
	inviteSvc     invitationdomain.Service
	inviteLimiter *ratelimit.InviteLimiter
	obsMetrics    *obsmetrics.Metrics
	log           *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	AuthzSvc      authorization.Service
	Provisioner   organizationdomain.Provisioner
	OrgUserSvc    orguserdomain.Service
	InviteSvc     invitationdomain.Service
	InviteLimiter *ratelimit.InviteLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
	Log           *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		authzSvc:      p.AuthzSvc,
		provisioner:   p.Provisioner,
		orgUserSvc:    p.OrgUserSvc,
		inviteSvc:     p.InviteSvc,
		inviteLimiter: p.InviteLimiter,
		obsMetrics:    p.ObsMetrics,
		log:           p.Log.Named("http.server"),
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorRequired())

	// -------- Organizations --------
	api.POST("/organizations", s.RequireSystem(), s.ProvisionOrganization)
	api.GET("/organizations/by-email-domain", s.LookupOrgByEmailDomain)
	api.GET("/organizations/:orgId",
		s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationView),
		s.GetOrganization)

	// -------- Organization users --------
	api.GET("/organizations/:orgId/users",
		s.authorizeOrgAction(authorization.ObjectOrgUser, authorization.ActionOrgUserView),
		s.ListOrgUsers)
	api.POST("/organizations/:orgId/users",
		s.authorizeOrgAction(authorization.ObjectOrgUser, authorization.ActionOrgUserCreate),
		s.InviteRateLimit(),
		s.AddOrgUser)
	api.PATCH("/organizations/:orgId/users/:userId",
		s.authorizeOrgAction(authorization.ObjectOrgUser, authorization.ActionOrgUserUpdate),
		s.UpdateOrgUser)
	api.DELETE("/organizations/:orgId/users/:userId",
		s.authorizeOrgAction(authorization.ObjectOrgUser, authorization.ActionOrgUserDelete),
		s.RemoveOrgUser)

	// -------- Invitations --------
	// Verification is reached by invitees who have no session yet.
	s.engine.POST("/api/invitations/verify", s.VerifyInvitation)
}
