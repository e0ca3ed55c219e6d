package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"bnpl-gateway/internal/config"
	"bnpl-gateway/internal/metrics"
	"bnpl-gateway/internal/usecase"
)

// Carts lets the return-flow handler clear the customer's cart after a
// reconciliation run. The real cart lives in the hosting platform.
type Carts interface {
	Empty(ctx context.Context, orderID int64) error
}

type NoopCarts struct{}

func (NoopCarts) Empty(ctx context.Context, orderID int64) error { return nil }

type Deps struct {
	Store      usecase.OrderStore
	Reconciler *usecase.Reconciler
	Builder    *usecase.RequestBuilder
	Nonces     *usecase.NonceService
	Carts      Carts
	Metrics    *metrics.Metrics
	Log        *slog.Logger
}

type Server struct {
	cfg    config.Config
	engine *gin.Engine

	store      usecase.OrderStore
	reconciler *usecase.Reconciler
	builder    *usecase.RequestBuilder
	nonces     *usecase.NonceService
	carts      Carts
	metrics    *metrics.Metrics
	log        *slog.Logger

	settleDelay time.Duration
	pause       func(time.Duration)
}

func New(cfg config.Config, d Deps) *Server {
	s := &Server{
		cfg:         cfg,
		store:       d.Store,
		reconciler:  d.Reconciler,
		builder:     d.Builder,
		nonces:      d.Nonces,
		carts:       d.Carts,
		metrics:     d.Metrics,
		log:         d.Log,
		settleDelay: time.Duration(cfg.SettleDelaySeconds * float64(time.Second)),
		pause:       time.Sleep,
	}
	if s.carts == nil {
		s.carts = NoopCarts{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.POST("/api/orders/:id/pay", s.handlePay)
	s.engine.GET("/gateway/vida/return", s.handleReturn)
	s.engine.POST("/gateway/vida/return", s.handleReturn)
	s.engine.POST("/gateway/vida/webhook", s.handleWebhook)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func (s *Server) Run() error {
	return s.engine.Run(fmt.Sprintf(":%d", s.cfg.Port))
}

// param reads a request value from the query string or the posted form,
// whichever carries it. The processor redirects with either.
func param(c *gin.Context, name string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return c.PostForm(name)
}
