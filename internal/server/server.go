package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"swapPay/internal/model"
	"swapPay/internal/server/httputil"
	"swapPay/internal/server/middlewares"
	"swapPay/internal/session"
	"swapPay/internal/storage"
	"swapPay/internal/swap"
)

const apiVersion = "v1"

// SwapService quotes and routes swaps.
type SwapService interface {
	Quote(ctx context.Context, req model.SwapRequest) (model.Quote, error)
	Route(ctx context.Context, req model.SwapRequest, opts swap.RouteOptions) (model.Route, error)
}

// Submitter broadcasts wallet-signed transactions.
type Submitter interface {
	Submit(ctx context.Context, owner common.Address, rawTxs []string) (common.Hash, error)
}

// StatusReader observes a transaction once.
type StatusReader interface {
	Status(ctx context.Context, hash common.Hash) (model.TxStatus, error)
}

// PriceReader serves the cached ether price.
type PriceReader interface {
	Price(ctx context.Context) model.PriceCache
}

// Deps are the services behind the API.
type Deps struct {
	Swap     SwapService
	Executor Submitter
	Status   StatusReader
	Prices   PriceReader
	Sessions *session.Manager
	// Archive is optional; without it reaped sessions are gone.
	Archive storage.Archive
}

// Config controls the listener.
type Config struct {
	Listen           string
	CORSOrigins      []string
	SessionRetention time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	logger *zap.Logger

	// background work (settlement, reaping) runs under ctx and is awaited
	// on shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionRetention <= 0 {
		cfg.SessionRetention = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{cfg: cfg, deps: deps, logger: logger, ctx: ctx, cancel: cancel}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConf := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) == 0 || contains(s.cfg.CORSOrigins, "*") {
		corsConf.AllowAllOrigins = true
	} else {
		corsConf.AllowOrigins = s.cfg.CORSOrigins
	}
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	r.Use(middlewares.LoggerMiddleware(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api").Group(apiVersion)
	handlers := []httputil.IHttpHandler{
		NewQuoteHandler(s.deps.Swap),
		NewRouteHandler(s.deps.Swap),
		NewExecuteHandler(s.deps.Executor),
		NewStatusHandler(s.deps.Status),
		NewPriceHandler(s.deps.Prices),
		NewSessionHandler(s.deps.Sessions, s.deps.Archive, s.settle),
	}
	for _, h := range handlers {
		h.SetRoutes(api.Group(h.Root()))
	}
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// background settlement.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.reapLoop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("listen", s.cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to stop http server", zap.Error(err))
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("http server stopped")
	return runErr
}

// settle follows a confirmed session to its terminal state in the background.
func (s *Server) settle(sess *session.Session) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := sess.Settle(s.ctx); err != nil {
			s.logger.Warn("settlement stopped", zap.String("session", sess.ID()), zap.Error(err))
			return
		}
		snap := sess.Snapshot()
		s.logger.Info("session settled",
			zap.String("session", snap.ID),
			zap.String("state", string(snap.State)),
			zap.String("tx", snap.TxHash),
		)
	}()
}

func (s *Server) reapLoop() {
	defer s.wg.Done()
	if s.deps.Sessions == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if n := s.deps.Sessions.Reap(s.cfg.SessionRetention); n > 0 {
				s.logger.Debug("sessions reaped", zap.Int("count", n))
			}
		}
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
