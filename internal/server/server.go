// Package server exposes the signup, menu and ordering-window API over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/treehouse/treehouse/internal/app"
	"github.com/treehouse/treehouse/internal/config"
	"github.com/treehouse/treehouse/internal/hotspot"
	"github.com/treehouse/treehouse/internal/notify"
	"github.com/treehouse/treehouse/internal/registry"
	"github.com/treehouse/treehouse/internal/schedule"
)

type Options struct {
	Config    *config.Config
	Scheduler *schedule.Scheduler
	Registry  *registry.Registry
	Board     *hotspot.Board // nil disables /api/hotspots
	Notifier  notify.Notifier
	Snapshots *app.App // nil disables export and restore
	Log       zerolog.Logger
	Now       func() time.Time
}

type Server struct {
	cfg       *config.Config
	sched     *schedule.Scheduler
	reg       *registry.Registry
	notifier  notify.Notifier
	snapshots *app.App
	log       zerolog.Logger
	now       func() time.Time

	boardMu   sync.Mutex
	board     *hotspot.Board
	lastStart time.Time

	hub    *hub
	router *gin.Engine
}

func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	s := &Server{
		cfg:       opts.Config,
		sched:     opts.Scheduler,
		reg:       opts.Registry,
		notifier:  opts.Notifier,
		snapshots: opts.Snapshots,
		log:       opts.Log,
		now:       opts.Now,
		board:     opts.Board,
	}
	s.hub = newHub(s.log)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.log), cors(s.cfg.Server.AllowedOrigins))

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	api.POST("/signup", s.handleSignup)
	api.GET("/menus", s.handleMenus)
	api.GET("/menu-items", s.handleMenuItems)
	api.POST("/init-sample-data", s.handleInitSampleData)
	api.GET("/window", s.handleWindow)
	api.GET("/window/ws", s.handleWindowStream)
	api.GET("/hotspots", s.handleHotSpots)
	api.POST("/orders", s.handlePlaceOrder)
	api.GET("/orders", s.handleOrders)
	api.GET("/orders/:id", s.handleOrder)
	api.GET("/delivery-batches", s.handleDeliveryBatches)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return router
}

// Run serves HTTP until ctx is done, driving the window ticker, the hot-spot
// simulation and periodic snapshots alongside it.
func (s *Server) Run(ctx context.Context) error {
	if s.snapshots != nil && s.cfg.Snapshot.Restore != "" {
		key, err := s.snapshots.Import(ctx, s.cfg.Snapshot.Restore)
		switch {
		case errors.Is(err, app.ErrNoSnapshots):
			s.log.Warn().Msg("no snapshot to restore, starting empty")
		case err != nil:
			return err
		default:
			s.log.Info().Str("key", key).Msg("registry restored")
		}
	}

	if s.cfg.Server.SeedSampleData {
		s.reg.SeedSampleData()
	}

	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		s.hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	})
	eg.Go(func() error {
		var at time.Time
		clock := func() time.Time {
			at = s.now()
			return at
		}
		return ignoreCancel(schedule.Run(egCtx, s.sched, s.cfg.Server.TickInterval, clock, func(state schedule.WindowState) {
			s.tick(at, state)
		}))
	})
	if s.board != nil && s.cfg.HotSpots.SimulateInterval > 0 {
		eg.Go(func() error {
			return every(egCtx, s.cfg.HotSpots.SimulateInterval, s.simulate)
		})
	}
	if s.snapshots != nil && s.cfg.Snapshot.Interval > 0 {
		eg.Go(func() error {
			return every(egCtx, s.cfg.Snapshot.Interval, func() { s.export(egCtx) })
		})
	}

	err := eg.Wait()
	if s.snapshots != nil && s.cfg.Snapshot.Interval > 0 {
		s.export(context.Background())
	}
	return err
}

// tick broadcasts the state computed at at and rotates the board when a new window begins.
func (s *Server) tick(at time.Time, state schedule.WindowState) {
	s.boardMu.Lock()
	if s.board != nil && !s.lastStart.IsZero() && !state.WindowStart.Equal(s.lastStart) {
		s.board.Rotate()
		s.log.Debug().Int("batch", s.board.Batch()).Msg("hot spots rotated")
	}
	s.lastStart = state.WindowStart
	s.boardMu.Unlock()

	s.hub.broadcast(s.describe(at, state))
}

func (s *Server) simulate() {
	s.boardMu.Lock()
	defer s.boardMu.Unlock()
	s.board.Simulate()
}

func (s *Server) export(ctx context.Context) {
	if _, err := s.snapshots.Export(ctx); err != nil {
		s.log.Error().Err(err).Msg("snapshot export failed")
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
