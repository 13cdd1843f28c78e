package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server is the REST API plus the websocket hub that broadcasts envelopes.
type Server struct {
	Config *models.MConfig
	Logger *logger.Logger
	View   interfaces.IStructureView
	engine *gin.Engine
	http   *http.Server

	// WebSocket clients, owned by the hub loop
	clients    map[*Client]struct{}
	broadcast  chan models.MEnvelope
	register   chan *Client
	unregister chan *Client
	resync     chan *Client
	done       chan struct{}
	hubOnce    sync.Once
	stopOnce   sync.Once

	// Latest closed candle per key, replayed to new clients
	latest     map[models.Key]models.MEnvelope
	stateMutex sync.RWMutex
	lastUpdate int64
	connected  int
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, view interfaces.IStructureView, log *logger.Logger) *Server {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOriginFunc = func(origin string) bool {
		return strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:")
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		Config:  cfg,
		Logger:  log,
		View:    view,
		engine:  engine,
		clients: make(map[*Client]struct{}),
		// Buffered so a burst of closed candles does not stall the dispatcher
		broadcast:  make(chan models.MEnvelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resync:     make(chan *Client),
		done:       make(chan struct{}),
		latest:     make(map[models.Key]models.MEnvelope),
	}

	s.setupRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/resolutions", s.getResolutions)
	api.GET("/trends", s.getTrends)
	api.GET("/trends/:symbol/:resolution", s.getTrend)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop. It returns nil on a clean stop.
func (s *Server) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	s.startHub()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Server) startHub() {
	s.hubOnce.Do(func() {
		go s.handleWebsockets()
	})
}

// -----------------------------------------------------------------------------

// Stop shuts the HTTP listener down and closes every client
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		err = s.http.Shutdown(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.connected
	lastUpdate := s.lastUpdate
	s.stateMutex.RUnlock()

	body := gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": lastUpdate,
	}
	if s.View != nil {
		body["engine"] = s.View.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// -----------------------------------------------------------------------------

func (s *Server) getResolutions(c *gin.Context) {
	var labels []string
	if s.View != nil {
		for _, r := range s.View.Resolutions() {
			labels = append(labels, r.Label)
		}
	}
	c.JSON(http.StatusOK, gin.H{"timeframes": labels})
}

// -----------------------------------------------------------------------------

// getTrends lists live trends, optionally filtered by ?symbol= and ?timeframe=
func (s *Server) getTrends(c *gin.Context) {
	symbol := c.Query("symbol")
	timeframe := c.Query("timeframe")

	trends := make([]models.MTrend, 0)
	if s.View != nil {
		for _, t := range s.View.LiveTrends() {
			if symbol != "" && t.Symbol != symbol {
				continue
			}
			if timeframe != "" && t.Resolution != timeframe {
				continue
			}
			trends = append(trends, t)
		}
	}
	c.JSON(http.StatusOK, trends)
}

// -----------------------------------------------------------------------------

func (s *Server) getTrend(c *gin.Context) {
	key := models.Key{Symbol: c.Param("symbol"), Resolution: c.Param("resolution")}
	if s.View == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live trend"})
		return
	}

	trend, ok := s.View.Trend(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no live trend for %s", key)})
		return
	}
	c.JSON(http.StatusOK, trend)
}
