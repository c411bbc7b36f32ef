package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"otc-broker/src/autosave"
	"otc-broker/src/backfill"
	"otc-broker/src/catalog"
	"otc-broker/src/generator"
	"otc-broker/src/interfaces"
	"otc-broker/src/logger"
	"otc-broker/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

var _ interfaces.IDataExchanger = (*FastAPIServer)(nil)

type FastAPIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Store  interfaces.ICandleStore
	Saver  *autosave.AutoSaver
	engine *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan *models.MCandleEvent // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, log *logger.Logger, store interfaces.ICandleStore, saver *autosave.AutoSaver) *FastAPIServer {
	// Set Gin mode
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  log,
		Store:   store,
		Saver:   saver,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so a burst of completions cannot block the saver
		broadcast:  make(chan *models.MCandleEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/assets", s.getAssets)
	s.engine.GET("/api/tournaments", s.getTournaments)
	s.engine.GET("/api/promotions", s.getPromotions)
	s.engine.GET("/api/ohlc", s.getOHLC)
	s.engine.GET("/api/chart", s.getChart)
	s.engine.POST("/api/admin/populate", s.adminPopulate)
	s.engine.POST("/api/admin/purge", s.adminPurge)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	c.JSON(200, gin.H{
		"ok":           true,
		"status":       "ok",
		"connections":  connections,
		"serverTimeMs": time.Now().UTC().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"series":         s.Config.Series,
		"pollIntervalMs": s.Config.AutoSave.PollIntervalMs,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getAssets(c *gin.Context) {
	category := c.DefaultQuery("category", "otc")
	assets := catalog.GetAssetsByCategory(category, time.Now().UTC())
	c.JSON(200, gin.H{"ok": true, "assets": assets})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getTournaments(c *gin.Context) {
	c.JSON(200, gin.H{"ok": true, "tournaments": catalog.GetTournaments()})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getPromotions(c *gin.Context) {
	c.JSON(200, gin.H{"ok": true, "promotions": catalog.GetPromotions()})
}

// -----------------------------------------------------------------------------

// getOHLC returns database-backed history plus the optional forming candle,
// and starts auto-save tracking for the requested series.
func (s *FastAPIServer) getOHLC(c *gin.Context) {
	assetID := c.Query("asset")
	if assetID == "" {
		assetID = c.Query("symbol")
	}
	if assetID == "" {
		c.JSON(400, gin.H{"ok": false, "error": "Asset is required"})
		return
	}

	timeframeMinutes, err := strconv.Atoi(c.DefaultQuery("timeframe", "1"))
	if err != nil || timeframeMinutes <= 0 {
		timeframeMinutes = 1
	}

	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(s.Config.Chart.DefaultCount)))
	if err != nil || count <= 0 {
		count = s.Config.Chart.DefaultCount
	}
	if count > s.Config.Chart.MaxCount {
		count = s.Config.Chart.MaxCount
	}

	includePartial := strings.ToLower(c.DefaultQuery("includePartial", "true")) == "true"

	seriesCfg, ok := s.resolveSeries(assetID, timeframeMinutes)
	if !ok {
		c.JSON(404, gin.H{"ok": false, "error": "Asset not found"})
		return
	}

	if s.Saver != nil {
		if err := s.Saver.Track(seriesCfg); err != nil {
			s.Logger.Error("Failed to start tracking %s: %v", seriesCfg.Meta().Key(), err)
		}
	}

	serverTimeMs := time.Now().UTC().UnixMilli()

	// Candle-aligned window covering the last count completed indices.
	currentIndex := generator.CandleIndex(serverTimeMs, timeframeMinutes)
	rangeStart := generator.CandleStartTime(currentIndex-int64(count), timeframeMinutes)

	candles, err := s.Store.GetRange(seriesCfg.Meta(), rangeStart, serverTimeMs, count)
	if err != nil {
		s.Logger.Error("Failed to read candles for %s: %v", seriesCfg.Meta().Key(), err)
		c.JSON(500, gin.H{"ok": false, "error": "storage unavailable"})
		return
	}

	fromDatabase := len(candles) > 0
	prevClose := seriesCfg.InitialPrice

	if fromDatabase {
		prevClose = candles[len(candles)-1].Close
	} else {
		// No persisted history yet: derive a deterministic series on the fly.
		candles = generator.GenerateSeries(seriesCfg, rangeStart, count)
		if len(candles) > 0 {
			prevClose = candles[len(candles)-1].Close
		}
	}

	var partial *models.MCandle
	if includePartial && len(candles) > 0 {
		partial = s.formingCandle(seriesCfg, candles, prevClose, serverTimeMs)
	}

	c.JSON(200, gin.H{
		"ok":               true,
		"symbol":           seriesCfg.Symbol,
		"timeframeMinutes": timeframeMinutes,
		"version":          seriesCfg.Version,
		"serverTimeMs":     serverTimeMs,
		"candles":          candles,
		"partial":          partial,
		"fromDatabase":     fromDatabase,
	})
}

// -----------------------------------------------------------------------------

// formingCandle resolves the live candle: a stored partial row when it covers
// the current index, otherwise a fresh deterministic partial evaluation.
func (s *FastAPIServer) formingCandle(cfg models.MSeriesConfig, history []models.MCandle, prevClose float64, serverTimeMs int64) *models.MCandle {
	currentIndex := generator.CandleIndex(serverTimeMs, cfg.TimeframeMinutes)
	currentStartMs := generator.CandleStartTime(currentIndex, cfg.TimeframeMinutes)

	lastCandleTime := history[len(history)-1].StartTimeMs
	if currentStartMs <= lastCandleTime {
		return nil
	}

	if saved, err := s.Store.GetPartial(cfg.Meta()); err == nil && saved != nil && saved.StartTimeMs == currentStartMs {
		return saved
	}

	partial := generator.GeneratePartialCandle(generator.Params{
		SeedBase:         cfg.SeedBase(),
		Index:            currentIndex,
		PrevClose:        prevClose,
		Volatility:       cfg.Volatility,
		TimeframeMinutes: cfg.TimeframeMinutes,
		PriceDecimals:    cfg.PriceDecimals,
		StartTimeMs:      currentStartMs,
	}, serverTimeMs)
	return &partial
}

// -----------------------------------------------------------------------------

// getChart returns a lightweight snapshot payload for simple chart widgets.
func (s *FastAPIServer) getChart(c *gin.Context) {
	assetID := c.Query("asset")
	if assetID == "" {
		assetID = c.Query("symbol")
	}
	if assetID == "" {
		c.JSON(400, gin.H{"ok": false, "error": "Asset is required"})
		return
	}

	timeframeMinutes := parseTimeframe(c.DefaultQuery("timeframe", "1m"))

	points, err := strconv.Atoi(c.DefaultQuery("points", "120"))
	if err != nil || points < 20 {
		points = 120
	}

	now := time.Now().UTC()
	asset, found := catalog.FindAsset(assetID, now)
	if !found {
		c.JSON(404, gin.H{"ok": false, "error": "Asset not found"})
		return
	}

	seriesCfg, _ := s.resolveSeries(assetID, timeframeMinutes)
	serverTimeMs := now.UnixMilli()
	startMs := generator.CandleStartTime(
		generator.CandleIndex(serverTimeMs, timeframeMinutes)-int64(points),
		timeframeMinutes,
	)
	candles := generator.GenerateSeries(seriesCfg, startMs, points)

	c.JSON(200, gin.H{
		"ok": true,
		"chart": gin.H{
			"asset":            asset,
			"candles":          candles,
			"interval_seconds": timeframeMinutes * 60,
			"generated_at":     now.Format(time.RFC3339),
		},
	})
}

// -----------------------------------------------------------------------------
// Admin Handlers
// -----------------------------------------------------------------------------

type adminSeriesRequest struct {
	Symbol           string `json:"symbol"`
	TimeframeMinutes int    `json:"timeframeMinutes"`
	Version          string `json:"version"`
	Count            int    `json:"count"`
}

func (s *FastAPIServer) adminPopulate(c *gin.Context) {
	var req adminSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbol == "" || req.TimeframeMinutes <= 0 || req.Count <= 0 {
		c.JSON(400, gin.H{"ok": false, "error": "symbol, timeframeMinutes and count are required"})
		return
	}

	seriesCfg, ok := s.resolveSeries(req.Symbol, req.TimeframeMinutes)
	if !ok {
		c.JSON(404, gin.H{"ok": false, "error": "Asset not found"})
		return
	}
	if req.Version != "" {
		seriesCfg.Version = req.Version
	}

	written, err := backfill.PopulateBefore(s.Store, seriesCfg, time.Now().UTC().UnixMilli(), req.Count, s.Logger)
	if err != nil {
		c.JSON(500, gin.H{"ok": false, "error": err.Error(), "written": written})
		return
	}

	c.JSON(200, gin.H{"ok": true, "written": written})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) adminPurge(c *gin.Context) {
	var req adminSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbol == "" || req.TimeframeMinutes <= 0 {
		c.JSON(400, gin.H{"ok": false, "error": "symbol and timeframeMinutes are required"})
		return
	}
	if req.Version == "" {
		req.Version = "v1"
	}

	meta := models.MSeriesMeta{Symbol: req.Symbol, TimeframeMinutes: req.TimeframeMinutes, Version: req.Version}
	removed, err := s.Store.Purge(meta)
	if err != nil {
		c.JSON(500, gin.H{"ok": false, "error": err.Error()})
		return
	}

	s.Logger.Info("Purged %d candles for %s", removed, meta.Key())
	c.JSON(200, gin.H{"ok": true, "removed": removed})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// resolveSeries matches a configured series for (symbol, timeframe), falling
// back to catalogue defaults so any listed asset can be charted.
func (s *FastAPIServer) resolveSeries(symbol string, timeframeMinutes int) (models.MSeriesConfig, bool) {
	for _, cfg := range s.Config.Series {
		if cfg.Symbol == symbol && cfg.TimeframeMinutes == timeframeMinutes {
			return cfg, true
		}
	}

	asset, found := catalog.FindAsset(symbol, time.Now().UTC())
	if !found {
		return models.MSeriesConfig{}, false
	}

	return models.MSeriesConfig{
		Symbol:           asset.ID,
		TimeframeMinutes: timeframeMinutes,
		Version:          "v1",
		InitialPrice:     asset.Price,
		Volatility:       0.02,
		PriceDecimals:    5,
	}, true
}

// -----------------------------------------------------------------------------

// parseTimeframe converts shorthand like "1m", "5m", "1h" into minutes.
func parseTimeframe(tf string) int {
	tf = strings.ToLower(strings.TrimSpace(tf))

	switch {
	case strings.HasSuffix(tf, "h"):
		if v, err := strconv.Atoi(strings.TrimSuffix(tf, "h")); err == nil && v > 0 {
			return v * 60
		}
	case strings.HasSuffix(tf, "m"):
		if v, err := strconv.Atoi(strings.TrimSuffix(tf, "m")); err == nil && v > 0 {
			return v
		}
	default:
		if v, err := strconv.Atoi(tf); err == nil && v > 0 {
			return v
		}
	}
	return 1
}
