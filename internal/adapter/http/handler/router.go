package handler

import (
	"campus-card-ledger/internal/adapter/http/middleware"
	"campus-card-ledger/internal/adapter/ws"
	"campus-card-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Cards          ports.CardRegistry
	Ledger         ports.LedgerStore
	Processor      ports.TransactionProcessor
	AggRepo        ports.AggregateRepository
	ReaderWS       *ws.ReaderEndpoint   // nil = hardware feed disabled
	TerminalWS     *ws.TerminalEndpoint // nil = terminal channel disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Event channels
	if deps.ReaderWS != nil {
		r.GET("/ws/reader", deps.ReaderWS.Handle)
	}
	if deps.TerminalWS != nil {
		r.GET("/ws/terminal", deps.TerminalWS.Handle)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	txHandler := NewTransactionHandler(deps.Processor, deps.AggRepo)
	v1.POST("/purchases", txHandler.Purchase)
	v1.POST("/recharges", txHandler.Recharge)
	v1.GET("/reports/daily", txHandler.DailyReport)

	cardHandler := NewCardHandler(deps.Cards, deps.Ledger)
	cards := v1.Group("/cards")
	{
		cards.POST("", cardHandler.Issue)
		cards.GET("/balance", cardHandler.GetBalance)
		cards.PATCH("/:uid/status", cardHandler.SetStatus)
		cards.POST("/:uid/reconcile", cardHandler.Reconcile)
	}

	return r
}
