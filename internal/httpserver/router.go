package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"storefront-checkout/internal/domain"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// AuthService logs users in and resolves bearer tokens.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
}

// OrderService is the order use-case layer behind /pedidos.
type OrderService interface {
	Create(ctx context.Context, caller domain.User, draft domain.Order) (*domain.Order, error)
	ListByUser(ctx context.Context, caller domain.User, userID int64) ([]domain.Order, error)
	Get(ctx context.Context, caller domain.User, id int64) (*domain.Order, error)
	Lines(ctx context.Context, caller domain.User, id int64) ([]domain.OrderLine, error)
	Cancel(ctx context.Context, caller domain.User, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, caller domain.User, id int64, status domain.Status) (*domain.Order, error)
	Summary(ctx context.Context, caller domain.User) (domain.OrderSummary, error)
	RequestDeliveryNoteEmail(ctx context.Context, caller domain.User, req domain.DeliveryNoteEmailRequest) error
}

// Deps groups the services the router needs.
type Deps struct {
	AuthSvc          AuthService
	OrderSvc         OrderService
	CORSAllowOrigins []string
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if deps.AuthSvc == nil || deps.OrderSvc == nil {
		return nil, errors.New("httpserver: auth and order services are required")
	}
	router := gin.New()
	router.Use(
		correlationIDMiddleware(),
		gin.LoggerWithWriter(logger.Writer()),
		gin.Recovery(),
		cors.New(corsConfig(deps.CORSAllowOrigins)),
	)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{auth: deps.AuthSvc, orders: deps.OrderSvc, logger: logger}

	router.POST("/auth/login", h.login)

	authed := router.Group("/", authMiddleware(deps.AuthSvc))
	authed.GET("/usuarios/me", h.me)

	pedidos := authed.Group("/pedidos")
	pedidos.POST("", h.createOrder)
	pedidos.GET("/summary", h.summary)
	pedidos.GET("/user/:userId", h.listUserOrders)
	pedidos.GET("/:id", h.getOrder)
	pedidos.GET("/:id/lineas", h.orderLines)
	pedidos.PATCH("/:id/cancel", h.cancelOrder)
	pedidos.PATCH("/:id/status", h.updateStatus)
	pedidos.POST("/enviar-albaran-email", h.sendDeliveryNote)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", headerCorrelationID},
		ExposeHeaders:    []string{headerCorrelationID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
