package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/infrastructure/auth"
	"github.com/shulepay/backend/internal/infrastructure/config"
	applog "github.com/shulepay/backend/internal/infrastructure/logger"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
	"github.com/shulepay/backend/internal/interfaces/http/handler"
	"github.com/shulepay/backend/internal/interfaces/http/middleware"
)

// Handlers bundles every handler the router mounts
type Handlers struct {
	Health  *handler.HealthHandler
	Catalog *handler.CatalogHandler
	Invoice *handler.InvoiceHandler
	Arrears *handler.ArrearsHandler
	Mpesa   *handler.MpesaHandler
}

// New builds the gin engine with all routes mounted. The M-Pesa callback and
// the health probes are public; everything else sits behind JWT auth.
func New(cfg *config.Config, jwtService *auth.JWTService, h Handlers, logger *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidators()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(
		middleware.RequestID(),
		applog.Recovery(logger),
		applog.GinMiddleware(logger),
		middleware.CORS(cfg.HTTP),
	)

	engine.GET("/health/live", h.Health.Live)
	engine.GET("/health/ready", h.Health.Ready)

	v1 := engine.Group("/api/v1")

	// Gateway callbacks authenticate by HMAC signature, not JWT
	v1.POST("/callbacks/mpesa/:school_id", h.Mpesa.Callback)

	api := v1.Group("", middleware.JWTAuth(jwtService))
	{
		api.POST("/terms", h.Catalog.CreateTerm)
		api.GET("/terms", h.Catalog.ListTerms)
		api.POST("/terms/:id/close", h.Catalog.CloseTerm)

		api.POST("/fee-structures", h.Catalog.CreateFeeStructure)
		api.GET("/fee-structures", h.Catalog.ListFeeStructures)
		api.GET("/fee-structures/:id", h.Catalog.GetFeeStructure)
		api.PUT("/fee-structures/:id/amount", h.Catalog.UpdateFeeStructureAmount)
		api.DELETE("/fee-structures/:id", h.Catalog.DeactivateFeeStructure)

		api.PUT("/fee-overrides", h.Catalog.SetOverride)
		api.DELETE("/fee-overrides/:id", h.Catalog.RemoveOverride)

		api.POST("/invoices/generate", h.Invoice.Generate)
		api.GET("/invoices/:id", h.Invoice.Get)
		api.POST("/invoices/:id/cancel", h.Invoice.Cancel)
		api.GET("/invoices/:id/payments", h.Invoice.ListPayments)
		api.POST("/invoices/:id/payments", h.Invoice.RecordPayment)
		api.GET("/students/:id/invoices", h.Invoice.ListStudentInvoices)

		api.GET("/arrears", h.Arrears.ListUnresolved)
		api.POST("/arrears/recompute", h.Arrears.RecomputeAll)
		api.GET("/students/:id/arrears", h.Arrears.GetStudentArrears)
		api.POST("/students/:id/arrears/recompute", h.Arrears.RecomputeStudent)

		api.POST("/payments/stk-push", h.Mpesa.InitiateSTKPush)
		api.GET("/mpesa/unmatched", h.Mpesa.ListUnmatched)
		api.POST("/mpesa/transactions/:id/retry-match", h.Mpesa.RetryMatch)
	}

	return engine
}
