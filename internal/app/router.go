package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"nemt/internal/handler"
	"nemt/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler       *handler.TripHandler
	DriverHandler     *handler.DriverHandler
	PatientHandler    *handler.PatientHandler
	RateSourceHandler *handler.RateSourceHandler
	AssignmentHandler *handler.AssignmentHandler
	ComplianceHandler *handler.ComplianceHandler
	BillingHandler    *handler.BillingHandler
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.Create)
			trips.GET("", deps.TripHandler.GetAll)
			trips.GET("/conflicts", deps.TripHandler.Conflicts)
			trips.GET("/:id", deps.TripHandler.Get)
			trips.POST("/:id/assign", deps.TripHandler.Assign)
			trips.POST("/:id/status", deps.TripHandler.UpdateStatus)
			trips.POST("/:id/complete", deps.TripHandler.Complete)
			trips.POST("/:id/cancel", deps.TripHandler.Cancel)
			trips.POST("/:id/no-show", deps.TripHandler.NoShow)
			trips.POST("/:id/reinstate", deps.TripHandler.Reinstate)
			trips.POST("/:id/will-call", deps.TripHandler.ResolveWillCall)
			trips.POST("/:id/convert-roundtrip", deps.TripHandler.ConvertToRoundtrip)
			trips.POST("/:id/fare", deps.TripHandler.OverrideFare)
			trips.POST("/:id/payout", deps.TripHandler.OverridePayout)
			trips.POST("/bulk/assign", deps.TripHandler.BulkAssign)
			trips.POST("/bulk/status", deps.TripHandler.BulkUpdateStatus)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:id", deps.DriverHandler.Get)
			drivers.POST("/:id/status", deps.DriverHandler.UpdateStatus)
			drivers.PUT("/:id/documents", deps.DriverHandler.UpdateDocuments)
		}

		// Patient routes.
		patients := v1.Group("/patients")
		{
			patients.POST("", deps.PatientHandler.Create)
			patients.GET("", deps.PatientHandler.GetAll)
			patients.GET("/:id", deps.PatientHandler.Get)
		}

		// Rate source (contractor/clinic) routes.
		rateSources := v1.Group("/rate-sources")
		{
			rateSources.POST("", deps.RateSourceHandler.Create)
			rateSources.GET("", deps.RateSourceHandler.GetAll)
			rateSources.GET("/:id", deps.RateSourceHandler.Get)
		}

		// Auto-assignment routes.
		assignments := v1.Group("/assignments")
		{
			assignments.POST("/run", deps.AssignmentHandler.Run)
			assignments.GET("/preview/:id", deps.AssignmentHandler.Preview)
		}

		// Compliance routes.
		compliance := v1.Group("/compliance")
		{
			compliance.GET("/fleet", deps.ComplianceHandler.Fleet)
			compliance.GET("/drivers/:id", deps.ComplianceHandler.Driver)
		}

		// Billing routes.
		billing := v1.Group("/billing")
		{
			billing.GET("/trips/:id", deps.BillingHandler.Statement)
			billing.GET("/trips/:id/text", deps.BillingHandler.StatementText)
		}
	}

	return router
}
