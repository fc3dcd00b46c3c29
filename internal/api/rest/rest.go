package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-distributor/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Distribution reads (public)
		v1.GET("/distributions/:id", handler.GetDistribution)
		v1.GET("/distributions/:id/beneficiaries", handler.ListBeneficiaries)
		v1.GET("/distributions/:id/beneficiaries/:address", handler.GetBeneficiary)
		v1.GET("/distributions/:id/required-funding", handler.GetRequiredFunding)
		v1.GET("/distributions/:id/entitlements/:address", handler.GetEntitlement)
		v1.GET("/distributions/:id/can-claim/:address", handler.CanClaim)
		v1.GET("/distributions/:id/events", handler.ListLedgerEvents)

		// Claims are self-service. Eligibility is enforced by the engine
		// (beneficiary weight, payout method, allow list).
		v1.POST("/distributions/:id/claim", handler.Claim)

		// Administrative mutations (requires authentication)
		v1.POST("/distributions", middleware.Auth(authCfg), handler.CreateDistribution)
		v1.POST("/distributions/:id/weights", middleware.Auth(authCfg), handler.SetWeights)
		v1.POST("/distributions/:id/fund", middleware.Auth(authCfg), handler.Fund)
		v1.POST("/distributions/:id/allocation", middleware.Auth(authCfg), handler.DeclareTotalAllocation)
		v1.POST("/distributions/:id/settlements/automatic", middleware.Auth(authCfg), handler.BatchAutoSettle)
		v1.POST("/distributions/:id/settlements/off-ledger", middleware.Auth(authCfg), handler.MarkOffLedgerSettled)
		v1.POST("/distributions/:id/settlements/off-ledger/batch", middleware.Auth(authCfg), handler.BatchMarkOffLedgerSettled)

		// Allow-list management (requires authentication)
		v1.POST("/allowlist", middleware.Auth(authCfg), handler.AddToAllowList)
		v1.DELETE("/allowlist", middleware.Auth(authCfg), handler.RemoveFromAllowList)
		v1.PUT("/allowlist/required", middleware.Auth(authCfg), handler.SetAllowListRequired)

		// Operational controls (requires authentication)
		v1.POST("/sweep", middleware.Auth(authCfg), handler.EmergencySweep)
		v1.POST("/pause", middleware.Auth(authCfg), handler.Pause)
		v1.POST("/resume", middleware.Auth(authCfg), handler.Resume)
	}
}
