package router

import (
	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/config"
	"github.com/blues/cps/internal/handler"
	"github.com/blues/cps/internal/logic"
	"github.com/blues/cps/internal/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, engine *workflow.Engine, ngoLogic *logic.NGOLogic, researchCap capability.ResearchProvider, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "charity-payment-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		donationHandler := handler.NewDonationHandler(engine)
		v1.POST("/donations", donationHandler.SubmitDonation)

		milestoneHandler := handler.NewMilestoneHandler(engine)
		milestones := v1.Group("/milestones")
		{
			milestones.POST("/:id/proof", milestoneHandler.SubmitProof)
			milestones.POST("/:id/verified", milestoneHandler.NotifyVerified)
		}

		workflowHandler := handler.NewWorkflowHandler(engine)
		workflows := v1.Group("/workflows")
		{
			workflows.GET("/:id", workflowHandler.GetStatus)
			workflows.POST("/:id/acknowledge", workflowHandler.Acknowledge)
			workflows.POST("/:id/cancel", workflowHandler.Cancel)
		}
		v1.GET("/escalations", workflowHandler.ListEscalations)
		v1.GET("/audit/reconciliation", workflowHandler.Reconciliation)

		ngoHandler := handler.NewNGOHandler(cfg, ngoLogic, researchCap)
		ngos := v1.Group("/ngos")
		{
			ngos.POST("/research", ngoHandler.Research)
			ngos.GET("", ngoHandler.ListNGOs)
		}

		reportHandler := handler.NewReportHandler(logic.NewReportLogic(db))
		v1.GET("/reports", reportHandler.ListReports)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
