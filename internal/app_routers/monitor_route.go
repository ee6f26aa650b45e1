package approuters

import (
	"github.com/Felag1n/AudioBridge/internal/configuration"
	"github.com/Felag1n/AudioBridge/internal/handler"
	"github.com/gin-gonic/gin"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	statsHandler := handler.NewStatsHandler(container.Stats)

	monitorGroup := router.Group("/api/monitor")
	{
		monitorGroup.GET("/stats", statsHandler.GetHubStats)
	}
}
