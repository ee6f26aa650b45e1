package handler

import (
	"net/http"

	"github.com/Felag1n/AudioBridge/internal/hub"
	"github.com/gin-gonic/gin"
)

// StatsHandler exposes hub statistics for operational monitoring.
type StatsHandler struct {
	stats *hub.StatsService
}

func NewStatsHandler(stats *hub.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) GetHubStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.GetStats())
}
