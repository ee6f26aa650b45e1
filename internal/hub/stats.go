package hub

import (
	"sort"

	"github.com/Felag1n/AudioBridge/internal/model"
)

// StatsService gathers hub statistics for the monitoring endpoint.
type StatsService struct {
	hub *Hub
}

func NewStatsService(hub *Hub) *StatsService {
	return &StatsService{hub: hub}
}

func (s *StatsService) GetStats() model.StatsResponse {
	online := s.hub.OnlineUsers()
	sort.Strings(online)

	status := "healthy"
	if len(online) == 0 {
		status = "idle"
	}

	return model.StatsResponse{
		Status:      status,
		Connections: s.hub.ConnectionCount(),
		OnlineUsers: online,
	}
}
