package model

// StatsResponse is the monitoring snapshot returned by the stats endpoint.
type StatsResponse struct {
	Status      string   `json:"status"`
	Connections int      `json:"connections"`
	OnlineUsers []string `json:"onlineUsers"`
}
