package models

import "time"

// EndpointCandidate - адрес площадки реестра с результатом последней проверки.
type EndpointCandidate struct {
	BaseURL  string        `json:"base_url"`
	Healthy  bool          `json:"healthy"`
	Latency  time.Duration `json:"latency"`
	Error    string        `json:"error,omitempty"`
	ProbedAt time.Time     `json:"probed_at,omitempty"`
}
