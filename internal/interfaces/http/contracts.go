package http

import (
	"time"

	"github.com/sawpanic/aftershock/internal/infrastructure/providers"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`

	System   SystemInfo                         `json:"system"`
	Breakers map[string]string                  `json:"breakers"`
	Budgets  map[string]*providers.BudgetStatus `json:"budgets,omitempty"`
	Analyses float64                            `json:"analyses"`
	Checks   map[string]CheckResult             `json:"checks"`
}

// SystemInfo provides system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message"`
}
