package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/sawpanic/aftershock/internal/infrastructure/providers"
)

// BreakerStates reports the circuit breaker state per provider
type BreakerStates interface {
	States() map[string]string
}

// BudgetStates reports call budget usage per provider
type BudgetStates interface {
	GetAllStatuses() map[string]*providers.BudgetStatus
}

// HealthHandler provides system health status endpoint
type HealthHandler struct {
	breakers      BreakerStates
	budgets       BudgetStates
	metrics       *MetricsRegistry
	apiConfigured bool
	startTime     time.Time
	version       string
}

// NewHealthHandler creates a new health handler. breakers and metrics may be nil.
func NewHealthHandler(breakers BreakerStates, metrics *MetricsRegistry, apiConfigured bool, version string) *HealthHandler {
	return &HealthHandler{
		breakers:      breakers,
		metrics:       metrics,
		apiConfigured: apiConfigured,
		startTime:     time.Now(),
		version:       version,
	}
}

// ServeHTTP implements the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.gatherHealthInfo()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	// degraded still answers 200
	if response.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthHandler) gatherHealthInfo() HealthResponse {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := HealthResponse{
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAlloc:      memStats.Alloc,
		},
		Breakers: map[string]string{},
		Budgets:  map[string]*providers.BudgetStatus{},
		Checks:   make(map[string]CheckResult),
	}

	if h.metrics != nil {
		response.Analyses = h.metrics.AnalysesTotal()
	}

	if h.apiConfigured {
		response.Checks["moralis_api_key"] = CheckResult{Status: "pass", Message: "Moralis API key configured"}
	} else {
		response.Checks["moralis_api_key"] = CheckResult{Status: "fail", Message: "Moralis API key is not configured."}
	}

	if h.breakers != nil {
		response.Breakers = h.breakers.States()
		h.addBreakerChecks(&response)
	}

	if h.budgets != nil {
		for name, status := range h.budgets.GetAllStatuses() {
			response.Budgets[name] = status
			check := CheckResult{Status: "pass", Message: fmt.Sprintf("%s budget %s", name, status.Status)}
			if status.Status == providers.BudgetLimitReached {
				check.Status = "warn"
			}
			response.Checks["budget_"+name] = check
		}
	}

	response.Status = overallStatus(response.Checks)
	return response
}

func (h *HealthHandler) addBreakerChecks(response *HealthResponse) {
	for name, state := range response.Breakers {
		check := CheckResult{Status: "pass", Message: fmt.Sprintf("%s circuit %s", name, state)}
		switch state {
		case "open", "half-open":
			check.Status = "warn"
		}
		response.Checks["circuit_"+name] = check
	}
}

// overallStatus is unhealthy on any failing check and degraded on any warning
func overallStatus(checks map[string]CheckResult) string {
	status := "healthy"
	for _, check := range checks {
		switch check.Status {
		case "fail":
			return "unhealthy"
		case "warn":
			status = "degraded"
		}
	}
	return status
}
