package providers

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sawpanic/aftershock/internal/config"
)

// ErrBudgetExhausted is wrapped by every CheckAndConsume refusal
var ErrBudgetExhausted = errors.New("call budget exhausted")

// Budget status values
const (
	BudgetActive       = "ACTIVE"
	BudgetWarning      = "WARNING"
	BudgetLimitReached = "LIMIT_REACHED"
)

const budgetWarnPercent = 80.0

// BudgetGuard caps upstream calls per provider over calendar hour, day and
// month windows. Providers without a budget, and zero limits, are unlimited.
type BudgetGuard struct {
	providers map[string]*ProviderBudget
	mutex     sync.Mutex
	now       func() time.Time
}

type ProviderBudget struct {
	Name             string
	MonthlyLimit     int
	MonthlyUsed      int
	DailyLimit       int
	DailyUsed        int
	HourlyLimit      int
	HourlyUsed       int
	MonthlyResetTime time.Time
	DailyResetTime   time.Time
	HourlyResetTime  time.Time
}

type BudgetStatus struct {
	Provider           string    `json:"provider"`
	MonthlyUtilization float64   `json:"monthly_utilization"`
	DailyUtilization   float64   `json:"daily_utilization"`
	HourlyUtilization  float64   `json:"hourly_utilization"`
	RemainingCalls     int       `json:"remaining_calls"` // -1 when unlimited
	NextReset          time.Time `json:"next_reset"`
	Status             string    `json:"status"`
}

func NewBudgetGuard() *BudgetGuard {
	return &BudgetGuard{
		providers: make(map[string]*ProviderBudget),
		now:       time.Now,
	}
}

// NewBudgetGuardFromConfig registers every provider that sets at least one
// budget limit
func NewBudgetGuardFromConfig(providers map[string]config.ProviderConfig) *BudgetGuard {
	bg := NewBudgetGuard()
	for name, cfg := range providers {
		b := cfg.Budget
		if b.Hourly == 0 && b.Daily == 0 && b.Monthly == 0 {
			continue
		}
		bg.InitializeProvider(name, b.Monthly, b.Daily, b.Hourly)
	}
	return bg
}

func (bg *BudgetGuard) InitializeProvider(name string, monthlyLimit, dailyLimit, hourlyLimit int) {
	bg.mutex.Lock()
	defer bg.mutex.Unlock()

	now := bg.now()
	bg.providers[name] = &ProviderBudget{
		Name:             name,
		MonthlyLimit:     monthlyLimit,
		DailyLimit:       dailyLimit,
		HourlyLimit:      hourlyLimit,
		MonthlyResetTime: getNextMonthReset(now),
		DailyResetTime:   getNextDayReset(now),
		HourlyResetTime:  getNextHourReset(now),
	}
}

// CheckAndConsume records calls against the provider's budget, or refuses
// them without consuming anything when any window would overflow
func (bg *BudgetGuard) CheckAndConsume(provider string, calls int) error {
	bg.mutex.Lock()
	defer bg.mutex.Unlock()

	budget, exists := bg.providers[provider]
	if !exists {
		return nil
	}

	bg.resetExpiredWindows(budget)

	if exceeds(budget.MonthlyUsed, calls, budget.MonthlyLimit) {
		return fmt.Errorf("monthly budget exceeded for %s: %d/%d calls: %w",
			provider, budget.MonthlyUsed, budget.MonthlyLimit, ErrBudgetExhausted)
	}
	if exceeds(budget.DailyUsed, calls, budget.DailyLimit) {
		return fmt.Errorf("daily budget exceeded for %s: %d/%d calls: %w",
			provider, budget.DailyUsed, budget.DailyLimit, ErrBudgetExhausted)
	}
	if exceeds(budget.HourlyUsed, calls, budget.HourlyLimit) {
		return fmt.Errorf("hourly budget exceeded for %s: %d/%d calls: %w",
			provider, budget.HourlyUsed, budget.HourlyLimit, ErrBudgetExhausted)
	}

	budget.MonthlyUsed += calls
	budget.DailyUsed += calls
	budget.HourlyUsed += calls
	return nil
}

func (bg *BudgetGuard) GetBudgetStatus(provider string) *BudgetStatus {
	bg.mutex.Lock()
	defer bg.mutex.Unlock()

	budget, exists := bg.providers[provider]
	if !exists {
		return nil
	}
	bg.resetExpiredWindows(budget)
	return budget.status()
}

func (bg *BudgetGuard) GetAllStatuses() map[string]*BudgetStatus {
	bg.mutex.Lock()
	defer bg.mutex.Unlock()

	statuses := make(map[string]*BudgetStatus, len(bg.providers))
	for name, budget := range bg.providers {
		bg.resetExpiredWindows(budget)
		statuses[name] = budget.status()
	}
	return statuses
}

func (b *ProviderBudget) status() *BudgetStatus {
	monthlyUtil := utilization(b.MonthlyUsed, b.MonthlyLimit)
	dailyUtil := utilization(b.DailyUsed, b.DailyLimit)
	hourlyUtil := utilization(b.HourlyUsed, b.HourlyLimit)

	status := BudgetActive
	switch maxUtil := max(monthlyUtil, dailyUtil, hourlyUtil); {
	case maxUtil >= 100:
		status = BudgetLimitReached
	case maxUtil >= budgetWarnPercent:
		status = BudgetWarning
	}

	remaining := math.MaxInt
	for _, w := range [][2]int{
		{b.MonthlyLimit, b.MonthlyUsed},
		{b.DailyLimit, b.DailyUsed},
		{b.HourlyLimit, b.HourlyUsed},
	} {
		if w[0] > 0 {
			remaining = min(remaining, w[0]-w[1])
		}
	}
	if remaining == math.MaxInt {
		remaining = -1
	}

	nextReset := b.HourlyResetTime
	if b.DailyResetTime.Before(nextReset) {
		nextReset = b.DailyResetTime
	}
	if b.MonthlyResetTime.Before(nextReset) {
		nextReset = b.MonthlyResetTime
	}

	return &BudgetStatus{
		Provider:           b.Name,
		MonthlyUtilization: monthlyUtil,
		DailyUtilization:   dailyUtil,
		HourlyUtilization:  hourlyUtil,
		RemainingCalls:     remaining,
		NextReset:          nextReset,
		Status:             status,
	}
}

func (bg *BudgetGuard) resetExpiredWindows(budget *ProviderBudget) {
	now := bg.now()

	if !now.Before(budget.HourlyResetTime) {
		budget.HourlyUsed = 0
		budget.HourlyResetTime = getNextHourReset(now)
	}
	if !now.Before(budget.DailyResetTime) {
		budget.DailyUsed = 0
		budget.DailyResetTime = getNextDayReset(now)
	}
	if !now.Before(budget.MonthlyResetTime) {
		budget.MonthlyUsed = 0
		budget.MonthlyResetTime = getNextMonthReset(now)
	}
}

func exceeds(used, calls, limit int) bool {
	return limit > 0 && used+calls > limit
}

func utilization(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}

func getNextHourReset(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}

func getNextDayReset(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}

func getNextMonthReset(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
}
