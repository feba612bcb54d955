// Package watch re-scores a watchlist of tokens on a cron schedule and reports
// verdict changes between runs.
package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

// Analyzer scores a single token
type Analyzer interface {
	Analyze(ctx context.Context, token string, overrides aftershock.ThresholdOverrides) (aftershock.Result, error)
}

// Job is one schedule and the tokens it re-scores
type Job struct {
	ID       cron.EntryID `yaml:"-"`
	Schedule string       `yaml:"schedule"`
	Tokens   []string     `yaml:"tokens"`
}

// TokenResult is the outcome for one token in one run
type TokenResult struct {
	Token      string `json:"token"`
	Verdict    string `json:"verdict,omitempty"`
	SetupScore int    `json:"setup_score"`
	Error      string `json:"error,omitempty"`
}

// Transition records a verdict change since the previous run
type Transition struct {
	Token string    `json:"token"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	Score int       `json:"score"`
	At    time.Time `json:"at"`
}

// RunResult summarizes one pass over a job's tokens
type RunResult struct {
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
	Results     []TokenResult `json:"results"`
	Transitions []Transition  `json:"transitions"`
}

// Failed counts tokens whose analysis returned an error
func (r RunResult) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Error != "" {
			n++
		}
	}
	return n
}

// Status represents scheduler status
type Status struct {
	Running bool          `json:"running"`
	Jobs    int           `json:"jobs"`
	Tokens  int           `json:"tokens"`
	NextRun time.Time     `json:"next_run"`
	LastRun time.Time     `json:"last_run"`
	Uptime  time.Duration `json:"uptime"`
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithTransitionHandler registers a callback for verdict changes
func WithTransitionHandler(fn func(Transition)) Option {
	return func(s *Scheduler) { s.onTransition = fn }
}

// WithOverrides applies threshold overrides to every scheduled analysis
func WithOverrides(overrides aftershock.ThresholdOverrides) Option {
	return func(s *Scheduler) { s.overrides = overrides }
}

// Scheduler manages the watchlist jobs
type Scheduler struct {
	analyzer     Analyzer
	cron         *cron.Cron
	overrides    aftershock.ThresholdOverrides
	onTransition func(Transition)
	now          func() time.Time

	mu        sync.Mutex
	jobs      []Job
	verdicts  map[string]string
	baseCtx   context.Context
	running   bool
	startTime time.Time
	lastRun   time.Time
}

// NewScheduler creates a scheduler that scores tokens with analyzer
func NewScheduler(analyzer Analyzer, opts ...Option) *Scheduler {
	s := &Scheduler{
		analyzer: analyzer,
		cron:     cron.New(),
		verdicts: make(map[string]string),
		baseCtx:  context.Background(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a scheduler with the configured watchlist registered
func NewFromConfig(analyzer Analyzer, cfg config.WatchConfig, opts ...Option) (*Scheduler, error) {
	s := NewScheduler(analyzer, opts...)
	if len(cfg.Tokens) == 0 {
		return s, nil
	}
	if _, err := s.Add(cfg.Schedule, cfg.Tokens); err != nil {
		return nil, err
	}
	return s, nil
}

// Add registers tokens to be re-scored on schedule. Standard five-field cron
// specs and descriptors such as "@every 15m" are accepted.
func (s *Scheduler) Add(schedule string, tokens []string) (cron.EntryID, error) {
	schedule = strings.TrimSpace(schedule)
	cleaned := cleanTokens(tokens)
	if len(cleaned) == 0 {
		return 0, fmt.Errorf("watch schedule %q has no tokens", schedule)
	}

	job := Job{Schedule: schedule, Tokens: cleaned}
	id, err := s.cron.AddFunc(schedule, func() {
		s.mu.Lock()
		ctx := s.baseCtx
		s.mu.Unlock()
		s.Run(ctx, job.Tokens)
	})
	if err != nil {
		return 0, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}
	job.ID = id

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	log.Info().Str("schedule", schedule).Strs("tokens", cleaned).Msg("Watch job registered")
	return id, nil
}

// Jobs returns the registered jobs
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// RunOnce scores every registered token immediately
func (s *Scheduler) RunOnce(ctx context.Context) RunResult {
	seen := make(map[string]struct{})
	var tokens []string
	for _, job := range s.Jobs() {
		for _, token := range job.Tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return s.Run(ctx, tokens)
}

// Run scores the given tokens sequentially. Failures are logged and recorded
// in the result; they never abort the remaining tokens.
func (s *Scheduler) Run(ctx context.Context, tokens []string) RunResult {
	run := RunResult{StartTime: s.now()}

	for _, token := range tokens {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Watch run cancelled")
			break
		}

		result, err := s.analyzer.Analyze(ctx, token, s.overrides)
		if err != nil {
			log.Error().Err(err).Str("token", token).Msg("Watch analysis failed")
			run.Results = append(run.Results, TokenResult{Token: token, Error: err.Error()})
			continue
		}

		run.Results = append(run.Results, TokenResult{
			Token:      token,
			Verdict:    result.Verdict,
			SetupScore: result.SetupScore,
		})
		log.Info().
			Str("token", token).
			Str("verdict", result.Verdict).
			Int("score", result.SetupScore).
			Int("max", result.SetupScoreMax).
			Msg("Watch analysis")

		if tr, changed := s.observe(token, result); changed {
			run.Transitions = append(run.Transitions, tr)
			log.Warn().
				Str("token", token).
				Str("from", tr.From).
				Str("to", tr.To).
				Int("score", tr.Score).
				Msg("Verdict changed")
			if s.onTransition != nil {
				s.onTransition(tr)
			}
		}
	}

	run.Duration = s.now().Sub(run.StartTime)
	s.mu.Lock()
	s.lastRun = run.StartTime
	s.mu.Unlock()
	return run
}

// observe stores the latest verdict and reports a change from a previous one.
// The first verdict seen for a token is not a transition.
func (s *Scheduler) observe(token string, result aftershock.Result) (Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.verdicts[token]
	s.verdicts[token] = result.Verdict
	if !seen || prev == result.Verdict {
		return Transition{}, false
	}
	return Transition{
		Token: token,
		From:  prev,
		To:    result.Verdict,
		Score: result.SetupScore,
		At:    s.now(),
	}, true
}

// LastVerdict returns the most recent verdict recorded for token
func (s *Scheduler) LastVerdict(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verdicts[token]
	return v, ok
}

// Start runs the cron loop in the background. Scheduled runs use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.running = true
	s.startTime = s.now()
	jobs := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	log.Info().Int("jobs", jobs).Msg("Watch scheduler started")
}

// Stop halts scheduling and waits for any in-flight run to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	log.Info().Msg("Watch scheduler stopped")
}

// Status reports the scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running: s.running,
		Jobs:    len(s.jobs),
		LastRun: s.lastRun,
	}
	for _, job := range s.jobs {
		st.Tokens += len(job.Tokens)
	}
	if s.running {
		st.Uptime = s.now().Sub(s.startTime)
	}

	for _, entry := range s.cron.Entries() {
		if st.NextRun.IsZero() || (!entry.Next.IsZero() && entry.Next.Before(st.NextRun)) {
			st.NextRun = entry.Next
		}
	}
	return st
}

func cleanTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
