package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

type scriptedAnalyzer struct {
	mu       sync.Mutex
	verdicts map[string][]string
	errs     map[string]error
	calls    []string
}

func (a *scriptedAnalyzer) Analyze(_ context.Context, token string, _ aftershock.ThresholdOverrides) (aftershock.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, token)
	if err := a.errs[token]; err != nil {
		return aftershock.Result{}, err
	}
	queue := a.verdicts[token]
	verdict := queue[0]
	if len(queue) > 1 {
		a.verdicts[token] = queue[1:]
	}
	score := 0
	if verdict == aftershock.VerdictHighProbability {
		score = 72
	}
	return aftershock.Result{Verdict: verdict, SetupScore: score, SetupScoreMax: aftershock.MaxSetupScore}, nil
}

func (a *scriptedAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func TestScheduler_AddValidation(t *testing.T) {
	s := NewScheduler(&scriptedAnalyzer{})

	_, err := s.Add("@every 1m", []string{" ", ""})
	assert.Error(t, err)

	_, err = s.Add("not a schedule", []string{"Token111"})
	assert.Error(t, err)

	_, err = s.Add("*/15 * * * *", []string{"Token111", " Token111 ", "Token222"})
	require.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"Token111", "Token222"}, jobs[0].Tokens)
}

func TestScheduler_RunOnceReportsTransitions(t *testing.T) {
	analyzer := &scriptedAnalyzer{verdicts: map[string][]string{
		"A": {aftershock.VerdictAvoid, aftershock.VerdictHighProbability},
		"B": {aftershock.VerdictNoTrade},
	}}

	var seen []Transition
	s := NewScheduler(analyzer, WithTransitionHandler(func(tr Transition) { seen = append(seen, tr) }))
	_, err := s.Add("@every 1h", []string{"A", "B"})
	require.NoError(t, err)
	_, err = s.Add("@every 2h", []string{"B"})
	require.NoError(t, err)

	first := s.RunOnce(context.Background())
	assert.Len(t, first.Results, 2, "tokens shared between jobs run once")
	assert.Empty(t, first.Transitions)

	second := s.RunOnce(context.Background())
	require.Len(t, second.Transitions, 1)
	tr := second.Transitions[0]
	assert.Equal(t, "A", tr.Token)
	assert.Equal(t, aftershock.VerdictAvoid, tr.From)
	assert.Equal(t, aftershock.VerdictHighProbability, tr.To)
	assert.Equal(t, 72, tr.Score)
	assert.Equal(t, second.Transitions, seen)

	verdict, ok := s.LastVerdict("A")
	require.True(t, ok)
	assert.Equal(t, aftershock.VerdictHighProbability, verdict)
}

func TestScheduler_FailuresDoNotStopRun(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		verdicts: map[string][]string{"ok": {aftershock.VerdictLowProbability}},
		errs:     map[string]error{"bad": errors.New("Request failed with status 500")},
	}
	s := NewScheduler(analyzer)

	run := s.Run(context.Background(), []string{"bad", "ok"})
	require.Len(t, run.Results, 2)
	assert.Equal(t, "Request failed with status 500", run.Results[0].Error)
	assert.Equal(t, aftershock.VerdictLowProbability, run.Results[1].Verdict)
	assert.Equal(t, 1, run.Failed())

	_, ok := s.LastVerdict("bad")
	assert.False(t, ok)
}

func TestScheduler_CancelledContextStopsRun(t *testing.T) {
	analyzer := &scriptedAnalyzer{verdicts: map[string][]string{"A": {aftershock.VerdictNoTrade}}}
	s := NewScheduler(analyzer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := s.Run(ctx, []string{"A"})
	assert.Empty(t, run.Results)
	assert.Equal(t, 0, analyzer.callCount())
}

func TestScheduler_StartRunsOnSchedule(t *testing.T) {
	analyzer := &scriptedAnalyzer{verdicts: map[string][]string{"A": {aftershock.VerdictNoTrade}}}
	s := NewScheduler(analyzer)
	_, err := s.Add("@every 1s", []string{"A"})
	require.NoError(t, err)

	s.Start(context.Background())
	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Jobs)
	assert.Equal(t, 1, st.Tokens)

	assert.Eventually(t, func() bool { return analyzer.callCount() > 0 }, 5*time.Second, 50*time.Millisecond)

	s.Stop()
	assert.False(t, s.Status().Running)
}

func TestNewFromConfig(t *testing.T) {
	s, err := NewFromConfig(&scriptedAnalyzer{}, config.WatchConfig{Schedule: "@every 15m"})
	require.NoError(t, err)
	assert.Empty(t, s.Jobs())

	s, err = NewFromConfig(&scriptedAnalyzer{}, config.WatchConfig{Schedule: "@every 15m", Tokens: []string{"A"}})
	require.NoError(t, err)
	assert.Len(t, s.Jobs(), 1)

	_, err = NewFromConfig(&scriptedAnalyzer{}, config.WatchConfig{Schedule: "bogus", Tokens: []string{"A"}})
	assert.Error(t, err)
}
