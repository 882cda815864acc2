package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/modules"
	"github.com/100xengineers/self-discovery-backend/internal/notify"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
	"github.com/100xengineers/self-discovery-backend/internal/providers"
)

type scriptedProvider struct {
	mu      sync.Mutex
	scripts [][]providers.StreamChunk
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return nil, errors.New("not implemented")
}

func (p *scriptedProvider) StreamComplete(ctx context.Context, req providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	p.mu.Lock()
	if len(p.scripts) == 0 {
		p.mu.Unlock()
		return nil, errors.New("no scripted stream left")
	}
	chunks := p.scripts[0]
	p.scripts = p.scripts[1:]
	p.mu.Unlock()

	out := make(chan providers.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type fakeStore struct {
	mu sync.Mutex

	balances      map[profile.Bucket]int
	balanceErr    error
	balanceWrites []int
	ikigaiRecord  profile.IkigaiRecord
	savedCharts   []models.IkigaiDetails
	ikigaiSaves   int
	existingIdeas []models.ProjectIdea
	savedIdeas    []models.ProjectIdea
	ideationSaves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: make(map[profile.Bucket]int)}
}

func (s *fakeStore) GetBalance(ctx context.Context, userID string, bucket profile.Bucket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balanceErr != nil {
		return 0, s.balanceErr
	}
	return s.balances[bucket], nil
}

func (s *fakeStore) UpdateBalance(ctx context.Context, userID string, bucket profile.Bucket, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[bucket] = amount
	s.balanceWrites = append(s.balanceWrites, amount)
	return nil
}

func (s *fakeStore) GetIkigai(ctx context.Context, userID string) (*profile.IkigaiRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.ikigaiRecord
	return &record, nil
}

func (s *fakeStore) SaveIkigai(ctx context.Context, userID string, details models.IkigaiDetails, history []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedCharts = append(s.savedCharts, details)
	return nil
}

func (s *fakeStore) SaveIkigaiTranscript(ctx context.Context, userID string, history []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ikigaiSaves++
	return nil
}

func (s *fakeStore) ListProjectIdeas(ctx context.Context, userID, moduleName string) ([]models.ProjectIdea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existingIdeas, nil
}

func (s *fakeStore) SaveProjectIdea(ctx context.Context, userID, moduleName string, idea models.ProjectIdea, history []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedIdeas = append(s.savedIdeas, idea)
	return nil
}

func (s *fakeStore) SaveIdeationTranscript(ctx context.Context, userID, moduleName string, history []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ideationSaves++
	return nil
}

func (s *fakeStore) lastBalanceWrite() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.balanceWrites) == 0 {
		return 0, false
	}
	return s.balanceWrites[len(s.balanceWrites)-1], true
}

func (s *fakeStore) balanceWriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.balanceWrites)
}

func (s *fakeStore) savedChartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.savedCharts)
}

func (s *fakeStore) savedIdeaCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.savedIdeas)
}

func (s *fakeStore) ideationSaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ideationSaves
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []models.UsageEntry
}

func (l *fakeLedger) Record(ctx context.Context, entry models.UsageEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func usageChunk(prompt, completion int) providers.StreamChunk {
	return providers.StreamChunk{
		FinishReason: "stop",
		Usage: &providers.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
}

func collect(t *testing.T, events <-chan TurnEvent) []TurnEvent {
	t.Helper()
	var out []TurnEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for turn events")
		}
	}
}

func doneEvent(t *testing.T, events []TurnEvent) TurnEvent {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventDone, last.Type)
	return last
}

func TestSubmitTurn_DebitsPromptAndCompletion(t *testing.T) {
	store := newFakeStore()
	store.balances[profile.BucketIkigai] = 15000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{{
		{Delta: "Hel"},
		{Delta: "lo"},
		usageChunk(500, 500),
	}}}
	ledger := &fakeLedger{}
	runner := NewRunner(store, provider, ledger, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)
	require.Equal(t, 15000, session.Balance)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "hi"})
	require.NoError(t, err)
	all := collect(t, events)

	var text string
	for _, ev := range all {
		if ev.Type == EventContent {
			text += ev.Content
		}
	}
	assert.Equal(t, "Hello", text)

	done := doneEvent(t, all)
	assert.Equal(t, 14000, done.Balance)
	assert.Equal(t, 14.0, done.Credits)
	assert.Equal(t, models.StatusOngoing, done.Status)
	require.NotNil(t, done.Message)
	assert.Equal(t, "Hello", done.Message.Content)

	// Transcript ends user, assistant.
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "user", session.Messages[0].Role)
	assert.Equal(t, "assistant", session.Messages[1].Role)

	assert.Eventually(t, func() bool {
		last, ok := store.lastBalanceWrite()
		return ok && last == 14000
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return ledger.count() == 1 }, time.Second, 10*time.Millisecond)
	ledger.mu.Lock()
	entry := ledger.entries[0]
	ledger.mu.Unlock()
	assert.Equal(t, 1000, entry.TotalTokens)
	assert.Equal(t, 1.0, entry.CreditCost)
	assert.Equal(t, 14000, entry.BalanceAfter)
	assert.Equal(t, string(profile.BucketIkigai), entry.Bucket)
}

func TestSubmitTurn_NoUsageMeansNoDebit(t *testing.T) {
	store := newFakeStore()
	store.balances[profile.BucketIkigai] = 15000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{{
		{Delta: "partial answer"},
		{FinishReason: "stop"},
	}}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "hi"})
	require.NoError(t, err)
	done := doneEvent(t, collect(t, events))

	assert.Equal(t, 15000, done.Balance)
	assert.Equal(t, models.StatusOngoing, done.Status)

	// Partial text is kept even though nothing was charged.
	assert.Equal(t, "partial answer", session.Messages[len(session.Messages)-1].Content)

	assert.Never(t, func() bool { return store.balanceWriteCount() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestSubmitTurn_BalanceConservedAcrossTurns(t *testing.T) {
	store := newFakeStore()
	store.balances[profile.BucketIkigai] = 15000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{
		{{Delta: "a"}, usageChunk(10, 20)},
		{{Delta: "b"}, usageChunk(5, 5)},
		{{Delta: "c"}, usageChunk(100, 0)},
	}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "next"})
		require.NoError(t, err)
		doneEvent(t, collect(t, events))
	}

	assert.Equal(t, 15000-140, session.Balance)
}

func TestSubmitTurn_IkigaiSummaryCompletesChat(t *testing.T) {
	summary := `Here it is! IKIGAI_FINAL_SUMMARY: {"what_you_love": "a", "what_you_are_good_at": "b", ` +
		`"what_world_needs": "c", "what_you_can_be_paid_for": "d", "your_ikigai": "e", ` +
		`"explanation": "f", "next_steps": "g"}`

	store := newFakeStore()
	store.balances[profile.BucketIkigai] = 15000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{{
		{Delta: summary},
		usageChunk(200, 300),
	}}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "wrap up"})
	require.NoError(t, err)
	done := doneEvent(t, collect(t, events))

	assert.Equal(t, models.StatusComplete, done.Status)

	assert.Eventually(t, func() bool { return store.savedChartCount() == 1 }, time.Second, 10*time.Millisecond)
	store.mu.Lock()
	chart := store.savedCharts[0]
	store.mu.Unlock()
	assert.Equal(t, "e", chart.YourIkigai)
	assert.Equal(t, models.StatusComplete, chart.Status)
}

func TestSubmitTurn_ProjectIdeaSaved(t *testing.T) {
	reply := `PROJECT_IDEA_AGREED_TO_SAVE: {"problemStatement": "p", "solution": "s", "features": "one, two"}`

	module, err := modules.ByKey("diffusion-models")
	require.NoError(t, err)

	store := newFakeStore()
	store.balances[module.Bucket] = 40000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{{
		{Delta: reply},
		usageChunk(100, 100),
	}}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IdeationKind{Module: module}, nil)
	require.NoError(t, err)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "save it"})
	require.NoError(t, err)
	done := doneEvent(t, collect(t, events))

	assert.Equal(t, models.StatusComplete, done.Status)
	assert.Equal(t, 40000-200, done.Balance)

	assert.Eventually(t, func() bool { return store.savedIdeaCount() == 1 }, time.Second, 10*time.Millisecond)
	store.mu.Lock()
	idea := store.savedIdeas[0]
	store.mu.Unlock()
	assert.Equal(t, module.Name, idea.ModuleName)
	assert.Equal(t, []string{"one", "two"}, idea.Features)
}

func TestSubmitTurn_ProjectIdeaCapRefusesSave(t *testing.T) {
	reply := `PROJECT_IDEA_AGREED_TO_SAVE: {"problemStatement": "p", "solution": "s", "features": "x"}`

	module, err := modules.ByKey("ai-agents")
	require.NoError(t, err)

	store := newFakeStore()
	store.balances[module.Bucket] = 40000
	store.existingIdeas = make([]models.ProjectIdea, MaxProjectIdeasPerModule)
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{{
		{Delta: reply},
		usageChunk(10, 10),
	}}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IdeationKind{Module: module}, nil)
	require.NoError(t, err)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "save it"})
	require.NoError(t, err)
	doneEvent(t, collect(t, events))

	// The transcript still lands, the fifth idea does not.
	assert.Eventually(t, func() bool { return store.ideationSaveCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, store.savedIdeaCount())
}

func TestSubmitTurn_WarningFiresOncePerThreshold(t *testing.T) {
	store := newFakeStore()
	store.balances[profile.BucketIkigai] = 7600
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{
		{{Delta: "a"}, usageChunk(100, 100)},
		{{Delta: "b"}, usageChunk(10, 10)},
	}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	userID := uuid.New()
	session, err := runner.OpenSession(context.Background(), userID, IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "one"})
	require.NoError(t, err)
	first := collect(t, events)

	var warnings []TurnEvent
	for _, ev := range first {
		if ev.Type == EventWarning {
			warnings = append(warnings, ev)
		}
	}
	require.Len(t, warnings, 1)
	assert.Equal(t, notify.Level50, warnings[0].Level)
	assert.Equal(t, 7400, warnings[0].Balance)

	events, err = runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "two"})
	require.NoError(t, err)
	for _, ev := range collect(t, events) {
		assert.NotEqual(t, EventWarning, ev.Type)
	}
}

func TestSubmitTurn_IdeationWarningsUseFixedGrant(t *testing.T) {
	module, err := modules.ByKey("full-stack")
	require.NoError(t, err)

	store := newFakeStore()
	store.balances[module.Bucket] = 40000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{
		{{Delta: "a"}, usageChunk(10200, 10200)},
		{{Delta: "b"}, usageChunk(6100, 6100)},
	}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IdeationKind{Module: module}, nil)
	require.NoError(t, err)

	// 40000 -> 19600 stays above half of the 15000 grant, so no warning even
	// though it is under half of the bucket's own starting balance.
	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "one"})
	require.NoError(t, err)
	for _, ev := range collect(t, events) {
		assert.NotEqual(t, EventWarning, ev.Type)
	}
	assert.Equal(t, 19600, session.Balance)

	// 19600 -> 7400 crosses 7500.
	events, err = runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "two"})
	require.NoError(t, err)
	var warnings []TurnEvent
	for _, ev := range collect(t, events) {
		if ev.Type == EventWarning {
			warnings = append(warnings, ev)
		}
	}
	require.Len(t, warnings, 1)
	assert.Equal(t, notify.Level50, warnings[0].Level)
	assert.Equal(t, 7400, warnings[0].Balance)
}

func TestSubmitTurn_StreamErrorChargesNothing(t *testing.T) {
	store := newFakeStore()
	store.balances[profile.BucketIkigai] = 15000
	provider := &scriptedProvider{scripts: [][]providers.StreamChunk{{
		{Delta: "half an ans"},
		{Error: "rate limited"},
	}}}
	runner := NewRunner(store, provider, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)

	events, err := runner.SubmitTurn(context.Background(), session, models.ChatMessage{Content: "hi"})
	require.NoError(t, err)
	all := collect(t, events)

	require.NotEmpty(t, all)
	last := all[len(all)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "rate limited", last.Content)

	assert.Equal(t, 15000, session.Balance)
	assert.Never(t, func() bool { return store.balanceWriteCount() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestOpenSession_DefaultBalances(t *testing.T) {
	store := newFakeStore()
	store.balanceErr = profile.ErrNotFound
	runner := NewRunner(store, &scriptedProvider{}, nil, quietLogger(), "gpt-5")

	session, err := runner.OpenSession(context.Background(), uuid.New(), IkigaiKind{ChatNumber: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultIkigaiBalance, session.Balance)

	module, err := modules.ByKey("llms")
	require.NoError(t, err)
	session, err = runner.OpenSession(context.Background(), uuid.New(), IdeationKind{Module: module}, nil)
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultIdeationBalance, session.Balance)
}
