package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/notify"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
	"github.com/100xengineers/self-discovery-backend/internal/providers"
)

// TurnEvent types emitted over the SubmitTurn channel.
const (
	EventContent = "content"
	EventWarning = "warning"
	EventError   = "error"
	EventDone    = "done"
)

// TurnEvent is one item of the per-turn event stream. Content deltas arrive
// first, an optional balance warning after metering, and exactly one done
// event last unless the stream errors out.
type TurnEvent struct {
	Type    string              `json:"type"`
	Content string              `json:"content,omitempty"`
	Level   notify.Level        `json:"level,omitempty"`
	Balance int                 `json:"balance,omitempty"`
	Credits float64             `json:"credits,omitempty"`
	Status  string              `json:"status,omitempty"`
	Message *models.ChatMessage `json:"message,omitempty"`
}

// UsageRecorder appends completed turns to the local usage ledger.
type UsageRecorder interface {
	Record(ctx context.Context, entry models.UsageEntry) error
}

// Runner executes metered chat turns against a completion provider and the
// profile store. One Runner serves the whole process; warning guards are
// keyed per user and bucket so each threshold fires once per process
// lifetime.
type Runner struct {
	store        ProfileStore
	provider     providers.Provider
	ledger       UsageRecorder
	logger       *logrus.Logger
	defaultModel string

	mu        sync.Mutex
	notifiers map[string]*notify.ThresholdNotifier
}

// NewRunner creates a turn runner. ledger may be nil when no local ledger is
// configured.
func NewRunner(store ProfileStore, provider providers.Provider, ledger UsageRecorder, logger *logrus.Logger, defaultModel string) *Runner {
	return &Runner{
		store:        store,
		provider:     provider,
		ledger:       ledger,
		logger:       logger,
		defaultModel: defaultModel,
		notifiers:    make(map[string]*notify.ThresholdNotifier),
	}
}

// SubmitTurn appends the user message, opens a provider stream, and returns
// the event channel for the turn. The channel closes after the done event.
// Canceling ctx aborts the stream; partial text stays in the session and no
// usage is charged.
func (r *Runner) SubmitTurn(ctx context.Context, session *Session, userMessage models.ChatMessage) (<-chan TurnEvent, error) {
	if userMessage.ID == "" {
		userMessage.ID = uuid.NewString()
	}
	userMessage.Role = "user"
	session.Messages = append(session.Messages, userMessage)

	var ikigai *models.IkigaiDetails
	if session.Kind.Bucket().IsIdeation() {
		record, err := r.store.GetIkigai(ctx, session.UserID.String())
		if err != nil {
			r.logger.WithError(err).Warn("could not load ikigai data for ideation prompt")
		} else {
			ikigai = record.Details
		}
	}

	outbound := make([]providers.Message, 0, len(session.Messages)+1)
	outbound = append(outbound, providers.Message{Role: "system", Content: session.Kind.systemPrompt(ikigai)})
	for _, m := range session.Messages {
		if m.Role == "system" {
			continue
		}
		outbound = append(outbound, providers.Message{Role: m.Role, Content: m.Content})
	}

	model := session.Model
	if model == "" {
		model = r.defaultModel
	}

	chunks, err := r.provider.StreamComplete(ctx, providers.CompletionRequest{
		Messages: outbound,
		Model:    model,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	events := make(chan TurnEvent)
	go r.run(ctx, session, model, chunks, events)
	return events, nil
}

func (r *Runner) run(ctx context.Context, session *Session, model string, chunks <-chan providers.StreamChunk, events chan<- TurnEvent) {
	defer close(events)

	var text strings.Builder
	var usage *providers.Usage
	streamErr := ""

	for chunk := range chunks {
		if chunk.Error != "" {
			streamErr = chunk.Error
			break
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.Delta != "" {
			text.WriteString(chunk.Delta)
			if !r.emit(ctx, events, TurnEvent{Type: EventContent, Content: chunk.Delta}) {
				return
			}
		}
	}

	if streamErr != "" {
		r.logger.WithFields(logrus.Fields{
			"user_id": session.UserID,
			"bucket":  session.Kind.Bucket(),
		}).Error("completion stream failed: " + streamErr)
		r.emit(ctx, events, TurnEvent{Type: EventError, Content: streamErr})
		return
	}

	assistant := models.ChatMessage{
		ID:      uuid.NewString(),
		Role:    "assistant",
		Content: text.String(),
	}
	session.Messages = append(session.Messages, assistant)

	// An aborted or usage-less stream charges nothing; the balance write and
	// ledger row only happen when the provider reported real usage.
	if usage != nil {
		debit := usage.PromptTokens + usage.CompletionTokens
		session.Balance -= debit
		r.persistBalance(session)
		r.recordUsage(session, model, usage)
	}

	session.Status = session.Kind.finishTurn(r.store, r.logger, session.UserID.String(), assistant.Content, session.Messages)

	if level, fired := r.notifierFor(session).Observe(session.Balance); fired {
		if !r.emit(ctx, events, TurnEvent{
			Type:    EventWarning,
			Level:   level,
			Balance: session.Balance,
			Credits: session.Credits(),
		}) {
			return
		}
	}

	r.emit(ctx, events, TurnEvent{
		Type:    EventDone,
		Balance: session.Balance,
		Credits: session.Credits(),
		Status:  session.Status,
		Message: &assistant,
	})
}

func (r *Runner) emit(ctx context.Context, events chan<- TurnEvent, ev TurnEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// persistBalance writes the debited balance back to the profile store without
// blocking the turn. A failed write leaves the store stale until the next
// turn; it is never rolled back locally.
func (r *Runner) persistBalance(session *Session) {
	userID := session.UserID.String()
	bucket := session.Kind.Bucket()
	balance := session.Balance
	persist(r.logger, "persist balance", func(ctx context.Context) error {
		return r.store.UpdateBalance(ctx, userID, bucket, balance)
	})
}

func (r *Runner) recordUsage(session *Session, model string, usage *providers.Usage) {
	if r.ledger == nil {
		return
	}
	entry := models.UsageEntry{
		ID:               uuid.New(),
		UserID:           session.UserID,
		Bucket:           string(session.Kind.Bucket()),
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreditCost:       Credits(usage.PromptTokens + usage.CompletionTokens),
		BalanceAfter:     session.Balance,
		CreatedAt:        time.Now().UTC(),
	}
	persist(r.logger, "record usage", func(ctx context.Context) error {
		return r.ledger.Record(ctx, entry)
	})
}

func (r *Runner) notifierFor(session *Session) *notify.ThresholdNotifier {
	key := session.UserID.String() + "/" + string(session.Kind.Bucket())

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifiers[key]
	if !ok {
		// The percentage base is the fixed mentee grant for every bucket,
		// not the bucket's own default balance.
		n = notify.NewThresholdNotifier()
		r.notifiers[key] = n
	}
	return n
}

// ResetWarnings clears the warning guards for one user and bucket, used when
// a mentee starts their conversation over.
func (r *Runner) ResetWarnings(userID uuid.UUID, bucket profile.Bucket) {
	key := userID.String() + "/" + string(bucket)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notifiers, key)
}
