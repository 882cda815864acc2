// Package chat implements the metered streaming chat turn: prompt assembly,
// stream relay, usage accounting and best-effort persistence against the
// profile store.
package chat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/marker"
	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/modules"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

// MaxProjectIdeasPerModule caps how many ideas a mentee can store per module.
const MaxProjectIdeasPerModule = 4

// persistTimeout bounds the detached persistence writes that outlive the
// request context.
const persistTimeout = 15 * time.Second

// ProfileStore is the slice of the profile client the turn runner needs.
// *profile.Client satisfies it.
type ProfileStore interface {
	GetBalance(ctx context.Context, userID string, bucket profile.Bucket) (int, error)
	UpdateBalance(ctx context.Context, userID string, bucket profile.Bucket, amount int) error
	GetIkigai(ctx context.Context, userID string) (*profile.IkigaiRecord, error)
	SaveIkigai(ctx context.Context, userID string, details models.IkigaiDetails, history []models.ChatMessage) error
	SaveIkigaiTranscript(ctx context.Context, userID string, history []models.ChatMessage) error
	ListProjectIdeas(ctx context.Context, userID, moduleName string) ([]models.ProjectIdea, error)
	SaveProjectIdea(ctx context.Context, userID, moduleName string, idea models.ProjectIdea, history []models.ChatMessage) error
	SaveIdeationTranscript(ctx context.Context, userID, moduleName string, history []models.ChatMessage) error
}

// Kind selects the behavior that differs between the two conversation tools:
// which balance bucket meters the chat, which system prompt frames it, and
// what happens when the assistant signals a final result.
type Kind interface {
	Bucket() profile.Bucket
	defaultBalance() int
	systemPrompt(ikigai *models.IkigaiDetails) string

	// finishTurn inspects the finished assistant text for the kind's marker
	// and kicks off best-effort persistence of the transcript (and the
	// structured result when the marker parses). The returned status
	// reflects parsing only; persistence failures are logged, never
	// surfaced.
	finishTurn(store ProfileStore, logger *logrus.Logger, userID, text string, history []models.ChatMessage) string
}

// IkigaiKind is the guided Ikigai discovery chat. ChatNumber distinguishes
// retakes after a start-over; the profile store keeps only the latest.
type IkigaiKind struct {
	ChatNumber int
}

func (IkigaiKind) Bucket() profile.Bucket { return profile.BucketIkigai }

func (IkigaiKind) defaultBalance() int { return profile.DefaultIkigaiBalance }

func (IkigaiKind) systemPrompt(_ *models.IkigaiDetails) string { return modules.IkigaiPrompt }

func (IkigaiKind) finishTurn(store ProfileStore, logger *logrus.Logger, userID, text string, history []models.ChatMessage) string {
	details, ok := marker.ParseIkigaiSummary(text)
	if !ok {
		if marker.Contains(text, marker.IkigaiSummaryMarker) {
			logger.WithField("user_id", userID).Warn("ikigai summary marker present but malformed, staying ongoing")
		}
		persist(logger, "save ikigai transcript", func(ctx context.Context) error {
			return store.SaveIkigaiTranscript(ctx, userID, history)
		})
		return models.StatusOngoing
	}

	details.Status = models.StatusComplete
	persist(logger, "save ikigai chart", func(ctx context.Context) error {
		return store.SaveIkigai(ctx, userID, *details, history)
	})
	return models.StatusComplete
}

// IdeationKind is the project ideation chat for one learning module.
type IdeationKind struct {
	Module modules.Module
}

func (k IdeationKind) Bucket() profile.Bucket { return k.Module.Bucket }

func (IdeationKind) defaultBalance() int { return profile.DefaultIdeationBalance }

func (k IdeationKind) systemPrompt(ikigai *models.IkigaiDetails) string {
	return modules.IdeationPrompt(k.Module, ikigai)
}

func (k IdeationKind) finishTurn(store ProfileStore, logger *logrus.Logger, userID, text string, history []models.ChatMessage) string {
	idea, ok := marker.ParseProjectIdea(text)
	if !ok {
		if marker.Contains(text, marker.ProjectIdeaMarker) {
			logger.WithField("user_id", userID).Warn("project idea marker present but malformed, staying ongoing")
		}
		persist(logger, "save ideation transcript", func(ctx context.Context) error {
			return store.SaveIdeationTranscript(ctx, userID, k.Module.Name, history)
		})
		return models.StatusOngoing
	}

	idea.ModuleName = k.Module.Name
	persist(logger, "save project idea", func(ctx context.Context) error {
		existing, err := store.ListProjectIdeas(ctx, userID, k.Module.Name)
		if err != nil {
			return err
		}
		if len(existing) >= MaxProjectIdeasPerModule {
			logger.WithFields(logrus.Fields{
				"user_id": userID,
				"module":  k.Module.Name,
			}).Warn("project idea cap reached, idea not saved")
			return store.SaveIdeationTranscript(ctx, userID, k.Module.Name, history)
		}
		return store.SaveProjectIdea(ctx, userID, k.Module.Name, *idea, history)
	})
	return models.StatusComplete
}

// persist runs a store write detached from the request, with its own timeout.
// The turn never waits on it and never fails because of it.
func persist(logger *logrus.Logger, action string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.WithError(err).Warnf("failed to %s", action)
		}
	}()
}
