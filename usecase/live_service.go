package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
)

// ErrPersistenceFailed means the finalize-time store write failed and
// the session has been moved to its terminal error state.
var ErrPersistenceFailed = errors.New("failed to persist session result")

// EventType identifies the kind of a session event sent back to the client
type EventType string

const (
	// EventTranscriptChunk acknowledges an appended transcript chunk
	EventTranscriptChunk EventType = "transcript_chunk"
	// EventInsight carries one insight card
	EventInsight EventType = "ai_chunk"
	// EventDone is the terminal success event
	EventDone EventType = "done"
	// EventError is the terminal failure event
	EventError EventType = "error"
)

// SessionEvent is one entry in the ordered event stream of a live
// session. The transport layer marshals these as-is.
type SessionEvent struct {
	Type    EventType            `json:"type"`
	Text    string               `json:"text,omitempty"`
	Subtype entities.InsightKind `json:"subtype,omitempty"`
	Term    string               `json:"term,omitempty"`
	Message string               `json:"message,omitempty"`
}

// EventSink receives session events in order. Emission is best-effort:
// the engine never retries a failed notification.
type EventSink func(SessionEvent)

// LiveService drives live transcription sessions. Each session is
// processed by a single worker goroutine that calls these methods in
// event order, so an analysis call blocks the worker and no second
// call can start for the same session while one is in flight; appends
// arriving meanwhile queue up in the transport and are folded into the
// transcript before the next threshold check.
type LiveService struct {
	insights *InsightService
	lectures repositories.LectureRepository
	logger   *zap.Logger
}

// NewLiveService creates a new live session service
func NewLiveService(insights *InsightService, lectures repositories.LectureRepository, logger *zap.Logger) *LiveService {
	return &LiveService{insights: insights, lectures: lectures, logger: logger}
}

// Open allocates a new recording session bound to a lecture record
func (s *LiveService) Open(lectureID string) *entities.Session {
	s.logger.Info("Live session opened", zap.String("lectureID", lectureID))
	return entities.NewSession(lectureID)
}

// AppendText accumulates a transcript chunk, acknowledges it, and runs
// an insight pass when enough unanalyzed text has built up.
func (s *LiveService) AppendText(ctx context.Context, session *entities.Session, text string, emit EventSink) error {
	if err := session.Append(text); err != nil {
		return err
	}
	emit(SessionEvent{Type: EventTranscriptChunk, Text: text})

	span, end, ok := session.AnalysisSpan()
	if !ok {
		return nil
	}

	cards := s.insights.Extract(ctx, span)
	session.MarkAnalyzed(end, cards)
	for _, card := range cards {
		emit(insightEvent(card))
	}

	s.logger.Debug("Analysis pass completed",
		zap.String("lectureID", session.ID),
		zap.Int("spanLength", len(span)),
		zap.Int("cards", len(cards)))
	return nil
}

// Finalize ends the session: one last insight pass over any unanalyzed
// tail, a single persistence write, and a terminal event. It is
// idempotent with respect to repeated end signals, whether from an
// explicit finalize frame or transport loss.
func (s *LiveService) Finalize(ctx context.Context, session *entities.Session, emit EventSink) error {
	if !session.BeginFinalize() {
		return nil
	}

	if span, end, ok := session.FinalTail(); ok {
		cards := s.insights.Extract(ctx, span)
		session.MarkAnalyzed(end, cards)
		for _, card := range cards {
			emit(insightEvent(card))
		}
	}

	err := s.lectures.SaveSessionResult(ctx, session.ID,
		session.Transcript(), session.Insights(), entities.LectureStatusReady)
	if err != nil {
		session.MarkError()
		s.logger.Error("Failed to persist session result",
			zap.String("lectureID", session.ID),
			zap.Error(err))
		emit(SessionEvent{Type: EventError, Message: "failed to save session"})
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	session.MarkReady()
	s.logger.Info("Live session finalized",
		zap.String("lectureID", session.ID),
		zap.Int("transcriptLength", len(session.Transcript())),
		zap.Int("insights", len(session.Insights())))
	emit(SessionEvent{Type: EventDone})
	return nil
}

func insightEvent(card entities.InsightCard) SessionEvent {
	return SessionEvent{
		Type:    EventInsight,
		Subtype: card.Kind,
		Term:    card.Term,
		Text:    card.Text,
	}
}
