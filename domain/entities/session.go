package entities

import "errors"

// SessionState represents the lifecycle state of a live transcription session
type SessionState string

const (
	SessionRecording  SessionState = "recording"
	SessionFinalizing SessionState = "finalizing"
	SessionReady      SessionState = "ready"
	SessionError      SessionState = "error"
)

// AnalysisThreshold is the number of unanalyzed transcript characters
// that must accumulate before an insight analysis pass is triggered.
// Amortizes the provider round-trip cost against transcript growth.
const AnalysisThreshold = 250

// ErrSessionNotRecording is returned when text is appended to a session
// that has already left the recording state.
var ErrSessionNotRecording = errors.New("session is not recording")

// Session is one live transcription in progress. It is a plain state
// machine with no transport or provider knowledge: the owning worker
// pumps events in, asks for unanalyzed spans, and records the results.
// A session is owned by exactly one worker for its entire lifetime, so
// none of the methods need locking.
type Session struct {
	ID string

	state      SessionState
	transcript string
	analyzed   int
	insights   []InsightCard
}

// NewSession creates a session in the recording state with an empty
// transcript and no insights.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		state:    SessionRecording,
		insights: make([]InsightCard, 0),
	}
}

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	return s.state
}

// Transcript returns the accumulated transcript so far
func (s *Session) Transcript() string {
	return s.transcript
}

// AnalyzedOffset returns the end of the last span sent for analysis
func (s *Session) AnalyzedOffset() int {
	return s.analyzed
}

// Insights returns the insight cards collected so far
func (s *Session) Insights() []InsightCard {
	return s.insights
}

// Append grows the accumulated transcript. Valid only while recording.
func (s *Session) Append(text string) error {
	if s.state != SessionRecording {
		return ErrSessionNotRecording
	}
	s.transcript += text
	return nil
}

// AnalysisSpan returns the unanalyzed tail of the transcript when it has
// grown past the threshold since the last analysis. The returned end
// offset must be passed back to MarkAnalyzed once the analysis call for
// the span has completed; the next span starts there.
func (s *Session) AnalysisSpan() (span string, end int, ok bool) {
	if s.state != SessionRecording {
		return "", 0, false
	}
	if len(s.transcript)-s.analyzed <= AnalysisThreshold {
		return "", 0, false
	}
	return s.transcript[s.analyzed:], len(s.transcript), true
}

// MarkAnalyzed records the completion of an analysis pass that covered
// the transcript up to end, appending any cards it produced. The
// analyzed offset is monotonically non-decreasing and never exceeds the
// transcript length.
func (s *Session) MarkAnalyzed(end int, cards []InsightCard) {
	if end > len(s.transcript) {
		end = len(s.transcript)
	}
	if end > s.analyzed {
		s.analyzed = end
	}
	s.insights = append(s.insights, cards...)
}

// BeginFinalize transitions recording to finalizing. It reports whether
// the caller won the transition; repeated end signals (explicit finalize
// frame, transport loss, failure paths) get false and must not run the
// finalize work again.
func (s *Session) BeginFinalize() bool {
	if s.state != SessionRecording {
		return false
	}
	s.state = SessionFinalizing
	return true
}

// FinalTail returns the remaining unanalyzed tail during finalization,
// regardless of the threshold. ok is false when everything has already
// been analyzed.
func (s *Session) FinalTail() (span string, end int, ok bool) {
	if s.state != SessionFinalizing || s.analyzed >= len(s.transcript) {
		return "", 0, false
	}
	return s.transcript[s.analyzed:], len(s.transcript), true
}

// MarkReady moves a finalizing session to its terminal ready state
func (s *Session) MarkReady() {
	if s.state == SessionFinalizing {
		s.state = SessionReady
	}
}

// MarkError moves the session to its terminal error state
func (s *Session) MarkError() {
	s.state = SessionError
}
