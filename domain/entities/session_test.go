package entities

import (
	"strings"
	"testing"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession("lecture-123")

	if session.ID != "lecture-123" {
		t.Errorf("Expected ID lecture-123, got %s", session.ID)
	}

	if session.State() != SessionRecording {
		t.Errorf("Expected state %s, got %s", SessionRecording, session.State())
	}

	if session.Transcript() != "" {
		t.Errorf("Expected empty transcript, got %q", session.Transcript())
	}

	if len(session.Insights()) != 0 {
		t.Errorf("Expected no insights, got %d", len(session.Insights()))
	}
}

func TestAppendBelowThresholdYieldsNoSpan(t *testing.T) {
	session := NewSession("lecture")

	// 45 characters, well under the threshold
	if err := session.Append("Mitochondria are the powerhouse of the cell."); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if _, _, ok := session.AnalysisSpan(); ok {
		t.Error("AnalysisSpan should not fire below the threshold")
	}
}

func TestAppendCrossingThresholdYieldsFullSpan(t *testing.T) {
	session := NewSession("lecture")

	first := "Mitochondria are the powerhouse of the cell."
	if len(first) != 44 {
		t.Fatalf("fixture drifted: first chunk is %d chars", len(first))
	}
	second := strings.Repeat("x", 211)

	session.Append(first)
	session.Append(second)

	span, end, ok := session.AnalysisSpan()
	if !ok {
		t.Fatal("AnalysisSpan should fire once the threshold is crossed")
	}
	if len(span) != 255 {
		t.Errorf("Expected span covering all 255 accumulated chars, got %d", len(span))
	}
	if end != 255 {
		t.Errorf("Expected span end 255, got %d", end)
	}

	session.MarkAnalyzed(end, nil)
	if session.AnalyzedOffset() != 255 {
		t.Errorf("Expected analyzed offset 255, got %d", session.AnalyzedOffset())
	}

	// Span consumed, nothing new to analyze
	if _, _, ok := session.AnalysisSpan(); ok {
		t.Error("AnalysisSpan should not fire again without new text")
	}
}

func TestMarkAnalyzedIsMonotonic(t *testing.T) {
	session := NewSession("lecture")
	session.Append(strings.Repeat("a", 300))

	session.MarkAnalyzed(300, nil)
	session.MarkAnalyzed(100, nil)
	if session.AnalyzedOffset() != 300 {
		t.Errorf("Analyzed offset regressed to %d", session.AnalyzedOffset())
	}

	// End offsets past the transcript are clamped
	session.MarkAnalyzed(9999, nil)
	if session.AnalyzedOffset() != len(session.Transcript()) {
		t.Errorf("Analyzed offset %d exceeds transcript length %d",
			session.AnalyzedOffset(), len(session.Transcript()))
	}
}

func TestMarkAnalyzedCollectsCards(t *testing.T) {
	session := NewSession("lecture")
	session.Append(strings.Repeat("a", 300))

	cards := []InsightCard{
		{Kind: InsightDefinition, Term: "mitosis", Text: "Cell division producing two identical cells."},
	}
	session.MarkAnalyzed(300, cards)

	if len(session.Insights()) != 1 {
		t.Fatalf("Expected 1 insight, got %d", len(session.Insights()))
	}
	if session.Insights()[0].Term != "mitosis" {
		t.Errorf("Expected term mitosis, got %s", session.Insights()[0].Term)
	}
}

func TestAppendAfterFinalizeRejected(t *testing.T) {
	session := NewSession("lecture")
	session.Append("hello ")

	if !session.BeginFinalize() {
		t.Fatal("BeginFinalize should succeed from recording")
	}

	if err := session.Append("world"); err != ErrSessionNotRecording {
		t.Errorf("Expected ErrSessionNotRecording, got %v", err)
	}
}

func TestBeginFinalizeIsIdempotent(t *testing.T) {
	session := NewSession("lecture")

	if !session.BeginFinalize() {
		t.Fatal("first BeginFinalize should win the transition")
	}
	if session.BeginFinalize() {
		t.Error("second BeginFinalize should be a no-op")
	}
	if session.State() != SessionFinalizing {
		t.Errorf("Expected state %s, got %s", SessionFinalizing, session.State())
	}
}

func TestFinalTailCoversRemainingText(t *testing.T) {
	session := NewSession("lecture")
	session.Append(strings.Repeat("a", 300))
	session.MarkAnalyzed(300, nil)
	session.Append(" short tail")

	session.BeginFinalize()

	span, end, ok := session.FinalTail()
	if !ok {
		t.Fatal("FinalTail should return the unanalyzed remainder")
	}
	if span != " short tail" {
		t.Errorf("Expected tail %q, got %q", " short tail", span)
	}

	session.MarkAnalyzed(end, nil)
	if session.AnalyzedOffset() != len(session.Transcript()) {
		t.Error("finalize must leave the whole transcript analyzed")
	}

	if _, _, ok := session.FinalTail(); ok {
		t.Error("FinalTail should not fire twice")
	}
}

func TestTerminalTransitions(t *testing.T) {
	session := NewSession("lecture")
	session.BeginFinalize()
	session.MarkReady()
	if session.State() != SessionReady {
		t.Errorf("Expected state %s, got %s", SessionReady, session.State())
	}

	failed := NewSession("lecture")
	failed.BeginFinalize()
	failed.MarkError()
	if failed.State() != SessionError {
		t.Errorf("Expected state %s, got %s", SessionError, failed.State())
	}

	// MarkReady only applies to a finalizing session
	stuck := NewSession("lecture")
	stuck.MarkReady()
	if stuck.State() != SessionRecording {
		t.Errorf("MarkReady from recording should be a no-op, got %s", stuck.State())
	}
}
