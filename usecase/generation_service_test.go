package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
)

func TestGenerateNotesReturnsTrimmedText(t *testing.T) {
	llm := &fakeLLM{response: "\n# Lecture Notes\n\nKey points...\n\n"}
	service := NewGenerationService(llm, zap.NewNop())

	material, err := service.Generate(context.Background(), []string{"a transcript"}, entities.MaterialNotes)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if material.Kind != entities.MaterialNotes {
		t.Errorf("Expected kind notes, got %s", material.Kind)
	}
	if material.Notes != "# Lecture Notes\n\nKey points..." {
		t.Errorf("Expected trimmed notes, got %q", material.Notes)
	}
}

func TestGenerateJoinsTranscriptsWithSeparator(t *testing.T) {
	llm := &fakeLLM{response: "notes"}
	service := NewGenerationService(llm, zap.NewNop())

	_, err := service.Generate(context.Background(), []string{"first lecture", "", "second lecture"}, entities.MaterialNotes)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("Expected one provider call, got %d", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[0], "first lecture\n\n---\n\nsecond lecture") {
		t.Error("Prompt should join non-empty transcripts with the separator")
	}
}

func TestGenerateRequiresTranscript(t *testing.T) {
	llm := &fakeLLM{response: "notes"}
	service := NewGenerationService(llm, zap.NewNop())

	_, err := service.Generate(context.Background(), []string{"", "   "}, entities.MaterialNotes)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
	if llm.callCount() != 0 {
		t.Errorf("No provider call expected without a transcript, got %d", llm.callCount())
	}
}

func TestGenerateProviderFailureIsSurfaced(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model overloaded")}
	service := NewGenerationService(llm, zap.NewNop())

	_, err := service.Generate(context.Background(), []string{"a transcript"}, entities.MaterialQuiz)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateFlashcardsMalformedFallsBackToMarker(t *testing.T) {
	llm := &fakeLLM{response: "sorry, no json today"}
	service := NewGenerationService(llm, zap.NewNop())

	material, err := service.Generate(context.Background(), []string{"a transcript"}, entities.MaterialFlashcards)
	if err != nil {
		t.Fatalf("Normalizer failure must not raise, got %v", err)
	}
	if len(material.Flashcards) != 1 {
		t.Fatalf("Expected single-element failure marker, got %d cards", len(material.Flashcards))
	}
	if !strings.Contains(material.Flashcards[0].Question, "Generation failed") {
		t.Errorf("Marker should flag the failure, got %q", material.Flashcards[0].Question)
	}
}

func TestGenerateQuizDropsInvalidItemWithoutFailing(t *testing.T) {
	llm := &fakeLLM{response: `[
		{"question": "What is inertia?", "options": ["a", "b", "c", "d"], "correct": 1},
		{"question": "Item without options"}
	]`}
	service := NewGenerationService(llm, zap.NewNop())

	material, err := service.Generate(context.Background(), []string{"a transcript"}, entities.MaterialQuiz)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(material.Quiz) != 1 {
		t.Fatalf("Expected the invalid item dropped, got %d items", len(material.Quiz))
	}
	if material.Quiz[0].Question != "What is inertia?" {
		t.Errorf("Unexpected surviving item %q", material.Quiz[0].Question)
	}
}

func TestGenerateQuizAllInvalidFallsBackToMarker(t *testing.T) {
	llm := &fakeLLM{response: `[{"question": "no options"}]`}
	service := NewGenerationService(llm, zap.NewNop())

	material, err := service.Generate(context.Background(), []string{"a transcript"}, entities.MaterialQuiz)
	if err != nil {
		t.Fatalf("Normalizer failure must not raise, got %v", err)
	}
	if len(material.Quiz) != 1 {
		t.Fatalf("Expected single-element failure marker, got %d items", len(material.Quiz))
	}
	if len(material.Quiz[0].Options) < 2 {
		t.Error("Failure marker must still conform to the quiz shape")
	}
	if material.Quiz[0].Correct != nil {
		t.Error("Failure marker should not claim a correct answer")
	}
}
