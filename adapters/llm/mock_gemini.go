package llm

import (
	"context"
	"strings"

	"github.com/pyronotes/server/domain/repositories"
)

// MockGemini is a placeholder language model for local development
// without an API key. It answers with fixed, well-formed payloads so
// the downstream normalizers have something to chew on.
type MockGemini struct{}

// NewMockGemini creates a new mock language model
func NewMockGemini() repositories.LanguageModel {
	return &MockGemini{}
}

// Complete implements repositories.LanguageModel
func (m *MockGemini) Complete(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "flashcard"):
		return `[{"question": "What does the mock model do?", "answer": "It returns canned study material for development."}]`, nil
	case strings.Contains(prompt, "multiple-choice quiz"):
		return `[{"question": "Which adapter produced this quiz?", "options": ["Gemini", "Mock", "Whisper", "Mongo"], "correct": 1}]`, nil
	case strings.Contains(prompt, "study notes"):
		return "# Notes\n\nThese are placeholder notes generated by the mock model.", nil
	default:
		return `[{"type": "definition", "term": "mock", "text": "A stand-in implementation used during development."}]`, nil
	}
}
