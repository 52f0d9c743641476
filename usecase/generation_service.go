package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/internal/normalize"
)

// ErrGenerationFailed means an on-demand study-material request could
// not be served. Unlike insight extraction this is surfaced to the
// caller: a direct user request has no partial-result fallback.
var ErrGenerationFailed = errors.New("generation failed")

// transcriptSeparator joins multiple transcripts for folder-scoped requests
const transcriptSeparator = "\n\n---\n\n"

const notesPromptTemplate = `Create comprehensive study notes from this lecture transcript.
Format as markdown with clear headings, key concepts, and summaries.
Include important details and organize information logically.

Transcript:
%s
`

const flashcardsPromptTemplate = `Create flashcard pairs from this lecture transcript.
Return a JSON array of objects with "question" and "answer" fields.
Focus on key concepts and important information.
Create 10-15 flashcards.

Format: [{"question": "...", "answer": "..."}, ...]

Transcript:
%s
`

const quizPromptTemplate = `Create a multiple-choice quiz from this lecture transcript.
Return a JSON array of objects with:
- "question": the question text
- "options": array of 4 possible answers
- "correct": index (0-3) of the correct answer

Create 8-10 questions that test understanding of key concepts.

Format: [{"question": "...", "options": ["A", "B", "C", "D"], "correct": 0}, ...]

Transcript:
%s
`

// Explicit failure markers returned when the provider answered but its
// payload could not be normalized. They conform to the requested shape
// so consumers need no special-casing.
var (
	fallbackFlashcards = []entities.Flashcard{{
		Question: "Generation failed",
		Answer:   "The model did not return usable flashcards for this transcript. Please try again.",
	}}
	fallbackQuiz = []entities.QuizItem{{
		Question: "Generation failed: the model did not return a usable quiz for this transcript. Please try again.",
		Options:  []string{"Retry", "Dismiss"},
	}}
)

// GenerationService produces study material from stored transcripts
type GenerationService struct {
	llm    repositories.LanguageModel
	logger *zap.Logger
}

// NewGenerationService creates a new study-material generator
func NewGenerationService(llm repositories.LanguageModel, logger *zap.Logger) *GenerationService {
	return &GenerationService{llm: llm, logger: logger}
}

// Generate issues one kind-specific language-model call over the joined
// transcripts and normalizes the response into the kind's shape.
func (s *GenerationService) Generate(ctx context.Context, transcripts []string, kind entities.MaterialKind) (entities.GeneratedMaterial, error) {
	joined := joinTranscripts(transcripts)
	if joined == "" {
		return entities.GeneratedMaterial{}, fmt.Errorf("%w: no transcript to work from", ErrGenerationFailed)
	}

	var template string
	switch kind {
	case entities.MaterialNotes:
		template = notesPromptTemplate
	case entities.MaterialFlashcards:
		template = flashcardsPromptTemplate
	case entities.MaterialQuiz:
		template = quizPromptTemplate
	default:
		return entities.GeneratedMaterial{}, fmt.Errorf("%w: unknown material kind %q", ErrGenerationFailed, kind)
	}

	raw, err := s.llm.Complete(ctx, fmt.Sprintf(template, joined))
	if err != nil {
		return entities.GeneratedMaterial{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	material := entities.GeneratedMaterial{Kind: kind}
	switch kind {
	case entities.MaterialNotes:
		material.Notes = strings.TrimSpace(raw)

	case entities.MaterialFlashcards:
		cards, err := normalize.Flashcards(raw)
		if err != nil {
			s.logger.Warn("Flashcard payload unusable, returning failure marker", zap.Error(err))
			cards = fallbackFlashcards
		}
		material.Flashcards = cards

	case entities.MaterialQuiz:
		items, err := normalize.QuizItems(raw)
		if err != nil {
			s.logger.Warn("Quiz payload unusable, returning failure marker", zap.Error(err))
			items = fallbackQuiz
		}
		material.Quiz = items
	}

	return material, nil
}

func joinTranscripts(transcripts []string) string {
	parts := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, transcriptSeparator)
}
