package entities

import "fmt"

// MaterialKind is the kind of study material a caller can request
type MaterialKind string

const (
	MaterialNotes      MaterialKind = "notes"
	MaterialFlashcards MaterialKind = "flashcards"
	MaterialQuiz       MaterialKind = "quiz"
)

// ParseMaterialKind validates a requested material kind
func ParseMaterialKind(s string) (MaterialKind, error) {
	switch MaterialKind(s) {
	case MaterialNotes, MaterialFlashcards, MaterialQuiz:
		return MaterialKind(s), nil
	}
	return "", fmt.Errorf("unknown material kind %q", s)
}

// Flashcard is one question/answer pair
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizItem is one multiple-choice question. Correct is nil when the
// model did not supply a usable answer index.
type QuizItem struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  *int     `json:"correct,omitempty"`
}

// GeneratedMaterial is the output of the study-material generator.
// Exactly one of Notes, Flashcards or Quiz is populated, matching Kind.
type GeneratedMaterial struct {
	Kind       MaterialKind `json:"type"`
	Notes      string       `json:"notes,omitempty"`
	Flashcards []Flashcard  `json:"flashcards,omitempty"`
	Quiz       []QuizItem   `json:"quiz,omitempty"`
}

// Content returns the kind-specific payload for API responses
func (m GeneratedMaterial) Content() interface{} {
	switch m.Kind {
	case MaterialFlashcards:
		return m.Flashcards
	case MaterialQuiz:
		return m.Quiz
	default:
		return m.Notes
	}
}
