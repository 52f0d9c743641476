package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/internal/normalize"
)

// minAnalyzableChars is the shortest trimmed chunk worth a provider
// round-trip; anything smaller returns no cards without a call.
const minAnalyzableChars = 50

const insightPromptTemplate = `You are a helpful lecture buddy assisting a student during a lecture.
Analyze this transcript and identify terms or concepts that would benefit from explanation.

For each item, provide:
- type: "definition" (for terms/jargon) or "explanation" (for complex concepts)
- term: the word or phrase being explained
- text: a clear, concise explanation suitable for a student

Return ONLY a JSON array with 2-3 of the most important items. No other text.
Format: [{"type": "definition", "term": "example", "text": "explanation here"}]

Transcript: "%s"
`

// InsightService extracts insight cards from transcript chunks. A
// failed round never surfaces as an error: live sessions must keep
// running when a single analysis pass goes wrong.
type InsightService struct {
	llm    repositories.LanguageModel
	logger *zap.Logger
}

// NewInsightService creates a new insight extraction service
func NewInsightService(llm repositories.LanguageModel, logger *zap.Logger) *InsightService {
	return &InsightService{llm: llm, logger: logger}
}

// Extract analyzes a transcript chunk and returns zero or more insight
// cards. Chunks shorter than 50 trimmed characters are skipped without
// a provider call.
func (s *InsightService) Extract(ctx context.Context, chunk string) []entities.InsightCard {
	if len(strings.TrimSpace(chunk)) < minAnalyzableChars {
		return nil
	}

	raw, err := s.llm.Complete(ctx, fmt.Sprintf(insightPromptTemplate, chunk))
	if err != nil {
		s.logger.Warn("Insight analysis call failed",
			zap.Int("chunkLength", len(chunk)),
			zap.Error(err))
		return nil
	}

	cards, err := normalize.Cards(raw)
	if err != nil {
		s.logger.Warn("Discarding unusable insight payload", zap.Error(err))
		return nil
	}

	return cards
}
