// Package normalize turns loosely-structured language-model output into
// strictly-typed values. Models are asked for JSON arrays but frequently
// wrap them in markdown fences, add prose, or return elements missing
// required fields; this package repairs what it can and drops the rest.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pyronotes/server/domain/entities"
)

var (
	// ErrMalformedOutput means the response was not parseable JSON at all
	ErrMalformedOutput = errors.New("malformed provider output")
	// ErrUnexpectedShape means the response parsed but was not an array
	ErrUnexpectedShape = errors.New("unexpected provider output shape")
	// ErrEmptyResult means no element survived field validation
	ErrEmptyResult = errors.New("no valid elements in provider output")
)

// Cards normalizes a response into insight cards. Elements missing a
// known kind, term or text are dropped; they never fail the whole batch.
func Cards(raw string) ([]entities.InsightCard, error) {
	elements, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}

	cards := make([]entities.InsightCard, 0, len(elements))
	for _, el := range elements {
		kind, ok := stringField(el, "type")
		if !ok {
			// the stricter prompt asks for "type"; tolerate "subtype"
			// from older stored payloads
			kind, ok = stringField(el, "subtype")
		}
		if !ok {
			continue
		}
		switch entities.InsightKind(kind) {
		case entities.InsightDefinition, entities.InsightExplanation:
		default:
			continue
		}

		term, ok := stringField(el, "term")
		if !ok {
			continue
		}
		text, ok := stringField(el, "text")
		if !ok {
			continue
		}

		cards = append(cards, entities.InsightCard{
			Kind: entities.InsightKind(kind),
			Term: term,
			Text: text,
		})
	}

	if len(cards) == 0 {
		return nil, ErrEmptyResult
	}
	return cards, nil
}

// Flashcards normalizes a response into question/answer pairs
func Flashcards(raw string) ([]entities.Flashcard, error) {
	elements, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}

	cards := make([]entities.Flashcard, 0, len(elements))
	for _, el := range elements {
		question, ok := stringField(el, "question")
		if !ok {
			continue
		}
		answer, ok := stringField(el, "answer")
		if !ok {
			continue
		}
		cards = append(cards, entities.Flashcard{Question: question, Answer: answer})
	}

	if len(cards) == 0 {
		return nil, ErrEmptyResult
	}
	return cards, nil
}

// QuizItems normalizes a response into multiple-choice questions. An
// item needs a question and at least two string options; a "correct"
// field is kept only when it is an integer index into the options,
// otherwise the item survives with no answer key.
func QuizItems(raw string) ([]entities.QuizItem, error) {
	elements, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}

	items := make([]entities.QuizItem, 0, len(elements))
	for _, el := range elements {
		question, ok := stringField(el, "question")
		if !ok {
			continue
		}
		options, ok := stringSliceField(el, "options")
		if !ok || len(options) < 2 {
			continue
		}

		item := entities.QuizItem{Question: question, Options: options}
		if idx, ok := intField(el, "correct"); ok && idx >= 0 && idx < len(options) {
			item.Correct = &idx
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, ErrEmptyResult
	}
	return items, nil
}

// decodeArray parses the raw response as a JSON array of objects,
// stripping a surrounding markdown code fence first when present.
func decodeArray(raw string) ([]map[string]interface{}, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	sequence, ok := parsed.([]interface{})
	if !ok {
		return nil, ErrUnexpectedShape
	}

	elements := make([]map[string]interface{}, 0, len(sequence))
	for _, item := range sequence {
		if obj, ok := item.(map[string]interface{}); ok {
			elements = append(elements, obj)
		}
	}
	return elements, nil
}

// stripCodeFence removes a ```json ... ``` (or bare ```) wrapper
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringField(el map[string]interface{}, key string) (string, bool) {
	v, ok := el[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func stringSliceField(el map[string]interface{}, key string) ([]string, bool) {
	raw, ok := el[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func intField(el map[string]interface{}, key string) (int, bool) {
	// JSON numbers decode as float64; only whole values count as indexes
	f, ok := el[key].(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
