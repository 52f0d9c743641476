package repositories

import "context"

// LanguageModel abstracts any text-generation provider. Output is
// untrusted free text: callers must normalize it before use, the
// provider only promises best-effort adherence to prompt formatting.
type LanguageModel interface {
	// Complete takes a prompt and returns the model's raw text response
	Complete(ctx context.Context, prompt string) (string, error)
}
