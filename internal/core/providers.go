package core

import "context"

// Completer is the language-model collaborator. Both operations return
// trimmed natural-language text or fail once every configured provider has
// been tried.
type Completer interface {
	TextCompletion(ctx context.Context, prompt string) (string, error)
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Searcher is the web-search collaborator. It never fails: provider errors
// and empty result sets are reported as sentinel strings.
type Searcher interface {
	Search(ctx context.Context, query string) string
}
