package analyzer

import "context"

// Completer sends one system+user prompt pair to a language model and
// returns the raw text of the reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}
