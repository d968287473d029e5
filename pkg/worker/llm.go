package worker

import "context"

// GenerateOptions carries the per-call LLM parameters of spec §6.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// Chunk is one piece of a streamed LLM response.
type Chunk struct {
	Text  string
	Done  bool
	Error error
}

// LLMClient is the external LLM collaborator contract (spec §6). The core
// treats timeouts and rate-limit errors as ordinary execute failures; it
// never interprets provider-specific error codes.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan Chunk, error)
	Close() error
}

// StubLLMClient is a canned-response LLMClient. Spec §9 treats LLM call
// stubbing as a test-time concern, not a core responsibility; this is the
// default wired by cmd/swarmd unless a real client is supplied.
type StubLLMClient struct {
	Response string
}

func (s *StubLLMClient) Generate(_ context.Context, _ string, _ GenerateOptions) (string, error) {
	if s.Response != "" {
		return s.Response, nil
	}
	return "stub response", nil
}

func (s *StubLLMClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan Chunk, error) {
	ch := make(chan Chunk, 1)
	text, err := s.Generate(ctx, prompt, opts)
	if err != nil {
		ch <- Chunk{Error: err, Done: true}
		close(ch)
		return ch, nil
	}
	ch <- Chunk{Text: text, Done: true}
	close(ch)
	return ch, nil
}

func (s *StubLLMClient) Close() error { return nil }
