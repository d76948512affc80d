package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// Defaults target a local Ollama server through its OpenAI-compatible API.
const (
	DefaultBaseURL        = "http://localhost:11434/v1/"
	DefaultAPIKey         = "ollama"
	DefaultChatModel      = "gemma3:1b"
	DefaultEmbeddingModel = "all-minilm"
	DefaultPrompt         = "Write a concise technical paragraph explaining the concept of %s for a software engineer."
)

// OpenAI generates content with chat completions and vectors with the
// embeddings endpoint of any OpenAI-compatible server.
type OpenAI struct {
	client         openai.Client
	chatModel      string
	embeddingModel string
	prompt         string
	limiter        *rate.Limiter
}

type openAIOptions struct {
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string
	prompt         string
	maxRetries     int
	httpClient     *http.Client
	limit          rate.Limit
	burst          int
}

// OpenAIOption configures an OpenAI generator.
type OpenAIOption func(*openAIOptions)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) { o.baseURL = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) OpenAIOption {
	return func(o *openAIOptions) { o.apiKey = key }
}

// WithChatModel sets the chat completion model.
func WithChatModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.chatModel = model }
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.embeddingModel = model }
}

// WithPrompt sets the prompt template. It must contain one %s verb for the
// keyword.
func WithPrompt(prompt string) OpenAIOption {
	return func(o *openAIOptions) { o.prompt = prompt }
}

// WithMaxRetries sets the client retry budget for failed requests.
func WithMaxRetries(n int) OpenAIOption {
	return func(o *openAIOptions) { o.maxRetries = n }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *openAIOptions) { o.httpClient = c }
}

// WithRateLimit limits requests to rps per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) OpenAIOption {
	return func(o *openAIOptions) {
		if rps <= 0 {
			o.limit = rate.Inf
		} else {
			o.limit = rate.Limit(rps)
		}
		o.burst = max(burst, 1)
	}
}

// NewOpenAI creates a generator. Without options it talks to a local Ollama.
func NewOpenAI(optFns ...OpenAIOption) *OpenAI {
	o := openAIOptions{
		baseURL:        DefaultBaseURL,
		apiKey:         DefaultAPIKey,
		chatModel:      DefaultChatModel,
		embeddingModel: DefaultEmbeddingModel,
		prompt:         DefaultPrompt,
		maxRetries:     2,
		limit:          rate.Inf,
		burst:          1,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(o.baseURL),
		option.WithAPIKey(o.apiKey),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	return &OpenAI{
		client:         openai.NewClient(reqOpts...),
		chatModel:      o.chatModel,
		embeddingModel: o.embeddingModel,
		prompt:         o.prompt,
		limiter:        rate.NewLimiter(o.limit, o.burst),
	}
}

// Generate asks the chat model for a paragraph about keyword.
func (g *OpenAI) Generate(ctx context.Context, keyword string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(g.prompt, keyword)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generator: chat completion for %q: %w", keyword, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generator: chat completion for %q returned no choices", keyword)
	}
	return Sanitize(resp.Choices[0].Message.Content), nil
}

// Embed embeds texts with a single request.
func (g *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := g.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(g.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("generator: embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("generator: embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("generator: embeddings: bad index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			vec[i] = float32(x)
		}
		out[d.Index] = vec
	}
	return out, nil
}

var (
	_ ContentGenerator = (*OpenAI)(nil)
	_ Embedder         = (*OpenAI)(nil)
)
