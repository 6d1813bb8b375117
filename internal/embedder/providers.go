package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-small"

	OpenAIDimension = 1536
	LocalDimension  = 384

	// EnvOpenAIAPIKey names the environment variable holding the API key.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cache  *Cache
}

// NewOpenAIProvider creates an OpenAI embedder. An empty apiKey falls
// back to the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(apiKey, model string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		cache:  cache,
	}, nil
}

// EmbedBatch embeds all texts in one API call, preserving order.
func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	pending := make([]string, 0, len(texts))

	for i, text := range texts {
		if o.cache != nil {
			if v, ok := o.cache.Get(ComputeHash(text)); ok {
				vectors[i] = v
				continue
			}
		}
		missing = append(missing, i)
		pending = append(pending, text)
	}

	if len(pending) > 0 {
		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: pending,
			Model: o.model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
		}
		if len(resp.Data) != len(pending) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Data), len(pending))
		}
		for j, data := range resp.Data {
			v := Normalize(data.Embedding)
			idx := missing[j]
			vectors[idx] = v
			if o.cache != nil {
				o.cache.Set(ComputeHash(pending[j]), v)
			}
		}
	}

	return vectors, nil
}

func (o *OpenAIProvider) Dimension() int {
	return OpenAIDimension
}

func (o *OpenAIProvider) Model() string {
	return string(o.model)
}

func (o *OpenAIProvider) Close() error {
	return nil
}

// LocalProvider is a deterministic offline embedder. Vectors are
// derived from the content hash, so identical text always embeds to the
// same unit vector. Suitable for tests and environments without API
// access.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a local embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-embeddings",
		cache: cache,
	}, nil
}

// EmbedBatch derives a deterministic vector per text.
func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		hash := ComputeHash(text)
		if l.cache != nil {
			if v, ok := l.cache.Get(hash); ok {
				vectors[i] = v
				continue
			}
		}
		v := localVector(text)
		if l.cache != nil {
			l.cache.Set(hash, v)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// localVector expands the text hash into a unit vector of
// LocalDimension. Repeated hashing fills the full dimension.
func localVector(text string) []float32 {
	v := make([]float32, LocalDimension)
	seed := sha256.Sum256([]byte(text))
	buf := seed[:]
	for i := 0; i < LocalDimension; i++ {
		if i > 0 && i%len(seed) == 0 {
			next := sha256.Sum256(buf)
			buf = next[:]
		}
		v[i] = float32(buf[i%len(seed)])/255.0 - 0.5
	}
	return Normalize(v)
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
