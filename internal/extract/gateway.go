// Package extract turns raw pasted content into a structured component
// descriptor via the LLM. The model's output is untrusted: a JSON object
// is recovered from free-form text and validated against the expected
// shape before anything reaches the component library.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/architect-studio/internal/builder"
	"github.com/p-blackswan/architect-studio/internal/llm"
	"github.com/p-blackswan/architect-studio/internal/retry"
	"github.com/p-blackswan/architect-studio/pkg/lru"
)

// ErrEmptyContent is returned when there is nothing to extract.
var ErrEmptyContent = errors.New("extract: content is empty")

// ErrUnparseable is returned when the model output cannot be recovered
// into a valid descriptor.
var ErrUnparseable = errors.New("extract: failed to parse model output")

// jsonObjectRe finds the first JSON object in free-form model output.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

const extractPrompt = `Analyze the following code/design and extract it into a clean, modular React component primitive using Tailwind CSS.
Return ONLY a JSON object with this structure:
{
  "name": "Component Name",
  "category": "Elements|Forms|Layout|Cards|Complex|Dashboard",
  "tags": ["tag1", "tag2"],
  "code": "Full JSX code here"
}
Content to extract:
`

// Gateway routes extraction requests to the LLM provider.
type Gateway struct {
	provider llm.Provider
	cache    *lru.Cache[string, builder.Descriptor]
	retryCfg retry.Config
	logger   zerolog.Logger
}

// NewGateway creates an extraction gateway. cacheSize bounds the
// memoization cache; identical content never hits the model twice while
// cached.
func NewGateway(provider llm.Provider, cacheSize int, logger zerolog.Logger) *Gateway {
	cfg := retry.DefaultConfig()
	cfg.Retryable = func(err error) bool {
		var te *llm.TransientError
		return errors.As(err, &te)
	}
	return &Gateway{
		provider: provider,
		cache:    lru.New[string, builder.Descriptor](cacheSize),
		retryCfg: cfg,
		logger:   logger.With().Str("component", "extract").Logger(),
	}
}

// Extract converts content into a Descriptor or fails. The library is
// never touched here — on any failure the caller gets an error and no
// partial result.
func (g *Gateway) Extract(ctx context.Context, content string) (*builder.Descriptor, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	key := cacheKey(content)
	if d, ok := g.cache.Get(key); ok {
		g.logger.Debug().Msg("extraction cache hit")
		out := d
		return &out, nil
	}

	var resp *llm.CompletionResponse
	err := retry.Do(ctx, g.retryCfg, func(ctx context.Context) error {
		var err error
		resp, err = g.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: extractPrompt + content},
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("extract: upstream: %w", err)
	}

	desc, err := parseDescriptor(resp.Text)
	if err != nil {
		g.logger.Warn().Err(err).Msg("model output did not yield a descriptor")
		return nil, err
	}

	g.cache.Put(key, *desc)
	g.logger.Info().
		Str("name", desc.Name).
		Str("category", desc.Category).
		Int("tags", len(desc.Tags)).
		Msg("component extracted")
	return desc, nil
}

// parseDescriptor recovers and validates a descriptor from model text.
func parseDescriptor(text string) (*builder.Descriptor, error) {
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrUnparseable)
	}

	var d builder.Descriptor
	if err := json.Unmarshal([]byte(match), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("%w: missing name", ErrUnparseable)
	}
	if !builder.ValidCategory(d.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrUnparseable, d.Category)
	}
	return &d, nil
}

func cacheKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
