package tokenizer

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/mandalnilabja/chatrelay/internal/types"
)

// Estimator memoises prompt estimates keyed by model and raw messages.
// Multi-turn chats resend the same prefix, so hits are common.
type Estimator struct {
	tok   Tokenizer
	cache *ristretto.Cache[uint64, int]
}

// NewEstimator wraps tok with a bounded cache of maxEntries estimates.
func NewEstimator(tok Tokenizer, maxEntries int64) (*Estimator, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, int]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tokenizer: creating cache: %w", err)
	}
	return &Estimator{tok: tok, cache: cache}, nil
}

// EstimatePrompt returns the prompt token count for a raw messages array.
func (e *Estimator) EstimatePrompt(model string, messages []byte) (int, error) {
	key := cacheKey(model, messages)
	if n, ok := e.cache.Get(key); ok {
		return n, nil
	}

	var msgs []types.Message
	if err := json.Unmarshal(messages, &msgs); err != nil {
		return 0, fmt.Errorf("tokenizer: decoding messages: %w", err)
	}
	n, err := e.tok.CountMessages(msgs, model)
	if err != nil {
		return 0, err
	}
	e.cache.Set(key, n, 1)
	return n, nil
}

// Close releases the cache goroutines.
func (e *Estimator) Close() {
	e.cache.Close()
}

func cacheKey(model string, messages []byte) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(model)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(messages)
	return d.Sum64()
}
