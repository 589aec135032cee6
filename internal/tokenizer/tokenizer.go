// Package tokenizer estimates prompt token counts for request history when
// the upstream reply carries no usage block.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mandalnilabja/chatrelay/internal/types"
)

// Tokenizer counts tokens for chat messages.
type Tokenizer interface {
	// CountTokens counts tokens in a text string for a given model.
	CountTokens(text string, model string) (int, error)

	// CountMessages counts tokens for a slice of messages.
	CountMessages(messages []types.Message, model string) (int, error)
}

// Encoding names used by tiktoken.
const (
	EncodingCL100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
)

// modelEncoding pairs a prefix with its encoding.
type modelEncoding struct {
	prefix   string
	encoding string
}

// modelEncodings lists model prefixes and their encodings, longest prefix first.
// DeepSeek publishes no tiktoken encoding; cl100k_base is the closest estimate.
var modelEncodings = []modelEncoding{
	{"gpt-4o", EncodingO200kBase},
	{"gpt-4", EncodingCL100kBase},
	{"deepseek", EncodingCL100kBase},
	{"o1", EncodingO200kBase},
	{"o3", EncodingO200kBase},
}

// Per-message framing overhead and reply priming, per OpenAI's counting guide.
const (
	messageOverhead    = 3
	replyPrimingTokens = 3
	nameOverhead       = 1
)

// Encoding loads are bounded so a host without network access never stalls
// callers on the BPE download. A failed load is retried after loadRetryAfter.
const (
	defaultLoadTimeout = 10 * time.Second
	loadRetryAfter     = time.Minute
)

// ErrEncodingUnavailable is returned while an encoding cannot be loaded.
var ErrEncodingUnavailable = errors.New("tokenizer: encoding unavailable")

// TiktokenTokenizer implements Tokenizer using tiktoken-go.
type TiktokenTokenizer struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
	loads     map[string]*encodingLoad

	loadTimeout time.Duration
	loadFn      func(name string) (*tiktoken.Tiktoken, error)
}

// encodingLoad is one in-flight or failed encoding load. err and failedAt
// are written under the tokenizer mutex before done is closed.
type encodingLoad struct {
	done     chan struct{}
	enc      *tiktoken.Tiktoken
	err      error
	failedAt time.Time
}

// New creates a new TiktokenTokenizer.
func New() *TiktokenTokenizer {
	return &TiktokenTokenizer{
		encodings:   make(map[string]*tiktoken.Tiktoken),
		loads:       make(map[string]*encodingLoad),
		loadTimeout: defaultLoadTimeout,
		loadFn:      tiktoken.GetEncoding,
	}
}

// getEncoding returns the tiktoken encoding for a model, with caching.
// Concurrent callers share one load and each waits at most loadTimeout.
func (t *TiktokenTokenizer) getEncoding(model string) (*tiktoken.Tiktoken, error) {
	name := resolveEncoding(model)

	t.mu.Lock()
	if enc, ok := t.encodings[name]; ok {
		t.mu.Unlock()
		return enc, nil
	}
	ld, ok := t.loads[name]
	if ok && ld.err != nil {
		if time.Since(ld.failedAt) < loadRetryAfter {
			t.mu.Unlock()
			return nil, fmt.Errorf("%w: %s: %v", ErrEncodingUnavailable, name, ld.err)
		}
		ok = false
	}
	if !ok {
		ld = &encodingLoad{done: make(chan struct{})}
		t.loads[name] = ld
		go t.load(name, ld)
	}
	t.mu.Unlock()

	timer := time.NewTimer(t.loadTimeout)
	defer timer.Stop()

	select {
	case <-ld.done:
		if ld.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEncodingUnavailable, name, ld.err)
		}
		return ld.enc, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s: still loading after %s", ErrEncodingUnavailable, name, t.loadTimeout)
	}
}

func (t *TiktokenTokenizer) load(name string, ld *encodingLoad) {
	enc, err := t.loadFn(name)

	t.mu.Lock()
	if err != nil {
		ld.err = err
		ld.failedAt = time.Now()
	} else {
		ld.enc = enc
		t.encodings[name] = enc
		delete(t.loads, name)
	}
	t.mu.Unlock()
	close(ld.done)
}

// resolveEncoding determines the encoding name for a model.
func resolveEncoding(model string) string {
	modelLower := strings.ToLower(model)
	for _, me := range modelEncodings {
		if strings.HasPrefix(modelLower, me.prefix) {
			return me.encoding
		}
	}
	return EncodingCL100kBase
}

// CountTokens counts tokens in a text string for a given model.
func (t *TiktokenTokenizer) CountTokens(text string, model string) (int, error) {
	enc, err := t.getEncoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountMessages counts tokens for a slice of messages.
func (t *TiktokenTokenizer) CountMessages(messages []types.Message, model string) (int, error) {
	total := 0
	for _, msg := range messages {
		n, err := t.CountTokens(msg.Role, model)
		if err != nil {
			return 0, err
		}
		total += n + messageOverhead

		n, err = t.CountTokens(msg.Content.String(), model)
		if err != nil {
			return 0, err
		}
		total += n

		if msg.Name != "" {
			n, err = t.CountTokens(msg.Name, model)
			if err != nil {
				return 0, err
			}
			total += n + nameOverhead
		}
	}
	return total + replyPrimingTokens, nil
}
