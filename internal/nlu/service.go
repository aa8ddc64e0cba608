package nlu

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ridgelinebank/teller/internal/common"
	"github.com/ridgelinebank/teller/internal/service"
)

const systemPrompt = `You are the understanding layer of a banking assistant. Given a customer ` +
	`utterance, classify the intent and extract entities. You MUST respond with ONLY a valid ` +
	`JSON object of the form {"candidates":[{"intent_id":"...","confidence":0.0}],` +
	`"entities":[{"type":"...","raw_text":"...","value":"...","confidence":0.0}]}. ` +
	`Rank candidates by confidence. Do not include any text before or after the JSON.`

// Service implements service.Understander on top of a provider Client.
type Service struct {
	client      Client
	cache       *resultCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
	timeout     time.Duration
}

// NewService creates an understanding service for the configured provider.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported understanding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create understanding client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		client:      client,
		cache:       newResultCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger.With("component", "nlu"),
		timeout:     timeout,
	}, nil
}

// ClassifyAndExtract sends the utterance to the provider. The request carries
// a hard timeout; the classifier falls back to pattern matching on any error
// returned here, so this method never retries aggressively.
func (s *Service) ClassifyAndExtract(ctx context.Context, text string, hints service.Hints) (*service.UnderstandingResult, error) {
	key := cacheKey(text, hints)
	if result, found := s.cache.get(key); found {
		s.logger.Debug("understanding cache hit", "key", key)
		return &result, nil
	}

	if err := s.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildPrompt(text, hints)

	content, err := s.client.Understand(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrClassificationUnavailable, err)
	}

	result, err := parseUnderstanding(content)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		return result.Candidates[i].Confidence > result.Candidates[j].Confidence
	})

	s.cache.set(key, *result)

	s.logger.Debug("utterance understood",
		"top_intent", result.Candidates[0].IntentID,
		"confidence", result.Candidates[0].Confidence,
		"entities", len(result.Entities))

	return result, nil
}

// Close releases the background goroutines.
func (s *Service) Close() {
	s.cache.Close()
	s.rateLimiter.Close()
}

func buildPrompt(text string, hints service.Hints) string {
	var b strings.Builder

	if len(hints.KnownIntents) > 0 {
		b.WriteString("Known intent IDs: ")
		b.WriteString(strings.Join(hints.KnownIntents, ", "))
		b.WriteString("\n")
	}
	if hints.PendingIntent != "" {
		fmt.Fprintf(&b, "The conversation has a pending intent: %s\n", hints.PendingIntent)
	}
	if hints.LastIntent != "" {
		fmt.Fprintf(&b, "The previous completed intent was: %s\n", hints.LastIntent)
	}
	fmt.Fprintf(&b, "Utterance: %q", text)

	return b.String()
}

func cacheKey(text string, hints service.Hints) string {
	h := sha256.Sum256([]byte(text + "|" + hints.PendingIntent + "|" + hints.LastIntent))
	return hex.EncodeToString(h[:8])
}
