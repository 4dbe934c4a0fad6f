package research

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

// Inferencer is the model-call surface the pipeline stages depend on.
type Inferencer interface {
	Invoke(ctx context.Context, prompt string) string
}

// RateLimitedInferenceClient wraps a primary and a fallback llms.Model behind
// a single total Invoke: pacing, retry with jittered backoff on quota errors,
// one fallback attempt, and a degraded-mode reply when both providers fail.
// A single client is safe for concurrent use; the limiter is its only shared
// mutable state.
type RateLimitedInferenceClient struct {
	primary  llms.Model
	fallback llms.Model
	cfg      Config
	limiter  *rate.Limiter
	log      *slog.Logger

	// injected for tests
	sleep func(ctx context.Context, d time.Duration)
	roll  func() float64
}

// NewInferenceClient builds a client over the two providers. Zero fields in
// cfg take the documented defaults. A nil logger falls back to slog.Default.
func NewInferenceClient(primary, fallback llms.Model, cfg Config, logger *slog.Logger) *RateLimitedInferenceClient {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitedInferenceClient{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1),
		log:      logger,
		sleep:    sleepContext,
		roll:     rand.Float64,
	}
}

// Invoke submits the prompt and always produces a reply. The primary provider
// gets up to MaxRetries attempts, retrying only on quota signals; any other
// error routes straight to the fallback provider, which is tried exactly once
// with a simplified prompt. When both pathways fail the reply is a fixed
// degraded-mode notice quoting the start of the prompt.
func (c *RateLimitedInferenceClient) Invoke(ctx context.Context, prompt string) string {
	prompt = truncateRunes(prompt, c.cfg.PromptCharLimit)

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			c.log.Warn("inference canceled while pacing", "error", err)
			break
		}

		reply, err := c.generate(ctx, c.primary, prompt)
		if err == nil {
			return reply
		}
		if !isQuotaError(err) {
			c.log.Warn("primary model failed, switching to fallback", "error", err)
			break
		}

		if attempt < c.cfg.MaxRetries-1 {
			delay := backoffDelay(c.cfg.BaseDelay, c.cfg.MaxJitter, c.roll())
			c.log.Warn("primary model quota exhausted, backing off",
				"attempt", attempt+1, "delay", delay)
			c.sleep(ctx, delay)
		} else {
			c.log.Warn("primary model quota exhausted, giving up", "attempt", attempt+1)
		}
	}

	reply, err := c.generate(ctx, c.fallback, simplifyPrompt(prompt))
	if err == nil {
		return reply
	}
	c.log.Error("fallback model failed, replying in degraded mode", "error", err)
	return degradedReply(prompt)
}

func (c *RateLimitedInferenceClient) generate(ctx context.Context, model llms.Model, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Content, nil
}

// backoffDelay computes the wait before the next primary attempt: the base
// delay plus a uniform jitter share. roll is expected in [0, 1).
func backoffDelay(baseDelay, maxJitter time.Duration, roll float64) time.Duration {
	return baseDelay + time.Duration(roll*float64(maxJitter))
}

// simplifiedPromptLimit bounds what is sent to the smaller fallback model.
const simplifiedPromptLimit = 2000

// simplifyPrompt strips the response-format instructions before handing the
// prompt to the fallback model. Local models tend to ignore strict format
// blocks anyway; the shorter prompt keeps them on the actual task.
func simplifyPrompt(prompt string) string {
	if i := strings.Index(prompt, "\nRespond with"); i >= 0 {
		prompt = prompt[:i]
	}
	return truncateRunes(strings.TrimSpace(prompt), simplifiedPromptLimit)
}

// degradedExcerptLimit is how much of the original prompt the degraded-mode
// notice quotes back.
const degradedExcerptLimit = 100

func degradedReply(prompt string) string {
	return fmt.Sprintf(
		"I am currently unable to process this request due to technical issues. The request was about: %s",
		truncateRunes(prompt, degradedExcerptLimit))
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// truncateRunes caps s at limit runes without splitting a multi-byte
// character. A non-positive limit disables the cap.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
