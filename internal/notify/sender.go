package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kanban/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return time.Second
	}
	if attempt >= len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[attempt]
}

// TelegramError represents an error from Telegram API.
type TelegramError struct {
	Code       int
	Message    string
	RetryAfter int // seconds to wait before retrying (for 429 errors)
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
}

// IsTelegramError checks if the error is a TelegramError.
func IsTelegramError(err error) (*TelegramError, bool) {
	var tgErr *TelegramError
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

// ErrPermanent marks sends that must not be retried.
var ErrPermanent = errors.New("telegram rejected message")

func fromAPIError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &TelegramError{Code: apiErr.Code, Message: apiErr.Message, RetryAfter: apiErr.RetryAfter}
	}
	return err
}

// Sender paces sends with a token bucket and retries transient failures.
type Sender struct {
	limiter *rate.Limiter
	retry   RetryConfig
	logger  zerolog.Logger
}

func NewSender(perSecond float64, retry RetryConfig, logger zerolog.Logger) *Sender {
	if perSecond <= 0 {
		perSecond = 20
	}
	return &Sender{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		retry:   retry,
		logger:  logger,
	}
}

// Do runs send under the rate limit, retrying per RetryConfig. 429 waits
// for the server's retry-after; 400 and 403 are permanent.
func (s *Sender) Do(ctx context.Context, send func() error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		err := fromAPIError(send())
		metrics.ObserveTelegramSend(err)
		if err == nil {
			return nil
		}
		lastErr = err

		wait := s.retry.delay(attempt)
		if tgErr, ok := IsTelegramError(err); ok {
			switch tgErr.Code {
			case http.StatusTooManyRequests:
				if tgErr.RetryAfter > 0 {
					wait = time.Duration(tgErr.RetryAfter) * time.Second
				}
				s.logger.Info().Dur("retry_after", wait).Int("attempt", attempt).Msg("rate limited by Telegram, waiting")
			case http.StatusForbidden, http.StatusBadRequest:
				s.logger.Error().Err(err).Msg("telegram rejected message")
				return fmt.Errorf("%w: %v", ErrPermanent, err)
			}
		}

		if attempt == s.retry.MaxRetries {
			break
		}
		s.logger.Info().Int("attempt", attempt+1).Int("max_retries", s.retry.MaxRetries).Dur("delay", wait).Err(err).Msg("retrying telegram send")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Error().Err(lastErr).Msg("max retries exceeded for telegram send")
	return lastErr
}
