package notifier

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultAPIURL is the Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

const (
	// telegramCaptionLimit is the maximum caption length accepted by sendPhoto.
	telegramCaptionLimit = 1024
	// telegramMessageLimit is the maximum text length, in characters, accepted
	// by sendMessage.
	telegramMessageLimit = 4096

	defaultPollTimeout = 30 * time.Second

	// pollGrace keeps the HTTP client alive past the server-side long poll.
	pollGrace = 5 * time.Second
)

// TelegramNotifier delivers analysis reports via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	client   *resty.Client

	poll        *resty.Client
	pollTimeout time.Duration
}

// NewTelegramNotifier creates a notifier. An empty apiURL selects the
// public Telegram endpoint.
func NewTelegramNotifier(apiURL, botToken, chatID, proxyURL string) *TelegramNotifier {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	newClient := func(timeout time.Duration) *resty.Client {
		c := resty.New().
			SetBaseURL(strings.TrimRight(apiURL, "/")).
			SetTimeout(timeout).
			SetPathParam("token", botToken)
		if proxyURL != "" {
			c.SetProxy(proxyURL)
		}
		return c
	}
	return &TelegramNotifier{
		BotToken:    botToken,
		ChatID:      chatID,
		client:      newClient(30 * time.Second),
		poll:        newClient(defaultPollTimeout + pollGrace),
		pollTimeout: defaultPollTimeout,
	}
}

// SetPollTimeout changes how long getUpdates waits server-side. The HTTP
// client timeout is kept above it.
func (t *TelegramNotifier) SetPollTimeout(d time.Duration) {
	if d < time.Second {
		d = time.Second
	}
	t.pollTimeout = d
	t.poll.SetTimeout(d + pollGrace)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) check(resp *resty.Response, err error, method string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API error: %s status %d, body: %s", method, resp.StatusCode(), resp.String())
	}
	return nil
}

// Send sends an HTML message to the configured chat. Text longer than
// Telegram allows goes out as several messages split at line breaks.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, chunk := range splitMessage(text, telegramMessageLimit) {
		if err := t.sendMessage(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetError(&apiResponse{}).
		Post("/bot{token}/sendMessage")
	return t.check(resp, err, "sendMessage")
}

// SendPhoto uploads a PNG chart with an HTML caption. Captions longer than
// Telegram allows are truncated.
func (t *TelegramNotifier) SendPhoto(ctx context.Context, png []byte, caption string) error {
	caption = truncateHTML(caption, telegramCaptionLimit)
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    t.ChatID,
			"caption":    caption,
			"parse_mode": "HTML",
		}).
		SetFileReader("photo", "chart.png", bytes.NewReader(png)).
		SetError(&apiResponse{}).
		Post("/bot{token}/sendPhoto")
	return t.check(resp, err, "sendPhoto")
}

// SendWithRetry sends a message with exponential backoff retry. Each chunk
// of a long message is retried on its own, so delivered chunks are not
// repeated.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	for _, chunk := range splitMessage(text, telegramMessageLimit) {
		if err := retry(ctx, maxRetries, time.Second, func() error { return t.sendMessage(ctx, chunk) }); err != nil {
			return err
		}
	}
	return nil
}

// SendPhotoWithRetry is SendPhoto with exponential backoff retry.
func (t *TelegramNotifier) SendPhotoWithRetry(ctx context.Context, png []byte, caption string, maxRetries int) error {
	return retry(ctx, maxRetries, time.Second, func() error { return t.SendPhoto(ctx, png, caption) })
}

func retry(ctx context.Context, maxRetries int, base time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := base * time.Duration(1<<uint(i))
		log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries+1).
			Dur("backoff", backoff).Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
