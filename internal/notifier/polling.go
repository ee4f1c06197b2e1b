package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Reply is what a command handler sends back. When Photo is set it is sent
// first with Caption, followed by Text as a separate message.
type Reply struct {
	Text    string
	Photo   []byte
	Caption string
}

// CommandHandler is called for every text message received.
type CommandHandler func(ctx context.Context, command string) Reply

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

// StartPolling long-polls getUpdates and dispatches commands until ctx is
// cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for {
		if ctx.Err() != nil {
			log.Info().Msg("telegram polling stopped")
			return
		}
		updates, err := t.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("polling request failed")
			sleep(ctx, 5*time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
				continue
			}
			if chat := strconv.FormatInt(u.Message.Chat.ID, 10); chat != t.ChatID {
				log.Warn().Str("chat", chat).Msg("ignoring command from unknown chat")
				continue
			}
			t.dispatch(ctx, strings.TrimSpace(u.Message.Text), handler)
		}
	}
}

func (t *TelegramNotifier) dispatch(ctx context.Context, text string, handler CommandHandler) {
	log.Info().Str("command", text).Msg("received command")
	reply := handler(ctx, text)
	if len(reply.Photo) > 0 {
		if err := t.SendPhoto(ctx, reply.Photo, reply.Caption); err != nil {
			log.Error().Err(err).Msg("send reply photo")
		}
	}
	if reply.Text != "" {
		if err := t.Send(ctx, reply.Text); err != nil {
			log.Error().Err(err).Msg("send reply")
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, offset int) ([]telegramUpdate, error) {
	var result updatesResponse
	timeoutSec := int(t.pollTimeout / time.Second)
	resp, err := t.poll.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset":  strconv.Itoa(offset),
			"timeout": strconv.Itoa(timeoutSec),
		}).
		SetResult(&result).
		Get("/bot{token}/getUpdates")
	if err := t.check(resp, err, "getUpdates"); err != nil {
		return nil, err
	}
	return result.Result, nil
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
