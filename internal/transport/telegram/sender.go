package telegram

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/finbot/pkg/conv"
	"github.com/sandevgo/finbot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

const (
	sendRetries    = 3
	sendRetryDelay = 2 * time.Second

	msgDelayNotice = "⌛ Запрос обрабатывается, небольшая задержка…"
	msgSendTimeout = "❌ Превышено время ожидания ответа от Telegram."
)

var errSendTimedOut = errors.New("telegram send timed out after retries")

type sender struct {
	bot *tele.Bot
}

func newSender(bot *tele.Bot) *sender {
	return &sender{bot: bot}
}

// sendMarkdown converts Markdown to Telegram HTML and sends it in chunks if needed.
func (s *sender) sendMarkdown(ctx context.Context, to tele.Recipient, md string) error {
	logger := log.FromCtx(ctx)
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(md)))

	chunks := splitHTML(html, maxTelegramMsgLen)
	for i, chunk := range chunks {
		if err := s.sendWithRetry(ctx, to, chunk, tele.ModeHTML); err != nil {
			logger.Error().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("failed to send telegram chunk")
			return err
		}
	}
	return nil
}

// sendWithRetry retries timed-out sends. The first timeout posts a transient
// delay notice which is removed before the next attempt; if every attempt
// times out the notice is rewritten into a final failure message.
func (s *sender) sendWithRetry(ctx context.Context, to tele.Recipient, what any, opts ...any) error {
	logger := log.FromCtx(ctx)
	var waiting *tele.Message

	for attempt := 1; attempt <= sendRetries+1; attempt++ {
		if waiting != nil {
			if err := s.bot.Delete(waiting); err != nil {
				logger.Warn().Err(err).Msg("failed to delete delay notice")
			}
			waiting = nil
		}

		_, err := s.bot.Send(to, what, opts...)
		if err == nil {
			return nil
		}
		if !isTimeout(err) {
			logger.Error().Err(err).Msg("failed to send telegram message")
			return err
		}

		logger.Warn().Err(err).Int("attempt", attempt).Msg("telegram send timed out")
		if attempt == 1 {
			waiting, _ = s.bot.Send(to, msgDelayNotice)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sendRetryDelay):
		}
	}

	if waiting != nil {
		if _, err := s.bot.Edit(waiting, msgSendTimeout); err != nil {
			logger.Warn().Err(err).Msg("failed to rewrite delay notice")
		}
	} else {
		_, _ = s.bot.Send(to, msgSendTimeout)
	}
	return errSendTimedOut
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		// Try to find a good break point (newline) in the second half of the chunk
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		} else {
			// Never cut in the middle of a multi-byte rune
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
