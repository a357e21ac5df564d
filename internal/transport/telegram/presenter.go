package telegram

import (
	"context"
	"fmt"

	"github.com/sandevgo/finbot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

// presenter binds one incoming update to the dialogue orchestrator's
// callbacks.
type presenter struct {
	c tele.Context
	s *sender
}

func (b *Bot) presenter(c tele.Context) *presenter {
	return &presenter{c: c, s: b.sender}
}

func (p *presenter) Reply(ctx context.Context, text string) error {
	return p.s.sendMarkdown(ctx, p.c.Sender(), text)
}

// NotifySearching posts a transient progress notice; the returned function
// deletes it again.
func (p *presenter) NotifySearching(ctx context.Context, stage int) (func(), error) {
	msg, err := p.s.bot.Send(p.c.Sender(), fmt.Sprintf("🔍 Идёт поиск в Интернете, этап №%d", stage))
	if err != nil {
		return nil, err
	}
	return func() {
		if err := p.s.bot.Delete(msg); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to delete search notice")
		}
	}, nil
}

func (p *presenter) AskContinueOrStop(ctx context.Context, stage int) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(btnSearchStop, btnSearchContinue))

	text := fmt.Sprintf("🔍 Пожалуйста, подождите, идёт поиск в Интернете... (этап №%d)", stage)
	return p.s.sendWithRetry(ctx, p.c.Sender(), text, menu)
}

func (p *presenter) AskConfirmation(ctx context.Context, text string) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(btnConfirmYes, btnConfirmNo))

	return p.s.sendWithRetry(ctx, p.c.Sender(), text, menu)
}
