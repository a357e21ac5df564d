package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/finbot/internal/config"
	"github.com/sandevgo/finbot/internal/core"
	"github.com/sandevgo/finbot/internal/service/dialog"
	"github.com/sandevgo/finbot/internal/service/report"
	"github.com/sandevgo/finbot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

const (
	msgWelcome = "Привет! Я бот на базе Gemini AI для работы с личными финансами " +
		"и помощи в финансовой аналитике. \n\n Я умею распознавать в тексте " +
		"сообщений данные о личных финансовых операциях и сохранять их в отдельном " +
		"Excel-файле, который ты можешь запросить командой. \n\n" +
		" Напиши мне что-нибудь."

	msgHelp = "Я финансовый ассистент. Просто напиши мне о своих тратах или доходах, " +
		"и я предложу записать их.\n\n" +
		"Команды:\n" +
		"/chart — диаграмма доходов и расходов\n" +
		"/export — выгрузка операций в Excel\n" +
		"/search <запрос> — поиск в Интернете\n" +
		"/reset — очистить контекст разговора"

	msgGenericError  = "⚠️ Произошла ошибка при обработке запроса."
	msgResetDone     = "Контекст очищен. Начнём с чистого листа."
	msgResetFailed   = "⚠️ Не удалось сбросить контекст."
	msgSearchUsage   = "Укажите запрос: /search ваш запрос"
	msgChartNoData   = "Нет данных для построения диаграммы."
	msgChartFailed   = "⚠️ Не удалось построить диаграмму."
	msgExportNoData  = "⚠️ Нет данных для выгрузки."
	msgExportFailed  = "⚠️ Ошибка при выгрузке данных в Excel."
	msgSearchStopped = "Поиск остановлен."
)

type Bot struct {
	bot      *tele.Bot
	cfg      *config.TelegramConfig
	orch     *dialog.Orchestrator
	reporter *report.Reporter
	searcher core.Searcher
	sender   *sender
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	orch *dialog.Orchestrator,
	reporter *report.Reporter,
	searcher core.Searcher,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		orch:     orch,
		reporter: reporter,
		searcher: searcher,
		sender:   newSender(b),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Handle("/start", bot.handleStart)
	b.Handle("/help", bot.handleHelp)
	b.Handle("/reset", bot.handleReset)
	b.Handle("/search", bot.handleSearch)
	b.Handle("/chart", bot.handleChart)
	b.Handle("/export", bot.handleExport)
	b.Handle(tele.OnText, bot.handleMessage)

	b.Handle(&btnConfirmYes, bot.handleConfirm(true))
	b.Handle(&btnConfirmNo, bot.handleConfirm(false))
	b.Handle(&btnSearchContinue, bot.handleSearchContinue)
	b.Handle(&btnSearchStop, bot.handleSearchStop)

	return bot, nil
}

// Inline keyboard buttons; Unique values route callbacks back to handlers.
var (
	btnConfirmYes     = tele.Btn{Unique: "confirm_yes", Text: "✅ Да"}
	btnConfirmNo      = tele.Btn{Unique: "confirm_no", Text: "❌ Нет"}
	btnSearchStop     = tele.Btn{Unique: "stop_search", Text: "⛔ Остановить поиск"}
	btnSearchContinue = tele.Btn{Unique: "continue_search", Text: "🔁 Продолжить"}
)

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func baseCtx(c tele.Context) context.Context {
	return c.Get(baseContextKey).(context.Context)
}

func senderUser(c tele.Context) core.User {
	return core.User{ID: c.Sender().ID, Username: c.Sender().Username}
}

func (b *Bot) handleStart(c tele.Context) error {
	return b.sender.sendWithRetry(baseCtx(c), c.Sender(), msgWelcome)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return b.sender.sendWithRetry(baseCtx(c), c.Sender(), msgHelp)
}

func (b *Bot) handleReset(c tele.Context) error {
	ctx := baseCtx(c)
	user := senderUser(c)

	if err := b.orch.Reset(ctx, user.ID); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to reset conversation")
		return b.sender.sendWithRetry(ctx, c.Sender(), msgResetFailed)
	}

	log.FromCtx(ctx).Info().Int64("user_id", user.ID).Msg("conversation reset")
	return b.sender.sendWithRetry(ctx, c.Sender(), msgResetDone)
}

func (b *Bot) handleSearch(c tele.Context) error {
	ctx := baseCtx(c)

	query := strings.TrimSpace(c.Message().Payload)
	if query == "" {
		return b.sender.sendWithRetry(ctx, c.Sender(), msgSearchUsage)
	}

	// Search never fails upward: "nothing found" and provider errors come
	// back as sentinel texts, delivered as-is.
	return b.sender.sendWithRetry(ctx, c.Sender(), b.searcher.Search(ctx, query))
}

func (b *Bot) handleChart(c tele.Context) error {
	ctx := baseCtx(c)
	user := senderUser(c)

	png, err := b.reporter.PieChart(ctx, user.ID)
	if errors.Is(err, report.ErrNoData) {
		return b.sender.sendWithRetry(ctx, c.Sender(), msgChartNoData)
	}
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to build chart")
		return b.sender.sendWithRetry(ctx, c.Sender(), msgChartFailed)
	}

	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png))}
	return c.Send(photo)
}

func (b *Bot) handleExport(c tele.Context) error {
	ctx := baseCtx(c)
	user := senderUser(c)

	data, err := b.reporter.ExportXLSX(ctx, user.ID)
	if errors.Is(err, report.ErrNoData) {
		return b.sender.sendWithRetry(ctx, c.Sender(), msgExportNoData)
	}
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to export ledger")
		return b.sender.sendWithRetry(ctx, c.Sender(), msgExportFailed)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: fmt.Sprintf("finance_data_%d.xlsx", user.ID),
	}
	return c.Send(doc)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := baseCtx(c)
	user := senderUser(c)

	_ = c.Notify(tele.Typing)

	if err := b.orch.HandleMessage(ctx, user, c.Text(), b.presenter(c)); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to handle message")
		return b.sender.sendWithRetry(ctx, c.Sender(), msgGenericError)
	}
	return nil
}

func (b *Bot) handleConfirm(approved bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := baseCtx(c)
		user := senderUser(c)

		text, found, err := b.orch.ResolveConfirmation(ctx, user, approved)
		if err != nil {
			log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to record operations")
			return c.Edit(msgGenericError)
		}
		if !found {
			return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
		}
		return c.Edit(text)
	}
}

func (b *Bot) handleSearchContinue(c tele.Context) error {
	ctx := baseCtx(c)
	user := senderUser(c)

	_ = c.Respond(&tele.CallbackResponse{})
	_ = c.Notify(tele.Typing)

	if err := b.orch.ResumeContinue(ctx, user, b.presenter(c)); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to continue search")
		return b.sender.sendWithRetry(ctx, c.Sender(), msgGenericError)
	}
	return nil
}

func (b *Bot) handleSearchStop(c tele.Context) error {
	ctx := baseCtx(c)
	user := senderUser(c)

	_ = c.Respond(&tele.CallbackResponse{Text: msgSearchStopped})

	if err := b.orch.ResumeStop(ctx, user, b.presenter(c)); err != nil {
		log.FromCtx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to stop search")
		return b.sender.sendWithRetry(ctx, c.Sender(), msgGenericError)
	}
	return nil
}
