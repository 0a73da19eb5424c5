package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "radiology-bot/internal/application"
	"radiology-bot/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я помогаю разобрать рентгенограммы грудной клетки и фото ЭКГ-лент.

📋 Команды:
/xray — анализ рентгенограммы
/ecg — анализ фото ЭКГ-ленты
/help — справка
/cancel — отменить текущую операцию

⚕️ Результат не является диагнозом и требует проверки врачом.`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Выберите режим: /xray или /ecg
2️⃣ Отправьте снимок фото или файлом (файл сохраняет ориентацию и качество)
3️⃣ Получите находки, тепловую карту внимания модели или график сигнала

💡 Рекомендации для ЭКГ:
• Снимайте ленту ровно, без бликов
• Кривая должна быть тёмной и хорошо видимой

📋 Команды:
/xray — рентгенограмма
/ecg — ЭКГ
/cancel — отменить операцию`

	msgAwaitingXRay    = "🩻 Отправьте рентгенограмму грудной клетки."
	msgAwaitingECG     = "📈 Отправьте фото ЭКГ-ленты."
	msgCancelled       = "❌ Операция отменена. Выберите /xray или /ecg для нового анализа."
	msgChooseMode      = "📋 Сначала выберите режим: /xray или /ecg."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgBusy            = "⏳ Предыдущее изображение ещё обрабатывается."
	msgNotImage        = "📎 Этот файл не похож на изображение."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
)

const downloadTimeout = 30 * time.Second

// Bot представляет Telegram-бота
type Bot struct {
	api    *tgbotapi.BotAPI
	users  *app.UserService
	cases  *app.CaseService
	http   *http.Client
	logger *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, cases *app.CaseService, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:    api,
		users:  users,
		cases:  cases,
		http:   &http.Client{Timeout: downloadTimeout},
		logger: logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("failed to get user", "user_id", msg.From.ID, "error", err)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	if fileID, ok := imageFileID(msg); ok {
		b.handleImage(ctx, msg, user, fileID)
		return
	}
	if msg.Document != nil {
		b.sendMessage(msg.Chat.ID, msgNotImage)
		return
	}

	b.sendMessage(msg.Chat.ID, promptFor(user.State))
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	var err error
	switch msg.Command() {
	case "start":
		_, err = b.users.Cancel(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "xray":
		_, err = b.users.BeginXRay(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgAwaitingXRay)

	case "ecg":
		_, err = b.users.BeginECG(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgAwaitingECG)

	case "cancel":
		_, err = b.users.Cancel(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
	if err != nil {
		b.logger.Error("failed to save user state", "user_id", user.ID, "error", err)
	}
}

// handleImage запускает анализ в выбранном пользователем режиме
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, user *entity.User, fileID string) {
	mode, ok, err := b.users.BeginProcessing(ctx, user.ID, user.ChatID)
	switch {
	case err != nil:
		b.logger.Error("failed to save user state", "user_id", user.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	case !ok && mode == entity.StateProcessing:
		b.sendMessage(msg.Chat.ID, msgBusy)
		return
	case !ok:
		b.sendMessage(msg.Chat.ID, msgChooseMode)
		return
	}
	defer func() {
		if err := b.users.FinishProcessing(ctx, user.ID, user.ChatID, mode); err != nil {
			b.logger.Error("failed to save user state", "user_id", user.ID, "error", err)
		}
	}()

	b.sendMessage(msg.Chat.ID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.logger.Error("failed to download photo", "user_id", user.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	userID := strconv.FormatInt(user.ID, 10)
	logger := b.logger.With("user_id", user.ID, "mode", string(mode), "bytes", len(imageData))

	switch mode {
	case entity.StateAwaitingXRay:
		res, err := b.cases.RunXRay(ctx, userID, imageData)
		if err != nil {
			b.replyError(msg.Chat.ID, logger, err)
			return
		}
		logger.Info("xray analysed", "analysis_id", res.ID, "top_finding", res.Report.TopFinding)
		b.sendXRay(msg.Chat.ID, res.Report)

	case entity.StateAwaitingECG:
		res, err := b.cases.RunECG(ctx, userID, imageData)
		if err != nil {
			b.replyError(msg.Chat.ID, logger, err)
			return
		}
		logger.Info("ecg analysed", "analysis_id", res.ID, "findings", res.Report.Findings)
		b.sendECG(msg.Chat.ID, res.Report)
	}
}

func (b *Bot) sendXRay(chatID int64, report *entity.XRayReport) {
	b.sendMessage(chatID, FormatXRay(report))

	heatmap := tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: "heatmap.jpg", Bytes: report.Heatmap})
	heatmap.Caption = "Карта внимания модели"
	pinpoint := tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: "pinpoint.jpg", Bytes: report.Pinpoint})
	pinpoint.Caption = "Область максимального внимания"

	group := tgbotapi.NewMediaGroup(chatID, []interface{}{heatmap, pinpoint})
	if _, err := b.api.SendMediaGroup(group); err != nil {
		b.logger.Error("failed to send xray images", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendECG(chatID int64, report *entity.ECGReport) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "waveform.png", Bytes: report.Waveform})
	photo.Caption = FormatECG(report)
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to send waveform", "chat_id", chatID, "error", err)
		b.sendMessage(chatID, photo.Caption)
	}
}

func (b *Bot) replyError(chatID int64, logger *slog.Logger, err error) {
	var ood *entity.OODError
	switch {
	case errors.As(err, &ood), errors.Is(err, entity.ErrSignalExtraction), errors.Is(err, entity.ErrQuotaExceeded):
		logger.Info("analysis rejected", "reason", err)
	default:
		logger.Error("analysis failed", "error", err)
	}
	b.sendMessage(chatID, ErrorText(err))
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// imageFileID возвращает файл наибольшего размера из фото или документа-изображения.
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

func promptFor(state entity.UserState) string {
	switch state {
	case entity.StateAwaitingXRay:
		return msgAwaitingXRay
	case entity.StateAwaitingECG:
		return msgAwaitingECG
	case entity.StateProcessing:
		return msgBusy
	default:
		return msgChooseMode
	}
}
