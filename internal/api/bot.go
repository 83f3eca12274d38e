package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "pantry-bot/internal/application"
	"pantry-bot/internal/container"
	"pantry-bot/internal/domain/entity"
)

// sender покрывает методы BotAPI, которыми пользуется бот.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// fetchFunc скачивает файл Telegram по идентификатору.
type fetchFunc func(ctx context.Context, fileID string) ([]byte, error)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	fetch     fetchFunc
	users     *app.UserService
	scans     *app.ScanService
	inventory *app.InventoryService
	logger    *slog.Logger
	maxBytes  int64

	wg sync.WaitGroup
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, maxImageBytes int, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(api, c, maxImageBytes, logger)
	b.api = api
	b.fetch = b.downloadFile

	b.logger.Info("authorized on account", "username", api.Self.UserName)
	return b, nil
}

func newBot(out sender, c *container.Container, maxImageBytes int, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		out:       out,
		users:     c.UserService,
		scans:     c.ScanService,
		inventory: c.InventoryService,
		logger:    logger,
		maxBytes:  int64(maxImageBytes),
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx.
// Обновления обрабатываются параллельно, чтобы /cancel мог прервать долгую классификацию.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.cancelActive(context.WithoutCancel(ctx))
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("get user failed", "user", msg.From.ID, "error", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Фото или изображение файлом
	if fileID, ok := imageFileID(msg); ok {
		b.handleImage(ctx, msg.Chat.ID, user, fileID)
		return
	}
	if msg.Document != nil {
		b.sendMessage(msg.Chat.ID, msgNotAnImage)
		return
	}

	if user.State == entity.StateScanning {
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)
		return
	}
	b.sendMessage(msg.Chat.ID, msgSendScanFirst)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.dropSession(ctx, user)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "scan":
		b.startScan(ctx, chatID, user)

	case "confirm":
		b.confirm(ctx, chatID, 0, user)

	case "cancel":
		if user.SessionID == "" {
			b.sendMessage(chatID, msgNothingToCancel)
			return
		}
		b.dropSession(ctx, user)
		b.sendMessage(chatID, msgCancelled)

	case "inventory":
		recs, err := b.inventory.List(ctx)
		if err != nil {
			b.logger.Error("list inventory failed", "error", err)
			b.sendMessage(chatID, msgInternalError)
			return
		}
		b.sendMessage(chatID, inventoryText(recs))

	case "add":
		b.addIngredient(ctx, chatID, msg.CommandArguments())

	case "delete":
		b.deleteIngredient(ctx, chatID, msg.CommandArguments())

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// startScan открывает новую сессию; предыдущая, если была, отменяется.
func (b *Bot) startScan(ctx context.Context, chatID int64, user *entity.User) {
	b.dropSession(ctx, user)

	sess := b.scans.NewSession()
	if _, err := b.scans.StartCapture(sess.ID); err != nil {
		b.logger.Error("start capture failed", "session", sess.ID, "error", err)
		b.sendMessage(chatID, msgInternalError)
		return
	}
	if _, err := b.users.BeginScan(ctx, user.ID, chatID, sess.ID); err != nil {
		b.logger.Error("begin scan failed", "user", user.ID, "error", err)
		_, _ = b.scans.Cancel(sess.ID)
		b.sendMessage(chatID, msgInternalError)
		return
	}

	b.sendMessage(chatID, msgAwaitingPhoto)
}

// handleImage скачивает снимок и прогоняет его через конвейер
func (b *Bot) handleImage(ctx context.Context, chatID int64, user *entity.User, fileID string) {
	if user.SessionID == "" {
		b.sendMessage(chatID, msgSendScanFirst)
		return
	}
	sessionID := user.SessionID

	b.sendMessage(chatID, msgProcessing)

	data, err := b.fetch(ctx, fileID)
	if err != nil {
		b.logger.Error("download image failed", "session", sessionID, "error", err)
		b.sendMessage(chatID, msgDownloadError)
		return
	}
	b.logger.Debug("image received", "session", sessionID, "bytes", len(data))

	sess, err := b.scans.ImageReady(ctx, sessionID, data)
	switch {
	case err == nil:
		b.send(tgbotapi.MessageConfig{
			BaseChat: tgbotapi.BaseChat{ChatID: chatID, ReplyMarkup: reviewKeyboard(sess)},
			Text:     reviewText(sess),
		})
	case errors.Is(err, app.ErrSessionStale), errors.Is(err, app.ErrSessionNotFound):
		// Сессию отменили, пока шла классификация
		b.logger.Info("image result discarded", "session", sessionID)
	case errors.Is(err, app.ErrTransitionInFlight):
		b.sendMessage(chatID, msgBusy)
	case errors.Is(err, app.ErrInvalidTransition):
		b.sendMessage(chatID, msgAlreadyScanned)
	case sess.Phase == entity.PhaseError:
		b.logger.Warn("scan failed", "session", sessionID, "kind", sess.Err.Kind, "error", err)
		b.sendMessage(chatID, failureText(sess))
		b.finishSession(ctx, user)
	default:
		b.logger.Error("image processing failed", "session", sessionID, "error", err)
		b.sendMessage(chatID, msgInternalError)
	}
}

// handleCallback обрабатывает нажатия inline-кнопок
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		b.answer(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	action, sessionID, index, err := parseCallback(cb.Data)
	if err != nil {
		b.logger.Warn("bad callback", "data", cb.Data)
		b.answer(cb.ID, "")
		return
	}

	user, err := b.users.Get(ctx, cb.From.ID, chatID)
	if err != nil {
		b.logger.Error("get user failed", "user", cb.From.ID, "error", err)
		b.answer(cb.ID, "")
		return
	}
	// Кнопки старого сообщения не должны действовать на новую сессию
	if user.SessionID == "" || user.SessionID != sessionID {
		b.answer(cb.ID, msgNoSession)
		return
	}

	switch action {
	case actionRemove:
		b.removeLabel(chatID, messageID, cb.ID, user.SessionID, index)
	case actionConfirm:
		b.answer(cb.ID, "")
		b.confirm(ctx, chatID, messageID, user)
	case actionRetry:
		b.answer(cb.ID, "")
		b.retry(ctx, chatID, messageID, user)
	case actionAccept:
		b.answer(cb.ID, "")
		b.acceptPartial(ctx, chatID, messageID, user)
	case actionCancel:
		b.answer(cb.ID, "")
		b.dropSession(ctx, user)
		b.edit(chatID, messageID, msgCancelled, nil)
	}
}

func (b *Bot) removeLabel(chatID int64, messageID int, callbackID, sessionID string, index int) {
	sess, err := b.scans.Session(sessionID)
	if err != nil || index >= len(sess.Labels) {
		b.answer(callbackID, msgNoSession)
		return
	}

	label := sess.Labels[index]
	sess, err = b.scans.RemoveFromNew(sessionID, label)
	if err != nil {
		b.answer(callbackID, msgNotReviewing)
		return
	}

	b.answer(callbackID, "Убрано: "+label)
	markup := reviewKeyboard(sess)
	b.edit(chatID, messageID, reviewText(sess), &markup)
}

// confirm записывает новые позиции. При messageID != 0 правим сообщение с кнопками.
func (b *Bot) confirm(ctx context.Context, chatID int64, messageID int, user *entity.User) {
	if user.SessionID == "" {
		b.sendMessage(chatID, msgNotReviewing)
		return
	}
	sess, err := b.scans.Confirm(ctx, user.SessionID)
	b.reportCommit(ctx, chatID, messageID, user, sess, err)
}

func (b *Bot) retry(ctx context.Context, chatID int64, messageID int, user *entity.User) {
	sess, err := b.scans.RetryFailed(ctx, user.SessionID)
	b.reportCommit(ctx, chatID, messageID, user, sess, err)
}

func (b *Bot) acceptPartial(ctx context.Context, chatID int64, messageID int, user *entity.User) {
	sess, err := b.scans.AcceptPartial(user.SessionID)
	b.reportCommit(ctx, chatID, messageID, user, sess, err)
}

func (b *Bot) reportCommit(ctx context.Context, chatID int64, messageID int, user *entity.User, sess entity.ScanSession, err error) {
	var commitErr *entity.CommitError
	switch {
	case err == nil:
		b.reply(chatID, messageID, doneText(sess), nil)
		b.finishSession(ctx, user)
	case errors.As(err, &commitErr):
		b.logger.Warn("commit partially failed", "session", sess.ID, "failed", len(commitErr.Failed))
		markup := commitFailureKeyboard(sess.ID)
		b.reply(chatID, messageID, failureText(sess), &markup)
	case errors.Is(err, app.ErrSessionStale), errors.Is(err, app.ErrSessionNotFound):
		b.sendMessage(chatID, msgNoSession)
	case errors.Is(err, app.ErrTransitionInFlight):
		b.sendMessage(chatID, msgBusy)
	case errors.Is(err, app.ErrInvalidTransition):
		b.sendMessage(chatID, msgNotReviewing)
	default:
		b.logger.Error("commit failed", "session", sess.ID, "error", err)
		b.sendMessage(chatID, msgInternalError)
	}
}

func (b *Bot) addIngredient(ctx context.Context, chatID int64, name string) {
	if strings.TrimSpace(name) == "" {
		b.sendMessage(chatID, msgAddUsage)
		return
	}

	rec, created, err := b.inventory.Add(ctx, name)
	switch {
	case errors.Is(err, app.ErrEmptyName):
		b.sendMessage(chatID, msgAddUsage)
	case err != nil:
		b.logger.Error("add ingredient failed", "error", err)
		b.sendMessage(chatID, msgInternalError)
	case created:
		b.sendMessage(chatID, "✅ Добавлено: "+rec.Name)
	default:
		b.sendMessage(chatID, "📦 Уже есть: "+rec.Name)
	}
}

func (b *Bot) deleteIngredient(ctx context.Context, chatID int64, name string) {
	if strings.TrimSpace(name) == "" {
		b.sendMessage(chatID, msgDeleteUsage)
		return
	}

	n, err := b.inventory.DeleteByName(ctx, name)
	switch {
	case errors.Is(err, app.ErrIngredientNotFound):
		b.sendMessage(chatID, "Такого продукта нет: "+entity.NormalizeLabel(name))
	case errors.Is(err, app.ErrEmptyName):
		b.sendMessage(chatID, msgDeleteUsage)
	case err != nil:
		b.logger.Error("delete ingredient failed", "error", err)
		b.sendMessage(chatID, msgInternalError)
	default:
		b.sendMessage(chatID, fmt.Sprintf("🗑 Удалено записей: %d", n))
	}
}

// dropSession отменяет незавершённую сессию пользователя и возвращает его в меню.
func (b *Bot) dropSession(ctx context.Context, user *entity.User) {
	if user.SessionID != "" {
		if _, err := b.scans.Cancel(user.SessionID); err != nil && !errors.Is(err, app.ErrSessionNotFound) {
			// Сессия уже завершена, её нужно просто освободить
			_ = b.scans.Release(user.SessionID)
		}
	}
	b.endScan(ctx, user)
}

// finishSession освобождает завершённую сессию.
func (b *Bot) finishSession(ctx context.Context, user *entity.User) {
	if err := b.scans.Release(user.SessionID); err != nil && !errors.Is(err, app.ErrSessionNotFound) {
		b.logger.Warn("release session failed", "session", user.SessionID, "error", err)
	}
	b.endScan(ctx, user)
}

func (b *Bot) endScan(ctx context.Context, user *entity.User) {
	updated, err := b.users.EndScan(ctx, user.ID, user.ChatID)
	if err != nil {
		b.logger.Error("end scan failed", "user", user.ID, "error", err)
		return
	}
	*user = *updated
}

// cancelActive отменяет все открытые сессии при остановке бота.
func (b *Bot) cancelActive(ctx context.Context) {
	users, err := b.users.Scanning(ctx)
	if err != nil {
		b.logger.Error("list scanning users failed", "error", err)
		return
	}
	for _, u := range users {
		b.dropSession(ctx, u)
		b.sendMessage(u.ChatID, msgStopping)
	}
	if len(users) > 0 {
		b.logger.Info("active sessions cancelled", "count", len(users))
	}
}

// imageFileID возвращает файл изображения: самое большое фото или документ image/*.
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if b.maxBytes > 0 && int64(file.FileSize) > b.maxBytes {
		return nil, fmt.Errorf("file is %d bytes: %w", file.FileSize, entity.ErrImageTooLarge)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if b.maxBytes > 0 {
		// Лишний байт нужен, чтобы классификатор увидел превышение предела
		reader = io.LimitReader(resp.Body, b.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// reply правит сообщение с кнопками или отправляет новое.
func (b *Bot) reply(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		b.edit(chatID, messageID, text, markup)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.send(msg)
}

func (b *Bot) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if markup != nil {
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup))
		return
	}
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn("answer callback failed", "error", err)
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.out.Send(c); err != nil {
		b.logger.Error("send message failed", "error", err)
	}
}
