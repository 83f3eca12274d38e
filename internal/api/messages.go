package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pantry-bot/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я помогаю вести список продуктов на кухне.

📸 Сфотографируйте продукты, я распознаю их и предложу добавить новые в инвентарь.

📋 Команды:
/scan — начать сканирование
/inventory — что уже есть
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте /scan
2️⃣ Пришлите фото продуктов (можно файлом)
3️⃣ Уберите ложные срабатывания кнопками ❌
4️⃣ Нажмите «Подтвердить», и новые продукты попадут в инвентарь

📋 Команды:
/scan — начать сканирование
/confirm — записать новые продукты
/cancel — отменить сканирование
/inventory — показать инвентарь
/add <название> — добавить продукт вручную
/delete <название> — удалить продукт`

	msgAwaitingPhoto   = "📸 Пришлите фото продуктов."
	msgSendScanFirst   = "📸 Чтобы распознать продукты, сначала отправьте /scan."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Распознаю продукты..."
	msgBusy            = "⏳ Ещё обрабатываю предыдущий шаг, подождите."
	msgCancelled       = "❌ Сканирование отменено. Отправьте /scan, чтобы начать заново."
	msgNothingToCancel = "Нет активного сканирования."
	msgNoSession       = "Сканирование уже завершено. Отправьте /scan, чтобы начать заново."
	msgNotReviewing    = "Сейчас нечего подтверждать."
	msgAlreadyScanned  = "Фото уже распознано. Подтвердите результат или начните заново: /scan"
	msgNotAnImage      = "⚠️ Этот файл не похож на изображение."
	msgDownloadError   = "⚠️ Не удалось скачать изображение. Попробуйте ещё раз."
	msgInternalError   = "⚠️ Что-то пошло не так. Попробуйте позже."
	msgInventoryEmpty  = "📦 Инвентарь пуст."
	msgAddUsage        = "Использование: /add <название>"
	msgDeleteUsage     = "Использование: /delete <название>"
	msgStopping        = "🔌 Бот перезапускается, сканирование отменено. Отправьте /scan позже."
)

// Действия inline-кнопок
const (
	actionRemove  = "rm"
	actionConfirm = "ok"
	actionCancel  = "cancel"
	actionRetry   = "retry"
	actionAccept  = "accept"
)

var errBadCallback = errors.New("malformed callback data")

// callbackData кодирует действие кнопки вместе с сессией, к которой относится сообщение.
// Для удаления добавляется индекс метки в ScanSession.Labels: этот список не меняется после сверки.
// Идентификатор сессии (UUID, 36 символов) укладывается в 64 байта данных кнопки.
func callbackData(action, sessionID string, index int) string {
	if action == actionRemove {
		return action + ":" + sessionID + ":" + strconv.Itoa(index)
	}
	return action + ":" + sessionID
}

// parseCallback разбирает данные кнопки.
func parseCallback(data string) (action, sessionID string, index int, err error) {
	action, rest, ok := strings.Cut(data, ":")
	if !ok {
		return "", "", 0, errBadCallback
	}
	switch action {
	case actionConfirm, actionCancel, actionRetry, actionAccept:
		if rest == "" || strings.Contains(rest, ":") {
			return "", "", 0, errBadCallback
		}
		return action, rest, 0, nil
	case actionRemove:
		sid, arg, ok := strings.Cut(rest, ":")
		if !ok || sid == "" {
			return "", "", 0, errBadCallback
		}
		index, err = strconv.Atoi(arg)
		if err != nil || index < 0 {
			return "", "", 0, errBadCallback
		}
		return action, sid, index, nil
	default:
		return "", "", 0, errBadCallback
	}
}

// reviewText собирает сообщение с результатом сверки.
func reviewText(s entity.ScanSession) string {
	var b strings.Builder
	b.WriteString("🔎 Результат распознавания\n")

	if len(s.Labels) == 0 {
		b.WriteString("\nНичего не распознано с достаточной уверенностью.")
		return b.String()
	}

	if len(s.New) > 0 {
		b.WriteString("\n🆕 Новые:\n")
		for _, l := range s.New {
			fmt.Fprintf(&b, "• %s\n", l)
		}
	}
	if len(s.Existing) > 0 {
		b.WriteString("\n📦 Уже в инвентаре:\n")
		for _, l := range s.Existing {
			fmt.Fprintf(&b, "• %s\n", l)
		}
	}

	if len(s.New) > 0 {
		b.WriteString("\nУберите лишнее кнопками ❌ и нажмите «Подтвердить».")
	} else {
		b.WriteString("\nДобавлять нечего. Нажмите «Подтвердить», чтобы завершить.")
	}
	return b.String()
}

// reviewKeyboard строит кнопки удаления новых меток, подтверждения и отмены.
func reviewKeyboard(s entity.ScanSession) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, l := range s.Labels {
		if !s.New.Contains(l) {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ "+l, callbackData(actionRemove, s.ID, i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", callbackData(actionConfirm, s.ID, 0)),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Отмена", callbackData(actionCancel, s.ID, 0)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// commitFailureKeyboard предлагает повторить запись или принять частичный результат.
func commitFailureKeyboard(sessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Повторить", callbackData(actionRetry, sessionID, 0)),
			tgbotapi.NewInlineKeyboardButtonData("👌 Оставить как есть", callbackData(actionAccept, sessionID, 0)),
		),
	)
}

// doneText сообщает итог успешной записи.
func doneText(s entity.ScanSession) string {
	if s.Result == nil || len(s.Result.Succeeded) == 0 {
		return "✅ Готово. Новых продуктов не добавлено."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Добавлено в инвентарь: %d\n", len(s.Result.Succeeded))
	for _, l := range s.Result.Succeeded {
		fmt.Fprintf(&b, "• %s\n", l)
	}
	return strings.TrimRight(b.String(), "\n")
}

// failureText описывает ошибку сессии.
func failureText(s entity.ScanSession) string {
	if s.Err == nil {
		return msgInternalError
	}

	switch s.Err.Kind {
	case entity.KindNetwork:
		return "⚠️ Сервис распознавания недоступен. Попробуйте позже: /scan"
	case entity.KindInvalidResponse:
		return "⚠️ Сервис распознавания вернул некорректный ответ. Попробуйте позже: /scan"
	case entity.KindInvalidImage:
		return "⚠️ Изображение не подходит: пустое или слишком большое. Пришлите другое фото через /scan"
	case entity.KindQueryFailed:
		if s.Err.Label != "" {
			return fmt.Sprintf("⚠️ Не удалось проверить инвентарь (%s). Попробуйте позже: /scan", s.Err.Label)
		}
		return "⚠️ Не удалось проверить инвентарь. Попробуйте позже: /scan"
	case entity.KindCommitFailed:
		var b strings.Builder
		if s.Result != nil && len(s.Result.Succeeded) > 0 {
			fmt.Fprintf(&b, "✅ Добавлено: %s\n", strings.Join(s.Result.Succeeded, ", "))
		}
		b.WriteString("⚠️ Не удалось записать: ")
		b.WriteString(strings.Join(failedLabels(s.Err.Failed), ", "))
		b.WriteString("\n\nПовторить запись или оставить как есть?")
		return b.String()
	default:
		return msgInternalError
	}
}

func failedLabels(failed map[string]entity.ErrorKind) []string {
	res := &entity.CommitResult{Failed: failed}
	return res.FailedLabels()
}

// inventoryText выводит список продуктов для /inventory.
func inventoryText(recs []entity.IngredientRecord) string {
	if len(recs) == 0 {
		return msgInventoryEmpty
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 В инвентаре: %d\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "• %s\n", r.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}
