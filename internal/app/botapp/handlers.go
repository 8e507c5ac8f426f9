package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/commie294/T4t/internal/domain/enums"
	"github.com/commie294/T4t/internal/domain/model"
	"github.com/commie294/T4t/internal/domain/rules"
	tginfra "github.com/commie294/T4t/internal/infra/telegram"
	dialogsvc "github.com/commie294/T4t/internal/services/dialog"
	discoverysvc "github.com/commie294/T4t/internal/services/discovery"
	interactionsvc "github.com/commie294/T4t/internal/services/interactions"
	modsvc "github.com/commie294/T4t/internal/services/moderation"
	profilesvc "github.com/commie294/T4t/internal/services/profiles"
)

const welcomeText = `Добро пожаловать в T4t Meet — бот знакомств для транс-людей.

Правила:
1. Уважайте друг друга.
2. Оскорбления, травля и дискриминация запрещены.
3. На нарушителей можно пожаловаться, жалобы рассматривают модераторы.

Команды:
/register — создать анкету
/browse — смотреть анкеты
/matches — ваши мэтчи
/profile — моя анкета
/edit_profile — изменить анкету
/cancel — отменить текущее действие`

const (
	registerHint    = "Сначала зарегистрируйтесь: отправьте /register."
	busyDialogueMsg = "Сначала завершите текущее действие или отправьте /cancel."
	blockedMsg      = "Ваша анкета заблокирована за нарушение правил сервиса."
	noCandidatesMsg = "Анкеты закончились. Загляните позже!"
	cancelledMsg    = "Действие отменено."
	unknownTextMsg  = "Отправьте /start, чтобы увидеть список команд."
)

var commandKeyboard = []string{"/register", "/browse", "/matches", "/profile", "/edit_profile"}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.bot.SendTextWithReplyKeyboard(ctx, update.ChatID, welcomeText, commandKeyboard)
	case "register":
		return a.beginDialogue(ctx, update.ChatID, dialogsvc.KindRegistration, update.UserID, map[string]string{
			dialogsvc.KeyUsername: update.Username,
		})
	case "browse":
		return a.sendNextCandidate(ctx, update.ChatID, update.UserID, parseCityMode(update.Args))
	case "matches":
		return a.sendMatches(ctx, update.ChatID, update.UserID)
	case "profile":
		return a.sendOwnProfile(ctx, update.ChatID, update.UserID)
	case "edit_profile":
		return a.beginEditDialogue(ctx, update.ChatID, update.UserID)
	case "cancel":
		if err := a.dialogs.Cancel(ctx, update.UserID); err != nil {
			return err
		}
		return a.bot.SendText(ctx, update.ChatID, cancelledMsg)
	case "queue":
		return a.sendReportQueue(ctx, update.ChatID)
	default:
		return nil
	}
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}
	return a.advanceDialogue(ctx, update.ChatID, update.UserID, dialogsvc.Input{Text: update.Text}, true)
}

func (a *App) handlePhoto(ctx context.Context, update tginfra.PhotoUpdate) error {
	if a.bot == nil {
		return nil
	}
	return a.advanceDialogue(ctx, update.ChatID, update.UserID, dialogsvc.Input{PhotoFileID: update.FileID}, false)
}

func (a *App) advanceDialogue(ctx context.Context, chatID, userID int64, in dialogsvc.Input, hintWhenIdle bool) error {
	res, err := a.dialogs.Advance(ctx, userID, in)
	if err != nil {
		if errors.Is(err, dialogsvc.ErrNoDialogue) {
			if hintWhenIdle {
				return a.bot.SendText(ctx, chatID, unknownTextMsg)
			}
			return nil
		}
		a.logger.Error("advance dialogue failed", zap.Int64("user_id", userID), zap.Error(err))
		return a.bot.SendText(ctx, chatID, "Что-то пошло не так, попробуйте ещё раз.")
	}
	return a.sendPrompt(ctx, chatID, res.Prompt)
}

func (a *App) beginDialogue(ctx context.Context, chatID int64, kind dialogsvc.Kind, userID int64, seed map[string]string) error {
	prompt, err := a.dialogs.Begin(ctx, userID, kind, seed)
	if err != nil {
		if errors.Is(err, dialogsvc.ErrAlreadyInDialogue) {
			return a.bot.SendText(ctx, chatID, busyDialogueMsg)
		}
		return err
	}
	return a.sendPrompt(ctx, chatID, prompt)
}

func (a *App) beginEditDialogue(ctx context.Context, chatID, userID int64) error {
	profile, err := a.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrNotRegistered) {
			return a.bot.SendText(ctx, chatID, registerHint)
		}
		return err
	}

	return a.beginDialogue(ctx, chatID, dialogsvc.KindEditProfile, userID, map[string]string{
		dialogsvc.KeyIsAdult: strconv.FormatBool(profile.IsAdult),
	})
}

func (a *App) sendPrompt(ctx context.Context, chatID int64, prompt dialogsvc.Prompt) error {
	if prompt.Text == "" {
		return nil
	}
	return a.bot.SendTextWithReplyKeyboard(ctx, chatID, prompt.Text, prompt.Options)
}

func (a *App) sendNextCandidate(ctx context.Context, chatID, userID int64, mode enums.CityMode) error {
	candidate, err := a.discovery.NextCandidate(ctx, userID, mode)
	if err != nil {
		switch {
		case errors.Is(err, discoverysvc.ErrNotRegistered):
			return a.bot.SendText(ctx, chatID, registerHint)
		case errors.Is(err, discoverysvc.ErrBlocked):
			return a.bot.SendText(ctx, chatID, blockedMsg)
		case errors.Is(err, discoverysvc.ErrNoCandidates):
			return a.bot.SendText(ctx, chatID, noCandidatesMsg)
		}
		return err
	}

	id := strconv.FormatInt(candidate.UserID, 10)
	buttons := []tginfra.Button{
		{Label: "❤️", Data: "like:" + id + ":" + string(mode)},
		{Label: "➡️", Data: "next:" + string(mode)},
		{Label: "⚠️", Data: "report:" + id},
	}
	return a.bot.SendPhoto(ctx, chatID, candidate.PhotoFileID, profileCaption(candidate), buttons)
}

func (a *App) sendOwnProfile(ctx context.Context, chatID, userID int64) error {
	profile, err := a.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrNotRegistered) {
			return a.bot.SendText(ctx, chatID, registerHint)
		}
		return err
	}
	return a.bot.SendPhoto(ctx, chatID, profile.PhotoFileID, profileCaption(profile), nil)
}

func (a *App) sendMatches(ctx context.Context, chatID, userID int64) error {
	matches, err := a.interactions.ListMatches(ctx, userID, 50)
	if err != nil {
		if errors.Is(err, interactionsvc.ErrNotRegistered) {
			return a.bot.SendText(ctx, chatID, registerHint)
		}
		return err
	}
	if len(matches) == 0 {
		return a.bot.SendText(ctx, chatID, "У вас пока нет мэтчей. Отправьте /browse, чтобы смотреть анкеты.")
	}

	for _, match := range matches {
		text := fmt.Sprintf("💜 %s, %d", match.DisplayName, match.Age)
		if match.City != "" {
			text += ", " + match.City
		}
		buttons := []tginfra.Button{
			{Label: "Начать чат", Data: "chat:" + strconv.FormatInt(match.CounterpartID, 10)},
		}
		if err := a.bot.SendTextWithButtons(ctx, chatID, text, buttons); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) sendReportQueue(ctx context.Context, chatID int64) error {
	if chatID != a.cfg.Bot.AdminChatID {
		return nil
	}

	reports, err := a.moderation.ListOpenReports(ctx, 10)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return a.bot.SendText(ctx, chatID, "Очередь жалоб пуста.")
	}

	for _, report := range reports {
		text := fmt.Sprintf("Жалоба #%d\nОт пользователя ID %d на пользователя ID %d.\nПричина: %s",
			report.ID, report.ReporterUserID, report.TargetUserID, reportReasonText(report))
		if report.EvidenceKey != "" {
			text += "\nДоказательство: " + report.EvidenceKey
		}
		if err := a.bot.SendReportQueue(ctx, chatID, text, report.ID); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if a.bot == nil {
		return nil
	}

	data := strings.TrimSpace(update.Data)
	action, payload, _ := strings.Cut(data, ":")

	switch action {
	case "like":
		return a.handleLikeCallback(ctx, update, payload)
	case "next":
		if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
			return err
		}
		return a.sendNextCandidate(ctx, update.ChatID, update.UserID, enums.CityMode(payload))
	case "report":
		return a.handleReportCallback(ctx, update, payload)
	case "chat":
		return a.handleChatCallback(ctx, update, payload)
	case "mod":
		return a.handleDecisionCallback(ctx, update, payload)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}
}

func (a *App) handleLikeCallback(ctx context.Context, update tginfra.CallbackUpdate, payload string) error {
	targetID, mode, err := parseLikePayload(payload)
	if err != nil {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}

	matched, err := a.interactions.Like(ctx, update.UserID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, interactionsvc.ErrAlreadyLiked):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Вы уже лайкали эту анкету.")
		case errors.Is(err, interactionsvc.ErrBlocked):
			return a.bot.AnswerCallback(ctx, update.CallbackID, blockedMsg)
		case errors.Is(err, interactionsvc.ErrTargetBlocked):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Анкета больше не доступна.")
		case errors.Is(err, interactionsvc.ErrNotRegistered):
			return a.bot.AnswerCallback(ctx, update.CallbackID, registerHint)
		}
		return err
	}

	answer := "Лайк отправлен!"
	if matched {
		answer = "Мэтч! 💜"
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, answer); err != nil {
		return err
	}
	return a.sendNextCandidate(ctx, update.ChatID, update.UserID, mode)
}

// parseLikePayload splits "targetID:cityMode". The mode keeps the browse
// session's city filter alive across the like button.
func parseLikePayload(payload string) (int64, enums.CityMode, error) {
	rawID, rawMode, _ := strings.Cut(payload, ":")
	targetID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || targetID <= 0 {
		return 0, enums.CityModeAny, fmt.Errorf("invalid like payload %q", payload)
	}

	mode := enums.CityMode(rawMode)
	switch mode {
	case enums.CityModeSame, enums.CityModeOther:
		return targetID, mode, nil
	default:
		return targetID, enums.CityModeAny, nil
	}
}

func (a *App) handleReportCallback(ctx context.Context, update tginfra.CallbackUpdate, payload string) error {
	targetID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || targetID <= 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		return err
	}
	return a.beginDialogue(ctx, update.ChatID, dialogsvc.KindReport, update.UserID, map[string]string{
		dialogsvc.KeyReportedID: payload,
	})
}

func (a *App) handleChatCallback(ctx context.Context, update tginfra.CallbackUpdate, payload string) error {
	counterpartID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || counterpartID <= 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}

	counterpart, err := a.profiles.Get(ctx, counterpartID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrNotRegistered) {
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Анкета больше не доступна.")
		}
		return err
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		return err
	}

	if counterpart.Username == "" {
		return a.bot.SendText(ctx, update.ChatID, "У пользователя нет username в Telegram, напишите ему после того, как он появится в сети.")
	}
	text := fmt.Sprintf("Вы выбрали пользователя @%s. Найдите его в Telegram и начните чат!", counterpart.Username)
	return a.bot.SendText(ctx, update.ChatID, text)
}

func (a *App) handleDecisionCallback(ctx context.Context, update tginfra.CallbackUpdate, payload string) error {
	action, rawID, ok := strings.Cut(payload, ":")
	if !ok {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}
	reportID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || reportID <= 0 {
		return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
	}

	decision := enums.ReportDecision(action)

	report, err := a.moderation.Decide(ctx, update.ChatID, reportID, decision)
	if err != nil {
		switch {
		case errors.Is(err, modsvc.ErrUnauthorized):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Недостаточно прав.")
		case errors.Is(err, modsvc.ErrAlreadyDecided):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Жалоба уже рассмотрена.")
		case errors.Is(err, modsvc.ErrReportNotFound):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Жалоба не найдена.")
		case errors.Is(err, modsvc.ErrValidation):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Неизвестное действие")
		}
		return err
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, "Решение принято."); err != nil {
		return err
	}
	return a.bot.SendText(ctx, update.ChatID, fmt.Sprintf("Жалоба #%d закрыта: %s.", report.ID, decisionText(report.Decision)))
}

func parseCityMode(args string) enums.CityMode {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "город", "same":
		return enums.CityModeSame
	case "другой", "other":
		return enums.CityModeOther
	default:
		return enums.CityModeAny
	}
}

func profileCaption(p model.Profile) string {
	gender := rules.GenderLabel(p.Gender)
	if p.Gender == enums.GenderOther && p.GenderDetail != "" {
		gender = p.GenderDetail
	}
	city := p.City
	if city == "" {
		city = "Не указан"
	}

	return fmt.Sprintf("Имя: %s\nВозраст: %d\nПол: %s\nГород: %s\nО себе: %s",
		p.DisplayName, p.Age, gender, city, p.Bio)
}

func reportReasonText(report model.Report) string {
	if report.Details != "" {
		return report.Details
	}
	return string(report.Reason)
}

func decisionText(decision enums.ReportDecision) string {
	switch decision {
	case enums.ReportDecisionBlock:
		return "пользователь заблокирован"
	case enums.ReportDecisionWarn:
		return "вынесено предупреждение"
	default:
		return "отклонена"
	}
}
