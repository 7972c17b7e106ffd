package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/apperr"
	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
)

const (
	msgNotLinked = "This chat is not linked yet. Create a code in the web app and send /link &lt;code&gt;."
	msgNotFound  = "Task not found or already deleted."
)

// sender is the part of the Telegram API the bot writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	users     *repository.UserRepository
	tasks     *service.TaskService
	reminders *service.ReminderService
	now       func() time.Time

	// task ids in the order of the last /tasks listing, per chat
	lists map[int64][]string
	mu    sync.Mutex
}

func New(token string, users *repository.UserRepository, tasks *service.TaskService, reminders *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, users, tasks, reminders)
	b.api = api
	return b, nil
}

func newBot(out sender, users *repository.UserRepository, tasks *service.TaskService, reminders *service.ReminderService) *Bot {
	return &Bot{
		out:       out,
		users:     users,
		tasks:     tasks,
		reminders: reminders,
		now:       time.Now,
		lists:     make(map[int64][]string),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.dispatch(ctx, update)
	}

	return nil
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Printf("[error] handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("[error] handle message: %v", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only understand commands. Try /help.")
	}
	log.Printf("[info] command from %d: /%s %s", msg.Chat.ID, msg.Command(), msg.CommandArguments())
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "link":
		return b.handleLink(ctx, msg.Chat.ID, linkCodeArg(msg.CommandArguments()))
	case "unlink":
		return b.handleUnlink(ctx, msg.Chat.ID)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "tasks":
		return b.handleListTasks(ctx, msg.Chat.ID)
	case "done":
		return b.handleDone(ctx, msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg.Chat.ID)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /link &lt;code&gt;: link this chat to your account\n" +
	"• /tasks: show open tasks, complete or delete them with a tap\n" +
	"• /add &lt;title&gt; [every N]: add a task, optionally repeating every N days\n" +
	"• /done &lt;n&gt;: complete the n-th task of the last list\n" +
	"• /delete &lt;n&gt;: delete the n-th task of the last list\n" +
	"• /report: send the digest now\n" +
	"• /unlink: stop receiving digests here"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if code := linkCodeArg(msg.CommandArguments()); code != "" {
		return b.handleLink(ctx, msg.Chat.ID, code)
	}

	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(msg.Chat.ID, "👋 Hi! I mirror your task list and send a daily digest.\n\n"+msgNotLinked)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Welcome back, %s!\n\n%s", escape(displayName(*user)), helpText))
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, code string) error {
	if code == "" {
		return b.sendText(chatID, "Send the code from the web app: /link &lt;code&gt;")
	}
	user, err := b.users.LinkTelegram(ctx, code, chatID, b.now())
	if err != nil {
		if repository.IsNotFound(err) {
			return b.sendText(chatID, "That code is invalid or expired. Create a new one in the web app.")
		}
		return err
	}
	b.forgetList(chatID)
	log.Printf("[info] chat %d linked to user %s", chatID, user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Linked to %s. Send /tasks to see what is open.", escape(user.Email)))
}

func (b *Bot) handleUnlink(ctx context.Context, chatID int64) error {
	ok, err := b.users.Unlink(ctx, chatID)
	if err != nil {
		return err
	}
	b.forgetList(chatID)
	if !ok {
		return b.sendText(chatID, "This chat was not linked.")
	}
	return b.sendText(chatID, "Unlinked. You will not receive digests here anymore.")
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(chatID, msgNotLinked)
	}
	text, err := b.reminders.Digest(ctx, *user, b.now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not build the digest: %s", escape(err.Error())))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(chatID, msgNotLinked)
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.tasks.Open(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	b.rememberList(chatID, ids)

	if len(tasks) == 0 {
		return b.sendText(chatID, "Nothing open. Add tasks in the web app.")
	}

	now := b.now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	builder.WriteString("Tap ✅ to mark a task as done or 🗑 to delete it.\n\n")
	for i, task := range tasks {
		builder.WriteString(service.FormatTaskLine(i+1, task, now))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = taskKeyboard(tasks)
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(chatID, msgNotLinked)
	}
	taskID, err := b.listedTask(chatID, "done", msg.CommandArguments())
	if err != nil || taskID == "" {
		return err
	}
	return b.completeTaskAndRefresh(ctx, chatID, user, taskID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(chatID, msgNotLinked)
	}
	taskID, err := b.listedTask(chatID, "delete", msg.CommandArguments())
	if err != nil || taskID == "" {
		return err
	}
	return b.askDeleteConfirmation(ctx, chatID, user, taskID)
}

// listedTask resolves a 1-based position in the chat's last listing. When
// the input is unusable it replies with a hint and returns an empty id.
func (b *Bot) listedTask(chatID int64, command, arg string) (string, error) {
	b.mu.Lock()
	ids := b.lists[chatID]
	b.mu.Unlock()
	if len(ids) == 0 {
		return "", b.sendText(chatID, fmt.Sprintf("Send /tasks first, then /%s &lt;n&gt; with a number from the list.", command))
	}

	idx, ok := parseIndex(arg, len(ids))
	if !ok {
		return "", b.sendText(chatID, fmt.Sprintf("Pick a number between 1 and %d, for example /%s 1.", len(ids), command))
	}
	return ids[idx], nil
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(chatID, msgNotLinked)
	}

	title, frequency := parseAddArgs(msg.CommandArguments())
	if title == "" {
		return b.sendText(chatID, "Give the task a title, for example /add Water the plants every 3")
	}
	task, err := b.tasks.Create(ctx, user.ID, service.TaskInput{Title: title, RepetitionFrequency: frequency})
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not add the task: %s", escape(apperr.From(err).Message)))
	}

	info := fmt.Sprintf("➕ Added «%s».", escape(shortTitle(task.Title, 48)))
	if r := service.RepeatOf(*task); r.Type != model.RepeatNone {
		info = fmt.Sprintf("➕ Added «%s», repeating %s.", escape(shortTitle(task.Title, 48)), r.Describe())
	}
	log.Printf("[info] task created id=%s user=%s", task.ID, user.ID)
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[error] answer callback: %v", err)
	}

	action, taskID, ok := strings.Cut(cb.Data, ":")
	if !ok || taskID == "" {
		return nil
	}

	chatID := cb.Message.Chat.ID
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.sendText(chatID, msgNotLinked)
	}

	switch action + ":" {
	case cbCompletePrefix:
		return b.completeTaskAndRefresh(ctx, chatID, user, taskID)
	case cbDeletePrefix:
		return b.askDeleteConfirmation(ctx, chatID, user, taskID)
	case cbConfirmPrefix:
		return b.deleteTaskAndRefresh(ctx, chatID, user, taskID)
	case cbCancelPrefix:
		return b.sendText(chatID, "↩️ Kept.")
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, user *model.User, taskID string) error {
	task, err := b.tasks.Get(ctx, user.ID, taskID)
	if err != nil {
		if isNotFound(err) {
			return b.sendText(chatID, msgNotFound)
		}
		return err
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete «%s»? Its tracked sessions go too.", escape(shortTitle(task.Title, 48))))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = confirmKeyboard(task.ID)
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, user *model.User, taskID string) error {
	task, err := b.tasks.Get(ctx, user.ID, taskID)
	if err == nil {
		err = b.tasks.Delete(ctx, user.ID, taskID)
	}
	if err != nil {
		if isNotFound(err) {
			return b.sendText(chatID, msgNotFound)
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task deleted id=%s user=%s", task.ID, user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 «%s» deleted.", escape(shortTitle(task.Title, 48)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, user *model.User, taskID string) error {
	task, err := b.tasks.Get(ctx, user.ID, taskID)
	if err != nil {
		if isNotFound(err) {
			return b.sendText(chatID, msgNotFound)
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if task.Completed {
		return b.sendText(chatID, fmt.Sprintf("«%s» is already done.", escape(shortTitle(task.Title, 48))))
	}

	task, err = b.tasks.Complete(ctx, user.ID, taskID)
	if err != nil {
		if isNotFound(err) {
			return b.sendText(chatID, msgNotFound)
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	info := fmt.Sprintf("✅ «%s» is done.", escape(shortTitle(task.Title, 48)))
	if r := service.RepeatOf(*task); r.Type != model.RepeatNone {
		info = fmt.Sprintf("♻️ «%s» is done and comes back %s.", escape(shortTitle(task.Title, 48)), r.Describe())
	}
	log.Printf("[info] task completed id=%s user=%s", task.ID, user.ID)
	if err := b.sendText(chatID, info); err != nil {
		return err
	}

	return b.sendTaskList(ctx, chatID, user)
}

// SendDigests delivers the digest to every linked chat.
func (b *Bot) SendDigests(ctx context.Context) error {
	users, err := b.users.ListLinked(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramChatID == nil {
			continue
		}
		text, err := b.reminders.Digest(ctx, user, now)
		if err != nil {
			log.Printf("[error] build digest for user %s: %v", user.ID, err)
			continue
		}
		if err := b.sendText(*user.TelegramChatID, text); err != nil {
			log.Printf("[error] send digest to %d: %v", *user.TelegramChatID, err)
		}
	}
	return nil
}

// linkedUser returns nil without error when the chat has no account.
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*model.User, error) {
	user, err := b.users.FindByTelegramChatID(ctx, chatID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (b *Bot) rememberList(chatID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[chatID] = ids
}

func (b *Bot) forgetList(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lists, chatID)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(msg)
	return err
}

func taskKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for i, task := range tasks {
		label := fmt.Sprintf("✅ %d · %s", i+1, shortTitle(task.Title, 24))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbCompletePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbConfirmPrefix+taskID),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbCancelPrefix+taskID),
	))
}

// parseAddArgs splits /add arguments into a title and a repetition
// frequency taken from a trailing "every day", "every week", "every N" or
// "every N days".
func parseAddArgs(args string) (title, frequency string) {
	fields := strings.Fields(args)
	n := len(fields)
	word := func(i int) string { return strings.ToLower(fields[i]) }
	repeats := func(s string) bool { return service.NormalizeFrequency(s).Type != model.RepeatNone }

	switch {
	case n >= 3 && word(n-3) == "every" && repeats(fields[n-2]) && (word(n-1) == "days" || word(n-1) == "day"):
		return strings.Join(fields[:n-3], " "), fields[n-2]
	case n >= 2 && word(n-2) == "every":
		switch w := word(n - 1); {
		case w == "day":
			return strings.Join(fields[:n-2], " "), "1"
		case w == "week":
			return strings.Join(fields[:n-2], " "), "7"
		case repeats(w):
			return strings.Join(fields[:n-2], " "), w
		}
	}
	return strings.Join(fields, " "), ""
}

// parseIndex turns a 1-based list position into an index below n.
func parseIndex(arg string, n int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

// linkCodeArg extracts the code from command arguments. Codes are issued in upper case.
func linkCodeArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func displayName(u model.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func isNotFound(err error) bool {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Code == apperr.CodeNotFound
	}
	return repository.IsNotFound(err)
}

func escape(s string) string {
	return html.EscapeString(s)
}
