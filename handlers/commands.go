// handlers/commands.go - Chat command dispatch
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"kandibot/fusionbrain"
	"kandibot/middleware"
	"kandibot/platform"
	"kandibot/services"

	"github.com/patrickmn/go-cache"
)

// CommandPrefix marks chat messages that address the bot.
const CommandPrefix = "!"

// promptCacheTTL bounds how long a user's last prompt stays available to
// the update command, keeping the cache from growing without limit.
const promptCacheTTL = 24 * time.Hour

// Bot wires the chat command surface to the services underneath. One Bot
// instance serves the whole process; every command runs on its own task.
type Bot struct {
	Notifier    platform.Notifier
	Roles       services.RoleManager
	Store       *services.RecordStore
	Catalog     *services.Catalog
	Progression *services.Progression
	Shop        *services.Shop
	Quizzes     *services.QuizRegistry
	Images      *fusionbrain.Client

	prompts *cache.Cache
}

var bot *Bot

// InitBot installs the process-wide bot instance used by the webhook and
// gateway handlers.
func InitBot(b *Bot) {
	b.prompts = cache.New(promptCacheTTL, 2*promptCacheTTL)
	bot = b
}

// HandleEvent routes one platform delivery. Free-text messages are offered
// to open quiz sessions; commands each get their own goroutine so a slow
// generation job never blocks the intake path.
func (b *Bot) HandleEvent(ev platform.Event) {
	switch ev.Type {
	case platform.EventMessage:
		b.Quizzes.HandleMessage(ev.AuthorID, ev.ChannelID, ev.Content)
	case platform.EventCommand:
		go b.runCommand(ev)
	}
}

// runCommand is the command boundary: every failure below it is reported
// back as a short diagnostic message and never crashes the process.
func (b *Bot) runCommand(ev platform.Event) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC handling command %q from %s: %v", ev.Content, ev.AuthorID, r)
			b.reply(ctx, ev.ChannelID, "Something went wrong. Please try again.")
		}
	}()

	content := strings.TrimSpace(ev.Content)
	if !strings.HasPrefix(content, CommandPrefix) {
		return
	}

	if !middleware.AllowCommand(ev.AuthorID) {
		b.reply(ctx, ev.ChannelID, "⏳ Slow down! Try again in a moment.")
		return
	}

	fields := strings.Fields(content)
	name := strings.ToLower(strings.TrimPrefix(fields[0], CommandPrefix))
	arg := strings.TrimSpace(strings.TrimPrefix(content, fields[0]))

	var err error
	switch name {
	case "start":
		err = b.cmdStart(ctx, ev)
	case "help":
		err = b.cmdHelp(ctx, ev)
	case "generate":
		err = b.cmdGenerate(ctx, ev, arg)
	case "update":
		err = b.cmdUpdate(ctx, ev)
	case "quiz":
		err = b.cmdQuiz(ctx, ev)
	case "points":
		err = b.cmdPoints(ctx, ev)
	case "shop":
		err = b.cmdShop(ctx, ev)
	case "buy":
		err = b.cmdBuy(ctx, ev, arg)
	case "achievements":
		err = b.cmdAchievements(ctx, ev)
	default:
		return
	}

	if err != nil {
		log.Printf("Command %s from %s failed: %v", name, ev.AuthorID, err)
		b.reply(ctx, ev.ChannelID, "Something went wrong. Please try again.")
	}
}

func (b *Bot) cmdStart(ctx context.Context, ev platform.Event) error {
	return b.Notifier.SendMessage(ctx, ev.ChannelID,
		"Hello! I generate AI images and run a quiz with a points shop. Use `!help` to see the commands.")
}

func (b *Bot) cmdHelp(ctx context.Context, ev platform.Event) error {
	help := strings.Join([]string{
		"**Available commands:**",
		"`!generate <prompt>` - Create an image from a description",
		"`!update` - Regenerate an image from your last prompt",
		"`!quiz` - Start a quiz question",
		fmt.Sprintf("`!points` - Show your points (%d per correct answer)", services.CorrectAnswerReward),
		"`!shop` - List the shop items",
		"`!buy <item_key>` - Buy an item from the shop",
		"`!achievements` - Show your achievements",
	}, "\n")
	return b.Notifier.SendMessage(ctx, ev.ChannelID, help)
}

func (b *Bot) cmdGenerate(ctx context.Context, ev platform.Event, prompt string) error {
	if prompt == "" {
		return b.Notifier.SendMessage(ctx, ev.ChannelID, "Usage: `!generate <prompt>`")
	}
	b.prompts.Set(ev.AuthorID, prompt, cache.DefaultExpiration)
	return b.generate(ctx, ev, prompt)
}

func (b *Bot) cmdUpdate(ctx context.Context, ev platform.Event) error {
	cached, ok := b.prompts.Get(ev.AuthorID)
	if !ok {
		return b.Notifier.SendMessage(ctx, ev.ChannelID,
			"⚠️ You haven't generated an image yet. Use `!generate` first.")
	}
	prompt := cached.(string)
	if err := b.Notifier.SendMessage(ctx, ev.ChannelID,
		fmt.Sprintf("🔁 Regenerating image from prompt: `%s`", prompt)); err != nil {
		return err
	}
	return b.generate(ctx, ev, prompt)
}

// generate runs the full submit-and-poll cycle and delivers the resulting
// images as file attachments. A job that times out or fails upstream is
// reported as "no image", the same as an empty result.
func (b *Bot) generate(ctx context.Context, ev platform.Event, prompt string) error {
	if err := b.Notifier.SendMessage(ctx, ev.ChannelID, "🖌️ Generating image..."); err != nil {
		return err
	}

	job, err := b.Images.Generate(ctx, prompt)
	if err != nil {
		var upstream *fusionbrain.UpstreamError
		if errors.As(err, &upstream) {
			log.Printf("Generation failed for %s: %v", ev.AuthorID, upstream)
			return b.Notifier.SendMessage(ctx, ev.ChannelID, "❌ Failed to generate the image.")
		}
		return err
	}

	if job.Status != fusionbrain.StatusDone || len(job.Payloads) == 0 {
		return b.Notifier.SendMessage(ctx, ev.ChannelID, "❌ Failed to generate the image.")
	}

	for i, payload := range job.Payloads {
		filename := fmt.Sprintf("image_%d.png", i+1)
		if err := b.Notifier.SendFile(ctx, ev.ChannelID, filename, payload); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) cmdQuiz(ctx context.Context, ev platform.Event) error {
	session, err := b.Quizzes.Start(ev.AuthorID, ev.ChannelID)
	if err != nil {
		if errors.Is(err, services.ErrQuizActive) {
			return b.Notifier.SendMessage(ctx, ev.ChannelID, "You already have a quiz running!")
		}
		return err
	}

	q := session.Question
	text := fmt.Sprintf("🧠 %s\n%s\n\n*Type A/B/C/D to answer (%d seconds)*",
		q.Text, strings.Join(q.Options, "\n"), int(services.DefaultAnswerTimeout.Seconds()))
	if err := b.Notifier.SendMessage(ctx, ev.ChannelID, text); err != nil {
		return err
	}

	outcome, unlocked, err := session.AwaitAnswer(services.DefaultAnswerTimeout)
	if err != nil {
		return err
	}

	switch outcome {
	case services.OutcomeCorrect:
		if err := b.Notifier.SendMessage(ctx, ev.ChannelID,
			fmt.Sprintf("✅ Correct! +%d points!", services.CorrectAnswerReward)); err != nil {
			return err
		}
		return b.announceUnlocks(ctx, ev, unlocked)
	case services.OutcomeIncorrect:
		return b.Notifier.SendMessage(ctx, ev.ChannelID,
			fmt.Sprintf("❌ Wrong! The correct answer was: %s", q.Answer))
	default:
		return b.Notifier.SendMessage(ctx, ev.ChannelID,
			fmt.Sprintf("⌛ Time's up! The correct answer was: %s", q.Answer))
	}
}

func (b *Bot) cmdPoints(ctx context.Context, ev platform.Event) error {
	rec, err := b.Store.Get(ev.AuthorID)
	if err != nil {
		return err
	}
	return b.Notifier.SendMessage(ctx, ev.ChannelID,
		fmt.Sprintf("<@%s>, you have **%d** points.", ev.AuthorID, rec.Points))
}

func (b *Bot) cmdShop(ctx context.Context, ev platform.Event) error {
	rec, err := b.Store.Get(ev.AuthorID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🛍️ **Shop** — your points: **%d**\n", rec.Points)
	for _, item := range b.Shop.Items() {
		fmt.Fprintf(&sb, "\n**%s — %s**\nPrice: %d points", item.Key, item.DisplayName, item.Price)
		if item.Role != "" {
			fmt.Fprintf(&sb, "\nGrants role: %s", item.Role)
		}
		sb.WriteString("\n")
	}
	return b.Notifier.SendMessage(ctx, ev.ChannelID, sb.String())
}

func (b *Bot) cmdBuy(ctx context.Context, ev platform.Event, itemKey string) error {
	if itemKey == "" {
		return b.Notifier.SendMessage(ctx, ev.ChannelID,
			"Usage: `!buy <item_key>` — see `!shop` for the list.")
	}

	receipt, err := b.Shop.Purchase(ctx, ev.AuthorID, ev.ChannelID, itemKey)
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return b.Notifier.SendMessage(ctx, ev.ChannelID, "❌ That item is not in the shop.")
	case errors.Is(err, services.ErrInsufficientFunds):
		rec, recErr := b.Store.Get(ev.AuthorID)
		if recErr != nil {
			return recErr
		}
		return b.Notifier.SendMessage(ctx, ev.ChannelID,
			fmt.Sprintf("💸 Not enough points. You have %d.", rec.Points))
	case errors.Is(err, services.ErrRoleUnavailable):
		return b.Notifier.SendMessage(ctx, ev.ChannelID,
			"⚠️ That role does not exist on this server. Purchase cancelled.")
	case err != nil:
		return err
	}

	msg := fmt.Sprintf("✅ <@%s> bought **%s** for %d points! Points left: %d",
		ev.AuthorID, receipt.Item.DisplayName, receipt.Item.Price, receipt.RemainingPoints)
	if err := b.Notifier.SendMessage(ctx, ev.ChannelID, msg); err != nil {
		return err
	}

	if receipt.RoleWarning != "" {
		if err := b.Notifier.SendMessage(ctx, ev.ChannelID,
			"🚫 I couldn't grant the role. Ask an admin to check my permissions and role order."); err != nil {
			return err
		}
	}

	return b.announceUnlocks(ctx, ev, receipt.NewAchievements)
}

func (b *Bot) cmdAchievements(ctx context.Context, ev platform.Event) error {
	rec, err := b.Store.Get(ev.AuthorID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("🎖️ **Your achievements**\n")
	for _, def := range b.Catalog.All() {
		status := "❌"
		if rec.Unlocked(def.Key) {
			status = "✅"
		}
		fmt.Fprintf(&sb, "\n%s **%s**\n%s\n", status, def.DisplayName, def.Description)
	}
	return b.Notifier.SendMessage(ctx, ev.ChannelID, sb.String())
}

func (b *Bot) announceUnlocks(ctx context.Context, ev platform.Event, unlocked []string) error {
	for _, name := range unlocked {
		msg := fmt.Sprintf("🏆 <@%s> unlocked the achievement: **%s**!", ev.AuthorID, name)
		if err := b.Notifier.SendMessage(ctx, ev.ChannelID, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, channelID, content string) {
	if err := b.Notifier.SendMessage(ctx, channelID, content); err != nil {
		log.Printf("Failed to send reply to channel %s: %v", channelID, err)
	}
}
