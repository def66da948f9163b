// Package bot is the Telegram companion surface: check today's lists, toggle
// tasks inline, and peek at level, missions and pets.
package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"habitpet/internal/core"
	"habitpet/internal/i18n"
	"habitpet/internal/inventory"
	"habitpet/internal/missions"
	"habitpet/internal/pets"

	tele "gopkg.in/telebot.v3"
)

// Bot represents the Telegram bot.
type Bot struct {
	bot        *tele.Bot
	service    *core.Service
	inv        *inventory.Inventory
	missions   *missions.Tracker
	translator *i18n.Translator

	mu    sync.Mutex
	langs map[int64]string
}

// NewBot creates a new Bot instance.
func NewBot(token string, service *core.Service, inv *inventory.Inventory, tracker *missions.Tracker, translator *i18n.Translator) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{
		bot:        b,
		service:    service,
		inv:        inv,
		missions:   tracker,
		translator: translator,
		langs:      make(map[int64]string),
	}

	bot.setupHandlers()
	return bot, nil
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Println("Telegram bot is now running...")
	b.bot.Start()
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) setupHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/today", b.handleToday)
	b.bot.Handle("/level", b.handleLevel)
	b.bot.Handle("/missions", b.handleMissions)
	b.bot.Handle("/pets", b.handlePets)
	b.bot.Handle("/switch_language", b.handleSwitchLanguage)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

func normalizeLang(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "pt") {
		return "pt"
	}
	return "en"
}

// lang resolves the chat language: explicit choice first, then the Telegram
// client language.
func (b *Bot) lang(c tele.Context) string {
	if c != nil && c.Sender() != nil {
		b.mu.Lock()
		chosen := b.langs[c.Sender().ID]
		b.mu.Unlock()
		if chosen != "" {
			return chosen
		}
		if c.Sender().LanguageCode != "" {
			return normalizeLang(c.Sender().LanguageCode)
		}
	}
	return "en"
}

func (b *Bot) t(lang, key string) string {
	if b.translator == nil {
		return key
	}
	return b.translator.T(lang, key)
}

func (b *Bot) handleStart(c tele.Context) error {
	lang := b.lang(c)
	name := c.Sender().Username
	if name == "" {
		name = c.Sender().FirstName
	}
	return c.Send(fmt.Sprintf(b.t(lang, "bot.start"), name))
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(b.t(b.lang(c), "bot.help"))
}

// handleToday lists today's active lists with one inline button per open
// task; tapping a button toggles it.
func (b *Bot) handleToday(c tele.Context) error {
	lang := b.lang(c)
	today := b.service.Today()

	var msg strings.Builder
	var rows [][]tele.InlineButton
	b.service.Read(func(st *core.State) {
		p := st.CurrentPage()
		if p == nil {
			return
		}
		msg.WriteString(fmt.Sprintf(b.t(lang, "bot.today.header"), p.Title))
		msg.WriteString("\n")
		for _, l := range core.ListsFor(p, core.ViewActive, today) {
			msg.WriteString(fmt.Sprintf("\n%s (%d%%)\n", l.Title, core.ListProgress(l)))
			for _, t := range l.CurrentCycleTasks() {
				mark := "⬜"
				if t.Done {
					mark = "✅"
				}
				msg.WriteString(fmt.Sprintf("%s %s\n", mark, t.Text))
				if !t.Done {
					rows = append(rows, []tele.InlineButton{{
						Text: "☑️ " + t.Text,
						Data: fmt.Sprintf("toggle:%s:%s", l.ID, t.ID),
					}})
				}
			}
			if l.AllDone() && !l.Completed {
				rows = append(rows, []tele.InlineButton{{
					Text: b.t(lang, "bot.today.confirm"),
					Data: "confirm:" + l.ID,
				}})
			}
		}
	})

	if msg.Len() == 0 {
		return c.Send(b.t(lang, "bot.today.empty"))
	}
	return c.Send(msg.String(), &tele.ReplyMarkup{InlineKeyboard: rows})
}

func (b *Bot) handleLevel(c tele.Context) error {
	lang := b.lang(c)
	info := b.service.Level()
	return c.Send(fmt.Sprintf(b.t(lang, "bot.level"),
		info.Level, b.service.TotalPoints(), info.XPIntoLevel, info.XPForNextLevel, info.PointsToNext))
}

func (b *Bot) handleMissions(c tele.Context) error {
	lang := b.lang(c)
	st := b.missions.Status()

	var msg strings.Builder
	msg.WriteString(b.t(lang, "bot.missions.header"))
	msg.WriteString("\n\n")
	msg.WriteString(fmt.Sprintf(b.t(lang, "bot.missions.tasks"), st.CombinedDone, st.CombinedTarget))
	msg.WriteString("\n")
	if st.DailyLogin {
		msg.WriteString(b.t(lang, "bot.missions.login.done"))
	} else {
		msg.WriteString(b.t(lang, "bot.missions.login.pending"))
	}
	switch {
	case st.Claimed:
		msg.WriteString("\n\n" + b.t(lang, "bot.missions.claimed"))
	case st.Claimable:
		msg.WriteString("\n\n" + b.t(lang, "bot.missions.claimable"))
	}
	return c.Send(msg.String())
}

func (b *Bot) handlePets(c tele.Context) error {
	lang := b.lang(c)

	var msg strings.Builder
	msg.WriteString(b.t(lang, "bot.pets.header"))
	msg.WriteString("\n\n")
	ownedCount := 0
	for _, p := range pets.Roster(b.inv) {
		if p.Owned {
			ownedCount++
			msg.WriteString(fmt.Sprintf("🐾 %s\n", p.Name))
		} else if p.Eggs > 0 {
			msg.WriteString(fmt.Sprintf("🥚 %s ×%d\n", p.Name, p.Eggs))
		}
	}
	if ownedCount == 0 {
		return c.Send(b.t(lang, "bot.pets.empty"))
	}
	msg.WriteString(fmt.Sprintf("\n"+b.t(lang, "bot.pets.total"), ownedCount, len(inventory.Pets)))
	return c.Send(msg.String())
}

func (b *Bot) handleSwitchLanguage(c tele.Context) error {
	lang := b.lang(c)
	btnEn := tele.InlineButton{Text: b.t(lang, "bot.switch.en"), Data: "lang:en"}
	btnPt := tele.InlineButton{Text: b.t(lang, "bot.switch.pt"), Data: "lang:pt"}
	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{btnEn, btnPt}}}
	return c.Send(b.t(lang, "bot.switch.prompt"), markup)
}

func (b *Bot) handleCallback(c tele.Context) error {
	data := strings.TrimSpace(c.Callback().Data)

	if strings.HasPrefix(data, "lang:") {
		lang := normalizeLang(strings.TrimPrefix(data, "lang:"))
		b.mu.Lock()
		b.langs[c.Sender().ID] = lang
		b.mu.Unlock()
		_ = c.Respond(&tele.CallbackResponse{Text: b.t(lang, "bot.switch.confirmed")})
		return b.handleToday(c)
	}

	lang := b.lang(c)
	switch {
	case strings.HasPrefix(data, "toggle:"):
		parts := strings.Split(data, ":")
		if len(parts) != 3 {
			return c.Respond(&tele.CallbackResponse{Text: "❌"})
		}
		if err := b.service.ToggleTask(parts[1], parts[2]); err != nil && !errors.Is(err, core.ErrSchedulingExhausted) {
			log.Printf("bot toggle failed: %v", err)
			return c.Respond(&tele.CallbackResponse{Text: "❌"})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: b.t(lang, "bot.toggle.ok")})
		return b.editToday(c)

	case strings.HasPrefix(data, "confirm:"):
		listID := strings.TrimPrefix(data, "confirm:")
		err := b.service.ConfirmCompletion(listID)
		switch {
		case errors.Is(err, core.ErrSchedulingExhausted):
			_ = c.Respond(&tele.CallbackResponse{Text: b.t(lang, "list.no_next_occurrence")})
		case err != nil:
			log.Printf("bot confirm failed: %v", err)
			return c.Respond(&tele.CallbackResponse{Text: "❌"})
		default:
			_ = c.Respond(&tele.CallbackResponse{Text: b.t(lang, "bot.confirm.ok")})
		}
		return b.editToday(c)
	}

	return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
}

// editToday re-renders the /today message in place after a callback.
func (b *Bot) editToday(c tele.Context) error {
	if err := c.Delete(); err != nil {
		log.Printf("failed to delete stale message: %v", err)
	}
	return b.handleToday(c)
}
