package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"habitpet/internal/core"
	"habitpet/internal/incubator"
	"habitpet/internal/inventory"
	"habitpet/internal/missions"
	"habitpet/internal/pets"
	"habitpet/internal/slot"

	"github.com/go-chi/chi/v5"
)

// The index view models hold value copies only. Read's callback must not
// leak tree pointers past its return, and the template renders after the
// service lock is released.
type taskView struct {
	ID          string
	Text        string
	Done        bool
	CompletedOn string
}

type listView struct {
	ID         string
	Title      string
	Tasks      []taskView
	History    []taskView
	Progress   int
	Overdue    bool
	Planned    bool
	CanConfirm bool
}

type pageView struct {
	ID    string
	Title string
}

type indexData struct {
	Locale        string
	Flash         string
	Pages         []pageView
	CurrentPageID string
	ViewMode      core.ViewMode
	Lists         []listView
	Level         core.LevelInfo
	TotalPoints   int
	PageProgress  int
	Missions      missions.Status
	Roster        []pets.Summary
	Coins         []*inventory.Item
	Eggs          []*inventory.Item
	Incubating    *inventory.Item
	Today         time.Time
}

// handleIndex renders the whole app: pages, the current page's lists in its
// view mode, and the companion panels. Visiting counts as the daily login.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	locale := s.detectLocale(r)
	s.missions.MarkLogin()
	data := s.indexView(locale, s.takeFlash(w, r))
	s.renderTemplate(w, "index.html", locale, data)
}

// indexView snapshots everything the index template needs.
func (s *Server) indexView(locale, flash string) indexData {
	data := indexData{
		Locale:      locale,
		Flash:       flash,
		Level:       s.service.Level(),
		TotalPoints: s.service.TotalPoints(),
		Missions:    s.missions.Status(),
		Roster:      pets.Roster(s.inv),
		Incubating:  s.incubator.Selected(),
		Today:       s.service.Today(),
	}

	today := data.Today
	s.service.Read(func(st *core.State) {
		for _, p := range st.Pages {
			data.Pages = append(data.Pages, pageView{ID: p.ID, Title: p.Title})
		}
		p := st.CurrentPage()
		if p == nil {
			return
		}
		data.CurrentPageID = p.ID
		data.ViewMode = p.ViewMode
		data.PageProgress = core.PageProgress(p, today)
		for _, l := range core.ListsFor(p, p.ViewMode, today) {
			data.Lists = append(data.Lists, snapshotList(l, today))
		}
	})

	for _, it := range s.inv.Items() {
		switch {
		case inventory.IsCoin(it.Code):
			data.Coins = append(data.Coins, it)
		case inventory.IsEgg(it.Code):
			data.Eggs = append(data.Eggs, it)
		}
	}
	return data
}

func snapshotList(l *core.List, today time.Time) listView {
	lv := listView{
		ID:         l.ID,
		Title:      l.Title,
		Progress:   core.ListProgress(l),
		Overdue:    core.IsOverdue(l, today),
		Planned:    core.IsPlannedFuture(l, today),
		CanConfirm: l.AllDone() && !l.Completed,
	}
	for _, t := range l.CurrentCycleTasks() {
		lv.Tasks = append(lv.Tasks, taskView{ID: t.ID, Text: t.Text, Done: t.Done})
	}
	for _, t := range l.HistoryTasks() {
		tv := taskView{ID: t.ID, Text: t.Text, Done: t.Done}
		if t.CompletedAt != nil {
			tv.CompletedOn = t.CompletedAt.Format("2006-01-02")
		}
		lv.History = append(lv.History, tv)
	}
	return lv
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if _, err := s.service.AddPage(r.FormValue("title")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRenamePage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if err := s.service.RenamePage(chi.URLParam(r, "pageID"), r.FormValue("title")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemovePage(chi.URLParam(r, "pageID")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSelectPage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SetCurrentPage(chi.URLParam(r, "pageID")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSetViewMode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	mode := core.ViewMode(r.FormValue("mode"))
	if err := s.service.SetViewMode(chi.URLParam(r, "pageID"), mode); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	pageID := r.FormValue("page_id")
	title := r.FormValue("title")
	repeat := core.Repeat(r.FormValue("repeat"))
	availableOn, err := core.ParseInputDate(r.FormValue("available_on"))
	if err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}
	repeatDays := parseWeekdays(r.Form["repeat_days"])
	repeatDay, _ := strconv.Atoi(r.FormValue("repeat_day"))

	if _, err := s.service.AddList(pageID, title, repeat, availableOn, repeatDays, repeatDay); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	availableOn, err := core.ParseInputDate(r.FormValue("available_on"))
	if err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}
	repeatDays := parseWeekdays(r.Form["repeat_days"])
	repeatDay, _ := strconv.Atoi(r.FormValue("repeat_day"))

	err = s.service.UpdateList(chi.URLParam(r, "listID"), r.FormValue("title"), availableOn, repeatDays, repeatDay)
	if err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveList(chi.URLParam(r, "listID")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSelectList(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SelectList(chi.URLParam(r, "listID")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleConfirmCompletion(w http.ResponseWriter, r *http.Request) {
	locale := s.detectLocale(r)
	err := s.service.ConfirmCompletion(chi.URLParam(r, "listID"))
	switch {
	case errors.Is(err, core.ErrSchedulingExhausted):
		s.flash(w, r, s.translator.T(locale, "list.no_next_occurrence"))
	case err != nil:
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if _, err := s.service.AddTask(chi.URLParam(r, "listID"), r.FormValue("text")); err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	locale := s.detectLocale(r)
	err := s.service.ToggleTask(chi.URLParam(r, "listID"), chi.URLParam(r, "taskID"))
	switch {
	case errors.Is(err, core.ErrSchedulingExhausted):
		s.flash(w, r, s.translator.T(locale, "list.no_next_occurrence"))
	case err != nil:
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	err := s.service.RemoveTask(chi.URLParam(r, "listID"), chi.URLParam(r, "taskID"))
	if err != nil {
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSlotSpin(w http.ResponseWriter, r *http.Request) {
	locale := s.detectLocale(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	res, err := s.slot.Spin(r.FormValue("coin"))
	switch {
	case errors.Is(err, inventory.ErrInsufficientCoins):
		s.flash(w, r, s.translator.T(locale, "slot.no_coins"))
	case err != nil:
		s.flashError(w, r, err)
	case res.Jackpot:
		s.flash(w, r, s.translator.Tf(locale, "slot.jackpot", reelLine(res), res.Prize.Name))
	default:
		s.flash(w, r, s.translator.Tf(locale, "slot.loss", reelLine(res)))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleClaimMissions(w http.ResponseWriter, r *http.Request) {
	locale := s.detectLocale(r)
	item, err := s.missions.ClaimCombined()
	switch {
	case errors.Is(err, missions.ErrNotReady):
		s.flash(w, r, s.translator.T(locale, "missions.not_ready"))
	case errors.Is(err, missions.ErrAlreadyClaimed):
		s.flash(w, r, s.translator.T(locale, "missions.already_claimed"))
	case err != nil:
		s.flashError(w, r, err)
	default:
		s.flash(w, r, s.translator.Tf(locale, "missions.claimed", item.Name))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIncubatorSelect(w http.ResponseWriter, r *http.Request) {
	locale := s.detectLocale(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	err := s.incubator.Select(r.FormValue("uid"))
	switch {
	case errors.Is(err, incubator.ErrNotAnEgg):
		s.flash(w, r, s.translator.T(locale, "incubator.not_an_egg"))
	case err != nil:
		s.flashError(w, r, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) flashError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("request failed: %v", err)
	s.flash(w, r, err.Error())
}

func reelLine(res *slot.Result) string {
	return res.Symbols[0] + " " + res.Symbols[1] + " " + res.Symbols[2]
}

// parseWeekdays converts checkbox values to weekday numbers 0-6, dropping
// anything out of range.
func parseWeekdays(values []string) []int {
	var days []int
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, n)
	}
	return days
}
