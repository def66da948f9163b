package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Persister writes the state document through to storage. Saves are
// best-effort: the in-memory tree stays authoritative for the session even
// when a write fails.
type Persister interface {
	SaveState(st *State) error
}

// Sentinel errors for operations that must be rejected as no-ops rather than
// panicking across the UI boundary.
var (
	ErrPageNotFound = errors.New("page not found")
	ErrListNotFound = errors.New("list not found")
	ErrTaskNotFound = errors.New("task not found")
	ErrHistoryTask  = errors.New("history records cannot be toggled")
	ErrNotAllDone   = errors.New("list still has pending tasks")
	ErrLastPage     = errors.New("cannot delete the last page")
	ErrEmptyTitle   = errors.New("title cannot be empty")
)

// Service owns the in-memory state tree and is the only writer to it. Every
// mutation persists write-through and publishes events for the feature
// subsystems. There are no ambient globals; callers hold a *Service.
type Service struct {
	mu        sync.Mutex
	state     *State
	persist   Persister
	bus       *Bus
	now       func() time.Time
	lastLevel int

	midnightCancel context.CancelFunc
}

// NewService wraps an already-loaded state tree.
func NewService(state *State, persist Persister, bus *Bus) *Service {
	s := &Service{
		state:   state,
		persist: persist,
		bus:     bus,
		now:     time.Now,
	}
	s.lastLevel = LevelFromPoints(state.TotalPoints()).Level
	return s
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Read runs fn with the state tree under the service lock. fn must not retain
// pointers into the tree past its return.
func (s *Service) Read(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Today returns the service clock's current day at local midnight.
func (s *Service) Today() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StartOfDay(s.now())
}

// Level returns the derived level view of the global point total.
func (s *Service) Level() LevelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LevelFromPoints(s.state.TotalPoints())
}

// TotalPoints returns the global point total across all pages.
func (s *Service) TotalPoints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPoints()
}

// ---- pages ----

// AddPage creates a page and makes it current.
func (s *Service) AddPage(title string) (*Page, error) {
	title = trimmed(title)
	s.mu.Lock()
	defer s.mu.Unlock()
	if title == "" {
		title = fmt.Sprintf("Page %d", len(s.state.Pages)+1)
	}
	p := &Page{ID: uuid.NewString(), Title: title, ViewMode: ViewActive}
	s.state.Pages = append(s.state.Pages, p)
	s.state.CurrentPageID = p.ID
	s.save()
	return p, nil
}

// RemovePage deletes a page and everything in it. The last page cannot be
// deleted.
func (s *Service) RemovePage(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Pages) <= 1 {
		return ErrLastPage
	}
	idx := -1
	for i, p := range s.state.Pages {
		if p.ID == pageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPageNotFound
	}
	s.state.Pages = append(s.state.Pages[:idx], s.state.Pages[idx+1:]...)
	if s.state.CurrentPageID == pageID {
		if idx > 0 {
			idx--
		}
		s.state.CurrentPageID = s.state.Pages[idx].ID
	}
	s.save()
	return nil
}

// RenamePage sets a page's title.
func (s *Service) RenamePage(pageID, title string) error {
	title = trimmed(title)
	if title == "" {
		return ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page(pageID)
	if p == nil {
		return ErrPageNotFound
	}
	p.Title = title
	s.save()
	return nil
}

// SetCurrentPage switches the current page.
func (s *Service) SetCurrentPage(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page(pageID) == nil {
		return ErrPageNotFound
	}
	s.state.CurrentPageID = pageID
	s.save()
	return nil
}

// SetViewMode switches a page between the active, planned and completed views.
func (s *Service) SetViewMode(pageID string, mode ViewMode) error {
	switch mode {
	case ViewActive, ViewPlanned, ViewCompleted:
	default:
		mode = ViewActive
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page(pageID)
	if p == nil {
		return ErrPageNotFound
	}
	p.ViewMode = mode
	s.save()
	return nil
}

// SelectList records the selected list on its page.
func (s *Service) SelectList(listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, l := s.state.FindList(listID)
	if l == nil {
		return ErrListNotFound
	}
	p.SelectedListID = l.ID
	s.save()
	return nil
}

// ---- lists ----

// AddList creates a list on the given page and selects it. availableOn zero
// means today.
func (s *Service) AddList(pageID, title string, repeat Repeat, availableOn time.Time, repeatDays []int, repeatDay int) (*List, error) {
	title = trimmed(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	switch repeat {
	case RepeatOnce, RepeatDaily, RepeatWeekly, RepeatMonthly:
	default:
		repeat = RepeatOnce
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page(pageID)
	if p == nil {
		return nil, ErrPageNotFound
	}
	now := s.now()
	if availableOn.IsZero() {
		availableOn = now
	}
	l := &List{
		ID:            uuid.NewString(),
		Title:         title,
		Tasks:         []*Task{},
		TemplateTasks: []*TemplateTask{},
		Repeat:        repeat,
		CreatedAt:     now,
		AvailableOn:   StartOfDay(availableOn),
		RepeatDays:    append([]int(nil), repeatDays...),
		RepeatDay:     repeatDay,
	}
	p.Lists = append(p.Lists, l)
	p.SelectedListID = l.ID
	s.save()
	return l, nil
}

// UpdateList edits title, availability and recurrence. A valid day-of-month
// takes priority and makes the list monthly; otherwise selected weekdays make
// it weekly; clearing both on a weekly/monthly list drops the recurrence.
func (s *Service) UpdateList(listID, title string, availableOn time.Time, repeatDays []int, repeatDay int) error {
	title = trimmed(title)
	if title == "" {
		return ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, l := s.state.FindList(listID)
	if l == nil {
		return ErrListNotFound
	}
	l.Title = title
	if !availableOn.IsZero() {
		l.AvailableOn = StartOfDay(availableOn)
	}
	switch {
	case repeatDay >= 1 && repeatDay <= 31:
		l.RepeatDay = repeatDay
		l.Repeat = RepeatMonthly
		l.RepeatDays = nil
	case len(repeatDays) > 0:
		l.RepeatDay = 0
		l.RepeatDays = append([]int(nil), repeatDays...)
		l.Repeat = RepeatWeekly
	default:
		l.RepeatDay = 0
		l.RepeatDays = nil
		if l.Repeat == RepeatWeekly || l.Repeat == RepeatMonthly {
			l.Repeat = RepeatOnce
		}
	}
	s.save()
	return nil
}

// RemoveList deletes a list from its page.
func (s *Service) RemoveList(listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, l := s.state.FindList(listID)
	if l == nil {
		return ErrListNotFound
	}
	for i, cand := range p.Lists {
		if cand.ID == l.ID {
			p.Lists = append(p.Lists[:i], p.Lists[i+1:]...)
			break
		}
	}
	if p.SelectedListID == l.ID {
		p.SelectedListID = ""
		if len(p.Lists) > 0 {
			p.SelectedListID = p.Lists[0].ID
		}
	}
	s.save()
	return nil
}

// ---- tasks ----

// AddTask appends a task to the list's current cycle and seeds the persistent
// template unless an entry with the same trimmed, case-insensitive text
// already exists, so repeated manual additions across cycles do not pile up
// duplicate seeds.
func (s *Service) AddTask(listID, text string) (*Task, error) {
	text = trimmed(text)
	if text == "" {
		return nil, ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, l := s.state.FindList(listID)
	if l == nil {
		return nil, ErrListNotFound
	}
	t := &Task{ID: uuid.NewString(), Text: text}
	l.Tasks = append(l.Tasks, t)
	if !l.HasTemplateText(text) {
		l.TemplateTasks = append(l.TemplateTasks, &TemplateTask{ID: uuid.NewString(), Text: text})
	}
	s.save()
	return t, nil
}

// ToggleTask flips a task's done state, reconciling points incrementally and
// driving the completion state machine: reaching all-done triggers the
// completion transition, and un-checking a task on a completed list rolls the
// completion back. The returned error is ErrSchedulingExhausted when the list
// completed but could not be rescheduled; the completion itself stands.
func (s *Service) ToggleTask(listID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, l := s.state.FindList(listID)
	if l == nil {
		return ErrListNotFound
	}
	t := l.Find(taskID)
	if t == nil {
		return ErrTaskNotFound
	}
	if t.IsHistory {
		return ErrHistoryTask
	}

	now := s.now()
	t.Done = !t.Done
	if t.Done {
		if !t.PointsAwarded {
			t.PointsAwarded = true
			l.PointsAwarded += PointsPerTask
		}
	} else if t.PointsAwarded {
		t.PointsAwarded = false
		l.PointsAwarded -= PointsPerTask
	}

	var schedErr error
	if l.AllDone() && !l.Completed {
		schedErr = s.completeAndSchedule(l, now)
	} else if !l.AllDone() && l.Completed {
		// Rollback: the list is no longer fully done.
		if l.BonusAwarded {
			l.PointsAwarded -= BonusPerList
			l.BonusAwarded = false
		}
		l.Completed = false
		l.CompletedAt = nil
	}

	s.bus.Publish(TaskToggled{ListID: l.ID, TaskID: t.ID, Done: t.Done, At: now})
	s.afterPointsMutation()
	s.save()
	return schedErr
}

// RemoveTask deletes a task, debiting its credited points. A list emptied of
// tasks loses its completion state (and bonus credit, keeping the points
// invariant intact).
func (s *Service) RemoveTask(listID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, l := s.state.FindList(listID)
	if l == nil {
		return ErrListNotFound
	}
	t := l.Find(taskID)
	if t == nil {
		return ErrTaskNotFound
	}
	if t.Done && t.PointsAwarded {
		l.PointsAwarded -= PointsPerTask
	}
	for i, cand := range l.Tasks {
		if cand.ID == t.ID {
			l.Tasks = append(l.Tasks[:i], l.Tasks[i+1:]...)
			break
		}
	}
	if len(l.Tasks) == 0 {
		if l.BonusAwarded {
			l.PointsAwarded -= BonusPerList
			l.BonusAwarded = false
		}
		l.Completed = false
		l.CompletedAt = nil
	}
	s.afterPointsMutation()
	s.save()
	return nil
}

// ConfirmCompletion is the user-triggered equivalent of the automatic
// completion transition, guarded by all-done-and-not-yet-completed.
func (s *Service) ConfirmCompletion(listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, l := s.state.FindList(listID)
	if l == nil {
		return ErrListNotFound
	}
	if !l.AllDone() || l.Completed {
		return ErrNotAllDone
	}
	err := s.completeAndSchedule(l, s.now())
	s.afterPointsMutation()
	s.save()
	return err
}

// completeAndSchedule records the completion of the current cycle, credits
// the one-time bonus, and for repeating lists synthesizes a history snapshot,
// regenerates the next cycle from the template and advances availableOn.
//
// When no next occurrence exists within the horizon the list stays in its
// completed, unrescheduled cycle and ErrSchedulingExhausted is returned;
// falling back to "today" would make the list due again immediately and
// corrupt the recurrence semantics.
func (s *Service) completeAndSchedule(l *List, now time.Time) error {
	completedAt := now
	l.CompletedAt = &completedAt
	if !l.BonusAwarded {
		l.BonusAwarded = true
		l.PointsAwarded += BonusPerList
	}

	defer s.bus.Publish(ListCompleted{ListID: l.ID, Repeat: l.Repeat, CompletedAt: completedAt})

	if l.Repeat == RepeatOnce {
		l.Completed = true
		return nil
	}

	next, err := NextOccurrence(l, now)
	if err != nil {
		l.Completed = true
		return fmt.Errorf("reschedule list %q: %w", l.Title, err)
	}

	cycle := l.CurrentCycleTasks()
	if len(cycle) == 0 {
		cycle = l.Tasks
	}
	history := l.HistoryTasks()
	for _, t := range cycle {
		history = append(history, &Task{
			ID:            uuid.NewString(),
			Text:          t.Text,
			Done:          true,
			IsHistory:     true,
			OriginTaskID:  t.ID,
			CompletedAt:   &completedAt,
			PointsAwarded: t.PointsAwarded,
		})
	}

	fresh := s.tasksFromTemplate(l, cycle)
	l.Tasks = append(history, fresh...)
	l.AvailableOn = next
	// The next cycle is tracked independently; completion state belongs to
	// the history records now.
	l.Completed = false
	return nil
}

// tasksFromTemplate instantiates the next cycle's incomplete tasks from the
// persistent template, deduplicated by trimmed lowercase text. An empty
// template falls back to the just-finished cycle's texts.
func (s *Service) tasksFromTemplate(l *List, lastCycle []*Task) []*Task {
	texts := make([]string, 0, len(l.TemplateTasks))
	if len(l.TemplateTasks) > 0 {
		for _, tt := range l.TemplateTasks {
			texts = append(texts, tt.Text)
		}
	} else {
		for _, t := range lastCycle {
			texts = append(texts, t.Text)
		}
	}

	seen := make(map[string]bool, len(texts))
	out := make([]*Task, 0, len(texts))
	for _, text := range texts {
		key := templateKey(text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, &Task{ID: uuid.NewString(), Text: text})
	}
	return out
}

// ---- derived views ----

// ListsFor filters a page's lists by view mode for the given day.
func ListsFor(p *Page, mode ViewMode, today time.Time) []*List {
	out := make([]*List, 0, len(p.Lists))
	for _, l := range p.Lists {
		if VisibleIn(l, mode, today) {
			out = append(out, l)
		}
	}
	return out
}

// ListProgress returns the percentage of done tasks in a list, rounded to
// the nearest whole percent.
func ListProgress(l *List) int {
	if len(l.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range l.Tasks {
		if t.Done {
			done++
		}
	}
	return roundPercent(done, len(l.Tasks))
}

// PageProgress computes the page's overall completion percentage. Repeating
// lists that are planned for the future contribute only their history
// records, so a completed-and-rescheduled occurrence still counts as done
// today while its regenerated tasks do not drag the percentage down.
func PageProgress(p *Page, today time.Time) int {
	total, done := 0, 0
	for _, l := range p.Lists {
		if l.Repeat != RepeatOnce && IsPlannedFuture(l, today) {
			for _, t := range l.HistoryTasks() {
				total++
				if t.Done {
					done++
				}
			}
			continue
		}
		for _, t := range l.Tasks {
			total++
			if t.Done {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return roundPercent(done, total)
}

func roundPercent(done, total int) int {
	return (done*200 + total) / (total * 2)
}

// ---- internals ----

// afterPointsMutation publishes progress and level signals. LevelChanged
// fires only on an actual increase so downstream reward granting stays
// idempotent.
func (s *Service) afterPointsMutation() {
	if p := s.state.CurrentPage(); p != nil {
		s.bus.Publish(ProgressChanged{PageID: p.ID, Percent: PageProgress(p, StartOfDay(s.now()))})
	}
	level := LevelFromPoints(s.state.TotalPoints()).Level
	if level > s.lastLevel {
		s.bus.Publish(LevelChanged{Level: level, Previous: s.lastLevel})
	}
	s.lastLevel = level
}

func (s *Service) page(pageID string) *Page {
	for _, p := range s.state.Pages {
		if p.ID == pageID {
			return p
		}
	}
	return nil
}

// save persists the whole tree write-through. Failures are logged and
// swallowed; the in-memory state stays authoritative for the session.
func (s *Service) save() {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveState(s.state); err != nil {
		log.Printf("Warning: failed to persist state: %v", err)
	}
}

func trimmed(v string) string {
	return strings.TrimSpace(v)
}

// ---- midnight rollover ----

// StartMidnightWorker launches the day-rollover loop: a one-shot timer to the
// next local midnight that reschedules itself every 24 hours for the life of
// the process. Calling it again stops the previous worker first, so
// re-initialization cannot produce duplicate rollovers.
func (s *Service) StartMidnightWorker(ctx context.Context) {
	s.mu.Lock()
	if s.midnightCancel != nil {
		s.midnightCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.midnightCancel = cancel
	s.mu.Unlock()

	go s.runMidnightWorker(ctx)
}

func (s *Service) runMidnightWorker(ctx context.Context) {
	for {
		now := time.Now()
		timer := time.NewTimer(NextMidnight(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			day := StartOfDay(time.Now())
			log.Printf("Day rollover: %s", DayKey(day))
			s.bus.Publish(DayRolledOver{Day: day})
		}
	}
}
