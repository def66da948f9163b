package store

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"habitpet/internal/core"

	"github.com/google/uuid"
)

// Storage keys, one per subsystem, mirroring the original per-feature
// localStorage keys.
const (
	StateKey        = "todo.state.v1"
	InventoryKey    = "todo.inventory.v1"
	MissionsKey     = "todo.missions.v1"
	CountedTasksKey = "todo.counted_tasks.v1"
	IncubatorKey    = "todo.incubator.selected.v1"
	LastLevelKey    = "todo.rewards.last_level.v1"
)

// LoadState reads the primary document. Missing or corrupt data falls back to
// an empty default (one page, no lists); legacy documents holding a flat list
// array are wrapped into a single default page. Every list is normalized to
// the full attribute set and lists completed before bonus tracking existed
// get their bonus backfilled.
func (s *Store) LoadState() (*core.State, error) {
	raw, ok, err := s.Get(StateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return defaultState(), nil
	}

	st, err := migrateDocument(raw)
	if err != nil {
		log.Printf("Warning: corrupt state document, starting empty: %v", err)
		return defaultState(), nil
	}
	return st, nil
}

// SaveState serializes the whole tree under the primary key. The caller
// treats failures as best-effort.
func (s *Store) SaveState(st *core.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.Put(StateKey, data)
}

// ---- versioned migration: raw untyped document -> current typed state ----

// rawDocument covers both the current paged shape and the legacy flat-list
// shape in one decode.
type rawDocument struct {
	Pages          []rawPage `json:"pages"`
	CurrentPageID  string    `json:"currentPageId"`
	Lists          []rawList `json:"lists"`
	SelectedListID string    `json:"selectedListId"`
	ViewMode       string    `json:"viewMode"`
}

type rawPage struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Lists          []rawList `json:"lists"`
	SelectedListID string    `json:"selectedListId"`
	ViewMode       string    `json:"viewMode"`
}

type rawList struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Tasks         []rawTask            `json:"tasks"`
	TemplateTasks []*core.TemplateTask `json:"templateTasks"`
	Completed     bool                 `json:"completed"`
	CompletedAt   *time.Time           `json:"completedAt"`
	Repeat        string               `json:"repeat"`
	CreatedAt     *time.Time           `json:"createdAt"`
	AvailableOn   *time.Time           `json:"availableOn"`
	RepeatDays    []int                `json:"repeatDays"`
	RepeatDay     *int                 `json:"repeatDay"`
	PointsAwarded *int                 `json:"pointsAwarded"`
	BonusAwarded  bool                 `json:"bonusAwarded"`
}

type rawTask struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Done          bool       `json:"done"`
	PointsAwarded bool       `json:"_pointsAwarded"`
	IsHistory     bool       `json:"_isHistory"`
	OriginTaskID  string     `json:"_originTaskId"`
	CompletedAt   *time.Time `json:"_completedAt"`
}

func migrateDocument(raw []byte) (*core.State, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	st := &core.State{CurrentPageID: doc.CurrentPageID}
	switch {
	case len(doc.Pages) > 0:
		for _, rp := range doc.Pages {
			st.Pages = append(st.Pages, normalizePage(rp))
		}
	case doc.Lists != nil:
		// Legacy pre-pages document: wrap the flat list array.
		st.Pages = []*core.Page{normalizePage(rawPage{
			Title:          "Main",
			Lists:          doc.Lists,
			SelectedListID: doc.SelectedListID,
			ViewMode:       doc.ViewMode,
		})}
	}

	if len(st.Pages) == 0 {
		st.Pages = []*core.Page{emptyPage()}
	}
	if st.CurrentPage() == nil || st.CurrentPageID == "" {
		st.CurrentPageID = st.Pages[0].ID
	}

	// Retroactive bonus backfill for documents predating bonus tracking.
	for _, p := range st.Pages {
		for _, l := range p.Lists {
			if l.Completed && !l.BonusAwarded {
				l.PointsAwarded += core.BonusPerList
				l.BonusAwarded = true
			}
		}
	}
	return st, nil
}

func normalizePage(rp rawPage) *core.Page {
	p := &core.Page{
		ID:             rp.ID,
		Title:          rp.Title,
		SelectedListID: rp.SelectedListID,
		ViewMode:       core.ViewMode(rp.ViewMode),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Title == "" {
		p.Title = "Page"
	}
	switch p.ViewMode {
	case core.ViewActive, core.ViewPlanned, core.ViewCompleted:
	default:
		p.ViewMode = core.ViewActive
	}
	for _, rl := range rp.Lists {
		p.Lists = append(p.Lists, normalizeList(rl))
	}
	if p.SelectedListID == "" && len(p.Lists) > 0 {
		p.SelectedListID = p.Lists[0].ID
	}
	return p
}

func normalizeList(rl rawList) *core.List {
	now := time.Now()
	l := &core.List{
		ID:           rl.ID,
		Title:        rl.Title,
		Completed:    rl.Completed,
		CompletedAt:  rl.CompletedAt,
		Repeat:       core.Repeat(rl.Repeat),
		RepeatDays:   rl.RepeatDays,
		BonusAwarded: rl.BonusAwarded,
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Title == "" {
		l.Title = "Untitled"
	}
	switch l.Repeat {
	case core.RepeatOnce, core.RepeatDaily, core.RepeatWeekly, core.RepeatMonthly:
	default:
		l.Repeat = core.RepeatOnce
	}
	if rl.CreatedAt != nil {
		l.CreatedAt = *rl.CreatedAt
	} else {
		l.CreatedAt = now
	}
	if rl.AvailableOn != nil {
		l.AvailableOn = core.StartOfDay(*rl.AvailableOn)
	} else {
		l.AvailableOn = core.StartOfDay(now)
	}
	if rl.RepeatDay != nil {
		l.RepeatDay = *rl.RepeatDay
	}

	doneCount := 0
	for _, rt := range rl.Tasks {
		t := &core.Task{
			ID:            rt.ID,
			Text:          rt.Text,
			Done:          rt.Done,
			PointsAwarded: rt.PointsAwarded,
			IsHistory:     rt.IsHistory,
			OriginTaskID:  rt.OriginTaskID,
			CompletedAt:   rt.CompletedAt,
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Done {
			doneCount++
		}
		l.Tasks = append(l.Tasks, t)
	}
	if l.Tasks == nil {
		l.Tasks = []*core.Task{}
	}

	if rl.PointsAwarded != nil {
		l.PointsAwarded = *rl.PointsAwarded
	} else {
		// Pre-points document: the only load-time recomputation from scratch.
		l.PointsAwarded = doneCount * core.PointsPerTask
	}

	// Derive a template from current task texts when the document predates
	// template tracking, so the first reschedule has seeds to work from.
	if rl.TemplateTasks != nil {
		l.TemplateTasks = rl.TemplateTasks
	} else {
		for _, t := range l.Tasks {
			if !l.HasTemplateText(t.Text) {
				l.TemplateTasks = append(l.TemplateTasks, &core.TemplateTask{ID: uuid.NewString(), Text: t.Text})
			}
		}
		if l.TemplateTasks == nil {
			l.TemplateTasks = []*core.TemplateTask{}
		}
	}
	return l
}

func defaultState() *core.State {
	p := emptyPage()
	return &core.State{Pages: []*core.Page{p}, CurrentPageID: p.ID}
}

func emptyPage() *core.Page {
	return &core.Page{
		ID:       uuid.NewString(),
		Title:    "Main",
		Lists:    []*core.List{},
		ViewMode: core.ViewActive,
	}
}
