package core

import (
	"strings"
	"time"
)

// Repeat describes how often a list recurs.
type Repeat string

const (
	RepeatOnce    Repeat = "once"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// ViewMode selects which lists a page shows.
type ViewMode string

const (
	ViewActive    ViewMode = "active"
	ViewPlanned   ViewMode = "planned"
	ViewCompleted ViewMode = "completed"
)

// Points configuration.
const (
	PointsPerTask = 5
	BonusPerList  = 50
)

// State is the whole application document, the single tree that gets
// persisted on every mutation.
type State struct {
	Pages         []*Page `json:"pages"`
	CurrentPageID string  `json:"currentPageId"`
}

// Page is a namespace of lists with its own selected list and view mode.
type Page struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Lists          []*List  `json:"lists"`
	SelectedListID string   `json:"selectedListId"`
	ViewMode       ViewMode `json:"viewMode"`
}

// List is a one-off or recurring collection of tasks. Tasks holds the current
// cycle's tasks plus, for repeating lists, the history records synthesized by
// prior completions (history first).
type List struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Tasks         []*Task         `json:"tasks"`
	TemplateTasks []*TemplateTask `json:"templateTasks"`
	Completed     bool            `json:"completed"`
	CompletedAt   *time.Time      `json:"completedAt"`
	Repeat        Repeat          `json:"repeat"`
	CreatedAt     time.Time       `json:"createdAt"`
	AvailableOn   time.Time       `json:"availableOn"`
	RepeatDays    []int           `json:"repeatDays"` // weekday ints, 0=Sunday..6=Saturday; weekly only
	RepeatDay     int             `json:"repeatDay"`  // 1..31, monthly only; 0 means unset
	PointsAwarded int             `json:"pointsAwarded"`
	BonusAwarded  bool            `json:"bonusAwarded"`
}

// Task belongs to exactly one list. PointsAwarded guards against double
// credit/debit across toggles. History tasks are synthesized snapshots of a
// completed cycle and are never toggled interactively.
type Task struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Done          bool       `json:"done"`
	PointsAwarded bool       `json:"_pointsAwarded"`
	IsHistory     bool       `json:"_isHistory"`
	OriginTaskID  string     `json:"_originTaskId,omitempty"`
	CompletedAt   *time.Time `json:"_completedAt,omitempty"`
}

// TemplateTask is the persistent blueprint entry used to seed each new cycle
// of a repeating list. Template entries are copies of task text, not
// references, and survive cycling.
type TemplateTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CurrentPage resolves the current page, falling back to the first one when
// the stored id dangles.
func (s *State) CurrentPage() *Page {
	for _, p := range s.Pages {
		if p.ID == s.CurrentPageID {
			return p
		}
	}
	if len(s.Pages) > 0 {
		return s.Pages[0]
	}
	return nil
}

// FindList looks a list up across all pages.
func (s *State) FindList(listID string) (*Page, *List) {
	for _, p := range s.Pages {
		for _, l := range p.Lists {
			if l.ID == listID {
				return p, l
			}
		}
	}
	return nil, nil
}

// TotalPoints sums pointsAwarded across every list of every page. The level
// calculator is a pure function of this value.
func (s *State) TotalPoints() int {
	total := 0
	for _, p := range s.Pages {
		for _, l := range p.Lists {
			total += l.PointsAwarded
		}
	}
	return total
}

// Find returns the task with the given id, or nil.
func (l *List) Find(taskID string) *Task {
	for _, t := range l.Tasks {
		if t.ID == taskID {
			return t
		}
	}
	return nil
}

// CurrentCycleTasks returns the non-history tasks of the list.
func (l *List) CurrentCycleTasks() []*Task {
	out := make([]*Task, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		if !t.IsHistory {
			out = append(out, t)
		}
	}
	return out
}

// HistoryTasks returns the synthesized records of past cycles.
func (l *List) HistoryTasks() []*Task {
	out := make([]*Task, 0)
	for _, t := range l.Tasks {
		if t.IsHistory {
			out = append(out, t)
		}
	}
	return out
}

// AllDone reports whether the list has at least one task and every task,
// history included, is done.
func (l *List) AllDone() bool {
	if len(l.Tasks) == 0 {
		return false
	}
	for _, t := range l.Tasks {
		if !t.Done {
			return false
		}
	}
	return true
}

// HasTemplateText reports whether the template already carries an entry with
// equal trimmed, case-insensitive text.
func (l *List) HasTemplateText(text string) bool {
	key := templateKey(text)
	for _, tt := range l.TemplateTasks {
		if templateKey(tt.Text) == key {
			return true
		}
	}
	return false
}

func templateKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
