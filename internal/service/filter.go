package service

import (
	"math"
	"strings"
	"time"

	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
)

type Scope string

const (
	ScopeMine Scope = "mine"
	ScopeTeam Scope = "team"
)

type TimeWindow string

const (
	WindowAll   TimeWindow = "all"
	WindowToday TimeWindow = "today"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
)

// Since returns the lower submission bound of the window. It is false for WindowAll.
func (w TimeWindow) Since(now time.Time) (time.Time, bool) {
	switch w {
	case WindowToday:
		return now.Add(-24 * time.Hour), true
	case WindowWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case WindowMonth:
		return now.Add(-30 * 24 * time.Hour), true
	default:
		return time.Time{}, false
	}
}

func ParseTimeWindow(s string) (TimeWindow, bool) {
	if s == "" {
		return WindowAll, true
	}
	switch w := TimeWindow(strings.ToLower(s)); w {
	case WindowAll, WindowToday, WindowWeek, WindowMonth:
		return w, true
	}
	return "", false
}

type DocumentFilter struct {
	Scope    Scope
	State    *model.DocumentState
	Category *string
	Window   TimeWindow
}

func NewDocumentFilter() *DocumentFilter {
	return &DocumentFilter{Scope: ScopeMine, Window: WindowAll}
}

func (f *DocumentFilter) WithScope(scope Scope) *DocumentFilter {
	f.Scope = scope
	return f
}

func (f *DocumentFilter) WithState(state model.DocumentState) *DocumentFilter {
	f.State = &state
	return f
}

func (f *DocumentFilter) WithCategory(category string) *DocumentFilter {
	f.Category = &category
	return f
}

func (f *DocumentFilter) WithWindow(w TimeWindow) *DocumentFilter {
	f.Window = w
	return f
}

func (f *DocumentFilter) toStoreFilter(user auth.User, now time.Time) *store.DocumentQueryFilter {
	sf := store.NewDocumentQueryFilter()
	if f == nil {
		return sf.ByOwnerID(user.ID)
	}
	if f.Scope != ScopeTeam {
		sf = sf.ByOwnerID(user.ID)
	}
	if f.State != nil {
		sf = sf.ByState(*f.State)
	}
	if f.Category != nil {
		sf = sf.ByCategory(*f.Category)
	}
	if since, ok := f.Window.Since(now); ok {
		sf = sf.SubmittedAfter(since)
	}
	return sf
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	// keeps (page-1)*limit inside an int32 offset
	maxPage = math.MaxInt32 / maxPageLimit
)

type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}
