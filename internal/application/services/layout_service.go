package services

import (
	"sync"
	"time"

	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/timeline"
)

// Layout is the fully computed timeline geometry for one render: the
// month window, the grouping columns with their open-task counts, and
// the event lane assignment.
type Layout struct {
	Anchor    string                  `json:"anchor"`
	ViewMode  timeline.ViewMode       `json:"viewMode"`
	Compact   bool                    `json:"compact"`
	GroupMode entities.GroupMode      `json:"groupMode"`
	Months    []timeline.Month        `json:"months"`
	Columns   []LayoutColumn          `json:"columns"`
	Lanes     map[string]int          `json:"lanes"`
	LaneCount int                     `json:"laneCount"`
	Events    []entities.CalendarEvent `json:"events"`
}

// LayoutColumn is one grouping row of the grid plus the number of open
// tasks it holds.
type LayoutColumn struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IncompleteCount int    `json:"incompleteCount"`
}

// LayoutService holds the view-side state of the board: anchor month,
// window width, compact rendering and grouping mode. It never touches
// board data; Build receives the current slices from the board service.
type LayoutService struct {
	mu        sync.Mutex
	anchor    string
	view      timeline.ViewState
	groupMode entities.GroupMode
	logger    *logger.Logger
}

// NewLayoutService starts at the month containing now, one-month
// window, grouped by category.
func NewLayoutService(now time.Time, log *logger.Logger) *LayoutService {
	return &LayoutService{
		anchor:    timeline.DateKeyOf(now),
		view:      timeline.ViewState{Mode: timeline.View1Month},
		groupMode: entities.GroupByCategory,
		logger:    log,
	}
}

// SetViewMode switches the window width. Invalid modes and requests
// made in compact mode are ignored.
func (s *LayoutService) SetViewMode(mode timeline.ViewMode) {
	s.mu.Lock()
	s.view.SetMode(mode)
	s.mu.Unlock()
}

// SetCompact toggles compact rendering.
func (s *LayoutService) SetCompact(compact bool) {
	s.mu.Lock()
	s.view.SetCompact(compact)
	s.mu.Unlock()
}

// SetGroupMode switches between category and assignee grouping.
// Invalid modes are ignored.
func (s *LayoutService) SetGroupMode(mode entities.GroupMode) {
	s.mu.Lock()
	if mode.IsValid() {
		s.groupMode = mode
	}
	s.mu.Unlock()
}

// GroupMode returns the active grouping mode.
func (s *LayoutService) GroupMode() entities.GroupMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupMode
}

// Navigate steps the anchor one month forward or back, regardless of
// how many months the window shows.
func (s *LayoutService) Navigate(forward bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := timeline.NavigateMonth(s.anchor, forward)
	if err != nil {
		return err
	}
	s.anchor = next
	return nil
}

// GoToToday re-anchors the window on the month containing now.
func (s *LayoutService) GoToToday(now time.Time) {
	s.mu.Lock()
	s.anchor = timeline.DateKeyOf(now)
	s.mu.Unlock()
}

// Build computes the layout for the current view state and the given
// board data.
func (s *LayoutService) Build(categories []entities.Category, tasks []entities.Task, events []entities.CalendarEvent) (Layout, error) {
	s.mu.Lock()
	anchor := s.anchor
	view := s.view
	groupMode := s.groupMode
	s.mu.Unlock()

	months, err := timeline.BuildMonths(anchor, view.MonthsToShow())
	if err != nil {
		return Layout{}, err
	}

	lanes, laneCount := timeline.PackLanes(events)

	cols := timeline.Columns(groupMode, categories, tasks)
	columns := make([]LayoutColumn, len(cols))
	for i, c := range cols {
		columns[i] = LayoutColumn{
			ID:              c.ID,
			Name:            c.Name,
			IncompleteCount: timeline.IncompleteCount(groupMode, c.ID, tasks),
		}
	}

	return Layout{
		Anchor:    anchor,
		ViewMode:  view.Mode,
		Compact:   view.Compact,
		GroupMode: groupMode,
		Months:    months,
		Columns:   columns,
		Lanes:     lanes,
		LaneCount: laneCount,
		Events:    events,
	}, nil
}
