package timeline

import (
	"sort"

	"github.com/planboard/core/internal/domain/entities"
)

// PackLanes assigns each event a horizontal lane so that events sharing
// a lane never overlap in date range, and returns the lane index per
// event id plus the number of lanes used.
//
// Greedy interval coloring: events are visited in start-date order (ties
// broken by longer duration first, stably) and each takes the lowest
// lane that is free before its start. Visiting in start order and
// preferring the earliest free lane yields the minimum lane count, and
// the stable sort keeps assignments identical across repeated runs so
// re-renders don't jitter.
//
// Malformed events (start after end) are skipped, not rejected.
// Zero-length events occupy one day in one lane like any other.
func PackLanes(events []entities.CalendarEvent) (map[string]int, int) {
	sorted := make([]entities.CalendarEvent, 0, len(events))
	for _, e := range events {
		if e.Valid() {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartDate != sorted[j].StartDate {
			return sorted[i].StartDate < sorted[j].StartDate
		}
		di, _ := DaysBetween(sorted[i].StartDate, sorted[i].EndDate)
		dj, _ := DaysBetween(sorted[j].StartDate, sorted[j].EndDate)
		return di > dj
	})

	lanes := make(map[string]int, len(sorted))
	var laneEnds []string // busy-until date per lane
	for _, e := range sorted {
		placed := false
		for lane, busyUntil := range laneEnds {
			if busyUntil < e.StartDate {
				laneEnds[lane] = e.EndDate
				lanes[e.ID] = lane
				placed = true
				break
			}
		}
		if !placed {
			lanes[e.ID] = len(laneEnds)
			laneEnds = append(laneEnds, e.EndDate)
		}
	}
	return lanes, len(laneEnds)
}
