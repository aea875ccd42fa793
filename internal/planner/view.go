// Package planner selects, orders and annotates tasks for the canned views.
//
// Every function is a pure computation over the task slice it receives. The
// current instant is always passed in; its location defines what "today" is.
package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"daily-planner/internal/model"
)

// View is one of the canned task filters.
type View string

const (
	ViewToday     View = "today"
	ViewNext7Days View = "next7days"
	ViewUpcoming  View = "upcoming"
	ViewAll       View = "all"
)

// Views lists the canned views in menu order.
var Views = []View{ViewToday, ViewNext7Days, ViewUpcoming, ViewAll}

// ParseView accepts the canonical view names and a few aliases.
func ParseView(raw string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today":
		return ViewToday, nil
	case "next7days", "next7", "week":
		return ViewNext7Days, nil
	case "upcoming":
		return ViewUpcoming, nil
	case "all", "":
		return ViewAll, nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}

// Title is the heading shown above a view.
func (v View) Title() string {
	switch v {
	case ViewToday:
		return "Today"
	case ViewNext7Days:
		return "Next 7 Days"
	case ViewUpcoming:
		return "Upcoming"
	case ViewAll:
		return "All Tasks"
	default:
		return "Tasks"
	}
}

// Criteria describes one request for an ordered task sequence.
// A non-empty ListID overrides View.
type Criteria struct {
	ListID        string
	View          View
	ShowCompleted bool
	Query         string
}

// WithView returns a copy of c showing v and no longer scoped to a list.
func (c Criteria) WithView(v View) Criteria {
	c.View = v
	c.ListID = ""
	return c
}

// WithList returns a copy of c scoped to the list.
func (c Criteria) WithList(listID string) Criteria {
	c.ListID = listID
	return c
}

// WithQuery returns a copy of c with the search query replaced.
func (c Criteria) WithQuery(q string) Criteria {
	c.Query = q
	return c
}

// WithShowCompleted returns a copy of c with the completed toggle set.
func (c Criteria) WithShowCompleted(show bool) Criteria {
	c.ShowCompleted = show
	return c
}

// Select filters tasks by c and returns them in display order.
// The input slice is left untouched.
func Select(tasks []model.Task, c Criteria, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	today := Day(now, now.Location())
	query := strings.ToLower(strings.TrimSpace(c.Query))

	for _, t := range tasks {
		if c.ListID != "" {
			if t.ListID != c.ListID {
				continue
			}
		} else if !inView(t, c.View, today) {
			continue
		}
		if query != "" && !matches(t, query) {
			continue
		}
		if !c.ShowCompleted && t.IsCompleted {
			continue
		}
		out = append(out, t)
	}

	Sort(out)
	return out
}

func inView(t model.Task, v View, today time.Time) bool {
	switch v {
	case ViewToday:
		if t.Date == nil {
			return false
		}
		return Day(*t.Date, today.Location()).Equal(today)
	case ViewNext7Days:
		if t.Date == nil {
			return false
		}
		d := Day(*t.Date, today.Location())
		return !d.Before(today) && !d.After(today.AddDate(0, 0, 7))
	case ViewUpcoming:
		if t.Date == nil {
			return true
		}
		return !Day(*t.Date, today.Location()).Before(today)
	default:
		return true
	}
}

// Search keeps tasks whose name or description contains query, ignoring case.
// A blank query returns tasks unchanged.
func Search(tasks []model.Task, query string) []model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tasks
	}
	var out []model.Task
	for _, t := range tasks {
		if matches(t, q) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t model.Task, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(t.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(t.Description), lowerQuery)
}

// Sort orders tasks in place: incomplete first, then by priority rank, then by
// date ascending with undated tasks last.
func Sort(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
}

func less(a, b model.Task) bool {
	if a.IsCompleted != b.IsCompleted {
		return !a.IsCompleted
	}
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.Date == nil && b.Date == nil:
		return false
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	default:
		return a.Date.Before(*b.Date)
	}
}
