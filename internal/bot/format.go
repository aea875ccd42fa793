package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	"daily-planner/internal/model"
	"daily-planner/internal/planner"
	"daily-planner/internal/service"
)

const (
	iconHigh   = "🔴"
	iconMedium = "🟠"
	iconLow    = "🔵"
	iconNone   = "⚪"
	iconDone   = "✅"
)

var errBadIndex = errors.New("bad task number")

// formatView renders a view result as an HTML message with 1-based task numbers.
func formatView(res service.ViewResult, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>%s</b>\n", escape(res.Title)))
	b.WriteString(fmt.Sprintf("⚠️ %d overdue · ✅ %d completed\n", res.Summary.Overdue, res.Summary.Completed))
	if q := strings.TrimSpace(res.Criteria.Query); q != "" {
		b.WriteString(fmt.Sprintf("🔎 search: <i>%s</i>\n", escape(q)))
	}
	if res.Criteria.ShowCompleted {
		b.WriteString("👁 showing completed\n")
	}
	b.WriteByte('\n')

	switch {
	case res.Empty():
		b.WriteString("No tasks yet. Add one with /newtask.")
		return b.String()
	case res.NoMatches():
		b.WriteString("Nothing matches this view.")
		return b.String()
	}

	for i, task := range res.Tasks {
		b.WriteString(formatTaskLine(i+1, task, now))
	}
	return strings.TrimSpace(b.String())
}

func formatTaskLine(n int, task model.Task, now time.Time) string {
	var b strings.Builder
	icon := priorityIcon(task.Priority)
	if task.IsCompleted {
		icon = iconDone
	}
	name := escape(normalizeTitle(task.Name))
	if task.IsCompleted {
		name = "<s>" + name + "</s>"
	}
	b.WriteString(fmt.Sprintf("%d. %s %s", n, icon, name))
	if label := planner.DateLabel(task, now); label != "" {
		b.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(label)))
	}
	b.WriteByte('\n')

	var details []string
	if done, total := planner.CompletedSubtasks(task); total > 0 {
		details = append(details, fmt.Sprintf("☑️ %d/%d", done, total))
	}
	if task.Estimate != "" {
		details = append(details, "⏱ "+escape(task.Estimate))
	}
	if task.Deadline != nil {
		details = append(details, "⏰ "+task.Deadline.In(now.Location()).Format("2006-01-02"))
	}
	if len(task.Labels) > 0 {
		names := make([]string, 0, len(task.Labels))
		for _, l := range task.Labels {
			names = append(names, escape(l.Name))
		}
		details = append(details, "🏷 "+strings.Join(names, ", "))
	}
	if task.IsRecurring {
		details = append(details, "🔁 "+escape(planner.RepeatLabel(task)))
	}
	if len(details) > 0 {
		b.WriteString("   " + strings.Join(details, " · ") + "\n")
	}
	return b.String()
}

// formatTaskDetails renders one task with its subtasks numbered for /subdone.
func formatTaskDetails(task model.Task, listName string, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b>\n", priorityIcon(task.Priority), escape(normalizeTitle(task.Name))))
	if listName != "" {
		b.WriteString(fmt.Sprintf("📂 %s\n", escape(listName)))
	}
	if label := planner.DateLabel(task, now); label != "" {
		b.WriteString(fmt.Sprintf("🗓 %s\n", escape(label)))
	}
	if task.Deadline != nil {
		b.WriteString(fmt.Sprintf("⏰ Deadline %s\n", task.Deadline.In(now.Location()).Format("2006-01-02 15:04")))
	}
	if task.Estimate != "" || task.ActualTime != "" {
		b.WriteString(fmt.Sprintf("⏱ %s planned · %s spent\n", orDash(task.Estimate), orDash(task.ActualTime)))
	}
	if task.IsRecurring {
		b.WriteString(fmt.Sprintf("🔁 Repeats %s\n", escape(planner.RepeatLabel(task))))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("📝 %s\n", escape(task.Description)))
	}
	if len(task.Subtasks) > 0 {
		b.WriteString(fmt.Sprintf("☑️ Subtasks (%.0f%%)\n", planner.SubtaskProgress(task)))
		for i, st := range task.Subtasks {
			mark := "▫️"
			if st.IsCompleted {
				mark = "✔️"
			}
			b.WriteString(fmt.Sprintf("   %d. %s %s\n", i+1, mark, escape(st.Title)))
		}
	}
	return strings.TrimSpace(b.String())
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return iconHigh
	case model.PriorityMedium:
		return iconMedium
	case model.PriorityLow:
		return iconLow
	default:
		return iconNone
	}
}

// parseIndex reads a 1-based position in a sequence of the given length.
func parseIndex(raw string, length int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > length {
		return 0, errBadIndex
	}
	return n - 1, nil
}

// parseDate accepts today, tomorrow, +N (days from today) and YYYY-MM-DD.
// The result is midnight in now's location.
func parseDate(raw string, now time.Time) (time.Time, error) {
	loc := now.Location()
	today := planner.Day(now, loc)
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "today":
		return today, nil
	case value == "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case strings.HasPrefix(value, "+"):
		days, err := strconv.Atoi(value[1:])
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("invalid offset %q", raw)
		}
		return today.AddDate(0, 0, days), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return parsed, nil
}

// parseDeadline accepts YYYY-MM-DD HH:MM, or a bare YYYY-MM-DD meaning the
// last minute of that day. Both are read in now's location.
func parseDeadline(raw string, now time.Time) (time.Time, error) {
	value := strings.Join(strings.Fields(raw), " ")
	if parsed, err := time.ParseInLocation("2006-01-02 15:04", value, now.Location()); err == nil {
		return parsed, nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q", raw)
	}
	return day.Add(23*time.Hour + 59*time.Minute), nil
}

// parseDuration reads an H:MM amount of time and returns it as H:MM.
func parseDuration(raw string) (string, error) {
	hours, minutes, found := strings.Cut(strings.TrimSpace(raw), ":")
	h, herr := strconv.Atoi(hours)
	m, merr := strconv.Atoi(minutes)
	if !found || herr != nil || merr != nil || h < 0 || m < 0 || m > 59 || len(minutes) != 2 {
		return "", fmt.Errorf("invalid duration %q", raw)
	}
	return fmt.Sprintf("%d:%02d", h, m), nil
}

// parseRecurrence reads "<type>" or "<type> <interval>". The interval
// defaults to 1 and is ignored for weekdays.
func parseRecurrence(raw string) (string, int, error) {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 || len(fields) > 2 {
		return "", 0, fmt.Errorf("invalid recurrence %q", raw)
	}
	if !planner.IsRepeatType(fields[0]) {
		return "", 0, fmt.Errorf("unknown recurrence %q", fields[0])
	}
	interval := 1
	if len(fields) == 2 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("invalid interval %q", fields[1])
		}
		interval = n
	}
	if fields[0] == "weekdays" {
		interval = 1
	}
	return fields[0], interval, nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return escape(s)
}

// parseNameColor splits "Some name #aabbcc" into name and optional color.
func parseNameColor(args string) (string, string) {
	fields := strings.Fields(args)
	if len(fields) > 1 && isHexColor(fields[len(fields)-1]) {
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
	return strings.Join(fields, " "), ""
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !unicode.Is(unicode.ASCII_Hex_Digit, r) {
			return false
		}
	}
	return true
}

// splitFirst returns the first word and the trimmed rest.
func splitFirst(args string) (string, string) {
	args = strings.TrimSpace(args)
	idx := strings.IndexFunc(args, unicode.IsSpace)
	if idx < 0 {
		return args, ""
	}
	return args[:idx], strings.TrimSpace(args[idx+1:])
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

// formatHistory lists activity entries, newest first, with the fields each one changed.
func formatHistory(name string, entries []model.ActivityLog, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🕘 <b>%s</b>\n", escape(normalizeTitle(name))))
	if len(entries) == 0 {
		b.WriteString("No history yet.")
		return b.String()
	}
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("• %s %s", e.Timestamp.In(loc).Format("Jan 2 15:04"), escape(e.Action)))
		if len(e.Changes) > 0 {
			b.WriteString(": " + escape(formatChanges(e.Changes)))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
