package entities

// Validity is the half-open interval of days [From, Until) during which a task is live.
// An empty Until means the task has not been soft-deleted.
type Validity struct {
	From  string
	Until string
}

// Validity returns the interval a task is live for
func (t Task) Validity() Validity {
	v := Validity{From: t.Date}
	if t.DeletedOn != nil {
		v.Until = *t.DeletedOn
	}
	return v
}

// Contains reports whether day falls inside the interval.
// Days are YYYY-MM-DD so lexical order is chronological order.
func (v Validity) Contains(day string) bool {
	if v.From != "" && day < v.From {
		return false
	}
	return v.Until == "" || day < v.Until
}

// VisibleOn reports whether the task is live on day. Only the deletion bound is
// checked: an inherited task is dated before the day it is shown on.
func (t Task) VisibleOn(day string) bool {
	return Validity{Until: t.Validity().Until}.Contains(day)
}

// FilterVisible keeps the tasks live on day
func FilterVisible(tasks []Task, day string) []Task {
	visible := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task.VisibleOn(day) {
			visible = append(visible, task)
		}
	}
	return visible
}
