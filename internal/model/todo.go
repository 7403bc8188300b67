package model

import "time"

// Todo is a todo entry as returned by the server.
// Negative IDs mark local placeholders that have not been confirmed yet.
type Todo struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Done        bool       `json:"is_done"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Placeholder reports whether the todo only exists locally.
func (t Todo) Placeholder() bool { return t.ID < 0 }

// Overdue is true when the due date has passed and the todo is still open.
func (t Todo) Overdue(now time.Time) bool {
	return !t.Done && t.DueDate != nil && t.DueDate.Before(now)
}

// DueOn reports whether the due date falls on the same calendar day as day
// (in day's location).
func (t Todo) DueOn(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	d := t.DueDate.In(day.Location())
	y1, m1, d1 := d.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// TagIDs returns the ids of the attached tags, in order.
func (t Todo) TagIDs() []int {
	if len(t.Tags) == 0 {
		return nil
	}
	ids := make([]int, len(t.Tags))
	for i, tg := range t.Tags {
		ids[i] = tg.ID
	}
	return ids
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Todo) Clone() Todo {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Tags != nil {
		c.Tags = append([]Tag(nil), t.Tags...)
	}
	return c
}

// TodoInput is the body of a create request.
type TodoInput struct {
	Title       string     `json:"title" validate:"required,min=3,max=100"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	TagIDs      []int      `json:"tag_ids,omitempty"`
	Done        bool       `json:"is_done"`
}

// TodoPage is one page of the list endpoint.
type TodoPage struct {
	Items  []Todo `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
