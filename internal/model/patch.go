package model

import (
	"encoding/json"
	"time"
)

// TodoPatch is a partial update. Nil fields are left untouched on the server.
// ClearDueDate sends an explicit null for due_date.
type TodoPatch struct {
	Title        *string    `validate:"omitempty,min=3,max=100"`
	Description  *string    `validate:"omitempty,max=2000"`
	Done         *bool
	DueDate      *time.Time
	ClearDueDate bool
	TagIDs       *[]int
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Done == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.TagIDs == nil
}

func (p TodoPatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Done != nil {
		m["is_done"] = *p.Done
	}
	switch {
	case p.ClearDueDate:
		m["due_date"] = nil
	case p.DueDate != nil:
		m["due_date"] = p.DueDate.UTC().Format(time.RFC3339)
	}
	if p.TagIDs != nil {
		ids := *p.TagIDs
		if ids == nil {
			ids = []int{}
		}
		m["tag_ids"] = ids
	}
	return json.Marshal(m)
}

func (p *TodoPatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = TodoPatch{}
	if v, ok := raw["title"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		p.Title = &s
	}
	if v, ok := raw["description"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		p.Description = &s
	}
	if v, ok := raw["is_done"]; ok {
		var d bool
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		p.Done = &d
	}
	if v, ok := raw["due_date"]; ok {
		if string(v) == "null" {
			p.ClearDueDate = true
		} else {
			var t time.Time
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			p.DueDate = &t
		}
	}
	if v, ok := raw["tag_ids"]; ok {
		var ids []int
		if err := json.Unmarshal(v, &ids); err != nil {
			return err
		}
		p.TagIDs = &ids
	}
	return nil
}

// ApplyTo copies the patched fields onto t. Tags are resolved against known;
// ids without a known tag are kept with an empty name.
func (p TodoPatch) ApplyTo(t *Todo, known []Tag) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.TagIDs != nil {
		t.Tags = ResolveTags(*p.TagIDs, known)
	}
}
