package model

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#6366f1"

// TagPalette is the set of preset colors offered when creating a tag.
// Any #rrggbb value is accepted.
var TagPalette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#06b6d4", "#3b82f6", "#6366f1", "#a855f7",
	"#ec4899", "#64748b",
}

type Tag struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagInput is the body for creating or replacing a tag.
type TagInput struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"required,hexcolor,len=7"`
}

// ResolveTags maps ids to tags from known, preserving the order of ids.
func ResolveTags(ids []int, known []Tag) []Tag {
	if len(ids) == 0 {
		return nil
	}
	byID := make(map[int]Tag, len(known))
	for _, t := range known {
		byID[t.ID] = t
	}
	out := make([]Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		} else {
			out = append(out, Tag{ID: id})
		}
	}
	return out
}
