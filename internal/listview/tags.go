package listview

import (
	"context"
	"strings"
	"sync"

	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/validate"
)

// Tags is the user's tag list. It is small and rarely changes, so edits wait
// for the server instead of being applied optimistically.
type Tags struct {
	api  API
	fail func(error)

	mu   sync.Mutex
	tags []model.Tag
}

func (t *Tags) List() []model.Tag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Tag(nil), t.tags...)
}

// Find returns the tag with the given name, case-insensitively.
func (t *Tags) Find(name string) (model.Tag, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tg := range t.tags {
		if strings.EqualFold(tg.Name, strings.TrimSpace(name)) {
			return tg, true
		}
	}
	return model.Tag{}, false
}

func (t *Tags) Load(ctx context.Context) error {
	tags, err := t.api.ListTags(ctx)
	if err != nil {
		t.fail(err)
		return err
	}
	t.mu.Lock()
	t.tags = tags
	t.mu.Unlock()
	return nil
}

func input(name, color string) (model.TagInput, error) {
	in := model.TagInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
	if in.Color == "" {
		in.Color = model.DefaultTagColor
	}
	return in, validate.Struct(in)
}

func (t *Tags) Create(ctx context.Context, name, color string) (model.Tag, error) {
	in, err := input(name, color)
	if err != nil {
		return model.Tag{}, err
	}
	tag, err := t.api.CreateTag(ctx, in)
	if err != nil {
		t.fail(err)
		return model.Tag{}, err
	}
	t.mu.Lock()
	t.tags = append(t.tags, tag)
	t.mu.Unlock()
	return tag, nil
}

func (t *Tags) Update(ctx context.Context, id int, name, color string) (model.Tag, error) {
	in, err := input(name, color)
	if err != nil {
		return model.Tag{}, err
	}
	tag, err := t.api.UpdateTag(ctx, id, in)
	if err != nil {
		t.fail(err)
		return model.Tag{}, err
	}
	t.mu.Lock()
	for i := range t.tags {
		if t.tags[i].ID == id {
			t.tags[i] = tag
		}
	}
	t.mu.Unlock()
	return tag, nil
}

func (t *Tags) Delete(ctx context.Context, id int) error {
	if err := t.api.DeleteTag(ctx, id); err != nil {
		t.fail(err)
		return err
	}
	t.mu.Lock()
	for i := range t.tags {
		if t.tags[i].ID == id {
			t.tags = append(t.tags[:i], t.tags[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	return nil
}
