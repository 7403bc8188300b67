package listview

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/validate"
)

func TestTagsLifecycle(t *testing.T) {
	f := newFixture(t, 0, Options{})
	tags := f.c.Tags()
	ctx := context.Background()

	work, err := tags.Create(ctx, " work ", "#ff0000")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tags.Create(ctx, "home", ""); err != nil {
		t.Fatal(err)
	}
	if got, ok := tags.Find("WORK"); !ok || got.ID != work.ID || got.Name != "work" {
		t.Fatalf("Find = %+v, %v", got, ok)
	}

	if _, err := tags.Update(ctx, work.ID, "office", "#00ff00"); err != nil {
		t.Fatal(err)
	}
	if got, _ := tags.Find("office"); got.Color != "#00ff00" {
		t.Fatalf("updated tag = %+v", got)
	}

	if err := tags.Delete(ctx, work.ID); err != nil {
		t.Fatal(err)
	}
	if err := tags.Load(ctx); err != nil {
		t.Fatal(err)
	}
	list := tags.List()
	if len(list) != 1 || list[0].Name != "home" {
		t.Fatalf("List = %+v", list)
	}
}

func TestTagValidationAndErrors(t *testing.T) {
	f := newFixture(t, 0, Options{})
	tags := f.c.Tags()
	ctx := context.Background()

	var ve *validate.Error
	if _, err := tags.Create(ctx, "", ""); !errors.As(err, &ve) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := tags.Create(ctx, "x", "red"); !errors.As(err, &ve) {
		t.Fatalf("bad color: %v", err)
	}
	if n := f.srv.Requests(http.MethodPost, "/tags"); n != 0 {
		t.Fatalf("POST /tags = %d", n)
	}

	if _, err := tags.Create(ctx, "dup", ""); err != nil {
		t.Fatal(err)
	}
	_, err := tags.Create(ctx, "DUP", "")
	if api.StatusOf(err) != http.StatusBadRequest || api.Message(err) != "Tag already exists" {
		t.Fatalf("duplicate: %v", err)
	}
	if len(tags.List()) != 1 {
		t.Fatalf("failed create changed the list: %+v", tags.List())
	}
}
