package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/idilsaglam/todoclient/internal/model"
)

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(model.TodoInput{Title: "ab"})
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if got := ve.Fields["title"]; got != "must be at least 3 characters" {
		t.Fatalf("title message = %q", got)
	}
	if !strings.HasPrefix(ve.Error(), "title ") {
		t.Fatalf("Error() = %q", ve.Error())
	}
}

func TestTagInput(t *testing.T) {
	cases := []struct {
		in    model.TagInput
		field string
	}{
		{model.TagInput{Name: "", Color: "#112233"}, "name"},
		{model.TagInput{Name: strings.Repeat("x", 51), Color: "#112233"}, "name"},
		{model.TagInput{Name: "work", Color: "red"}, "color"},
		{model.TagInput{Name: "work", Color: "#abc"}, "color"},
	}
	for _, tc := range cases {
		var ve *Error
		if err := Struct(tc.in); !errors.As(err, &ve) {
			t.Fatalf("%+v: err = %v", tc.in, err)
		}
		if _, ok := ve.Fields[tc.field]; !ok {
			t.Fatalf("%+v: fields = %v, want %s", tc.in, ve.Fields, tc.field)
		}
	}
	if err := Struct(model.TagInput{Name: "work", Color: "#6366f1"}); err != nil {
		t.Fatalf("valid tag: %v", err)
	}
}

func TestPatchSkipsNilFields(t *testing.T) {
	if err := Struct(model.TodoPatch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	short := "no"
	if err := Struct(model.TodoPatch{Title: &short}); err == nil {
		t.Fatal("short title accepted")
	}
}

func TestVar(t *testing.T) {
	if err := Var("email", "nope", "required,email"); err == nil {
		t.Fatal("bad email accepted")
	}
	if err := Var("email", "a@b.co", "required,email"); err != nil {
		t.Fatalf("good email: %v", err)
	}
}
