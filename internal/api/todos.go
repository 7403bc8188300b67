package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/idilsaglam/todoclient/internal/model"
)

func (c *Client) ListTodos(ctx context.Context, p model.ListParams) (model.TodoPage, error) {
	q := url.Values{}
	if err := schemaEncoder.Encode(p, q); err != nil {
		return model.TodoPage{}, fmt.Errorf("encode query: %w", err)
	}
	var page model.TodoPage
	if err := c.doJSON(ctx, http.MethodGet, "/todos", q, nil, &page); err != nil {
		return model.TodoPage{}, err
	}
	if page.Items == nil {
		page.Items = []model.Todo{}
	}
	return page, nil
}

func (c *Client) CreateTodo(ctx context.Context, in model.TodoInput) (model.Todo, error) {
	var t model.Todo
	err := c.doJSON(ctx, http.MethodPost, "/todos", nil, in, &t)
	return t, err
}

func (c *Client) UpdateTodo(ctx context.Context, id int, p model.TodoPatch) (model.Todo, error) {
	var t model.Todo
	err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/todos/%d", id), nil, p, &t)
	return t, err
}

func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/todos/%d", id), nil, nil, nil)
}

// DeleteCompleted removes every completed todo of the user. The count is
// reported when the server includes one, else -1.
func (c *Client) DeleteCompleted(ctx context.Context) (int, error) {
	var out struct {
		Deleted *int `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/todos/completed", nil, nil, &out); err != nil {
		return 0, err
	}
	if out.Deleted == nil {
		return -1, nil
	}
	return *out.Deleted, nil
}
