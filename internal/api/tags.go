package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/idilsaglam/todoclient/internal/model"
)

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := c.doJSON(ctx, http.MethodGet, "/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) CreateTag(ctx context.Context, in model.TagInput) (model.Tag, error) {
	var t model.Tag
	err := c.doJSON(ctx, http.MethodPost, "/tags", nil, in, &t)
	return t, err
}

func (c *Client) UpdateTag(ctx context.Context, id int, in model.TagInput) (model.Tag, error) {
	var t model.Tag
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/tags/%d", id), nil, in, &t)
	return t, err
}

func (c *Client) DeleteTag(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/tags/%d", id), nil, nil, nil)
}
