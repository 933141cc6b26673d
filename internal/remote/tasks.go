package remote

import (
	"context"

	"kanban/internal/model"
)

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	data, err := c.doGet(ctx, "/api/tasks")
	if err != nil {
		return nil, err
	}
	tasks, skipped, err := model.DecodeTasks(data)
	if err != nil {
		return nil, malformed("tasks", err)
	}
	for _, e := range skipped {
		c.logger.Warn().Err(e).Msg("skipping unreadable task record")
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	t.ID = ""
	data, err := c.doPost(ctx, "/api/tasks", t)
	if err != nil {
		return model.Task{}, err
	}
	created, err := model.DecodeTask(data)
	if err != nil {
		return model.Task{}, malformed("task", err)
	}
	return created, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, t model.Task) (model.Task, error) {
	data, err := c.doPut(ctx, itemPath("tasks", id), t)
	if err != nil {
		return model.Task{}, err
	}
	updated, err := model.DecodeTask(data)
	if err != nil {
		return model.Task{}, malformed("task", err)
	}
	return updated, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doDelete(ctx, itemPath("tasks", id))
}
