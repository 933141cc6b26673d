package remote

import (
	"context"

	"kanban/internal/model"
)

func (c *Client) ListStaff(ctx context.Context) ([]model.Staff, error) {
	data, err := c.doGet(ctx, "/api/staff")
	if err != nil {
		return nil, err
	}
	staff, err := model.DecodeStaffList(data)
	if err != nil {
		return nil, malformed("staff", err)
	}
	return staff, nil
}

func (c *Client) CreateStaff(ctx context.Context, s model.Staff) (model.Staff, error) {
	s.ID = ""
	data, err := c.doPost(ctx, "/api/staff", s)
	if err != nil {
		return model.Staff{}, err
	}
	created, err := model.DecodeStaff(data)
	if err != nil {
		return model.Staff{}, malformed("staff", err)
	}
	return created, nil
}

func (c *Client) UpdateStaff(ctx context.Context, id string, patch any) (model.Staff, error) {
	data, err := c.doPut(ctx, itemPath("staff", id), patch)
	if err != nil {
		return model.Staff{}, err
	}
	s, err := model.DecodeStaff(data)
	if err != nil {
		return model.Staff{}, malformed("staff", err)
	}
	return s, nil
}

func (c *Client) DeleteStaff(ctx context.Context, id string) error {
	return c.doDelete(ctx, itemPath("staff", id))
}
