package remote

import (
	"context"
	"strconv"

	"kanban/internal/model"
)

// ZonePatch is a partial zone update. Nil fields are omitted.
type ZonePatch struct {
	Name         *string       `json:"name,omitempty"`
	Capacity     *int          `json:"capacity,omitempty"`
	Branch       *model.Branch `json:"branch,omitempty"`
	IsNotCleaned *bool         `json:"isNotCleaned,omitempty"`
}

func zonePath(id int64) string {
	return itemPath("zones", strconv.FormatInt(id, 10))
}

func (c *Client) ListZones(ctx context.Context) ([]model.Zone, error) {
	data, err := c.doGet(ctx, "/api/zones")
	if err != nil {
		return nil, err
	}
	zones, err := model.DecodeZones(data)
	if err != nil {
		return nil, malformed("zones", err)
	}
	return zones, nil
}

func (c *Client) GetZone(ctx context.Context, id int64) (model.Zone, error) {
	data, err := c.doGet(ctx, zonePath(id))
	if err != nil {
		return model.Zone{}, err
	}
	z, err := model.DecodeZone(data)
	if err != nil {
		return model.Zone{}, malformed("zone", err)
	}
	return z, nil
}

func (c *Client) CreateZone(ctx context.Context, z model.Zone) (model.Zone, error) {
	payload := struct {
		Name     string       `json:"name"`
		Capacity int          `json:"capacity"`
		Branch   model.Branch `json:"branch"`
	}{z.Name, z.Capacity, z.Branch}
	data, err := c.doPost(ctx, "/api/zones", payload)
	if err != nil {
		return model.Zone{}, err
	}
	created, err := model.DecodeZone(data)
	if err != nil {
		return model.Zone{}, malformed("zone", err)
	}
	return created, nil
}

// UpdateZone sends patch, which may be a ZonePatch or a full model.Zone.
func (c *Client) UpdateZone(ctx context.Context, id int64, patch any) (model.Zone, error) {
	data, err := c.doPut(ctx, zonePath(id), patch)
	if err != nil {
		return model.Zone{}, err
	}
	z, err := model.DecodeZone(data)
	if err != nil {
		return model.Zone{}, malformed("zone", err)
	}
	return z, nil
}

// UpdateZoneRaw sends patch and returns the raw response body, for callers
// that must check field presence.
func (c *Client) UpdateZoneRaw(ctx context.Context, id int64, patch any) ([]byte, error) {
	return c.doPut(ctx, zonePath(id), patch)
}

func (c *Client) DeleteZone(ctx context.Context, id int64) error {
	return c.doDelete(ctx, zonePath(id))
}
