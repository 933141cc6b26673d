package remote

import (
	"context"

	"kanban/internal/model"
)

func (c *Client) ListBookings(ctx context.Context) ([]model.Booking, error) {
	data, err := c.doGet(ctx, "/api/bookings")
	if err != nil {
		return nil, err
	}
	bookings, err := model.DecodeBookings(data)
	if err != nil {
		return nil, malformed("bookings", err)
	}
	return bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	b.ID = ""
	data, err := c.doPost(ctx, "/api/bookings", b)
	if err != nil {
		return model.Booking{}, err
	}
	created, err := model.DecodeBooking(data)
	if err != nil {
		return model.Booking{}, malformed("booking", err)
	}
	return created, nil
}

// UpdateBooking sends patch (a full model.Booking or a partial map) and
// returns the canonical record.
func (c *Client) UpdateBooking(ctx context.Context, id string, patch any) (model.Booking, error) {
	data, err := c.doPut(ctx, itemPath("bookings", id), patch)
	if err != nil {
		return model.Booking{}, err
	}
	b, err := model.DecodeBooking(data)
	if err != nil {
		return model.Booking{}, malformed("booking", err)
	}
	return b, nil
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.doDelete(ctx, itemPath("bookings", id))
}
