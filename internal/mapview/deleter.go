package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// PointDeleter removes a single point for the map's user.
type PointDeleter interface {
	DeletePoint(ctx context.Context, id int64) error
}

// DeleterFunc adapts a function to PointDeleter.
type DeleterFunc func(ctx context.Context, id int64) error

func (f DeleterFunc) DeletePoint(ctx context.Context, id int64) error {
	return f(ctx, id)
}

const defaultDeleteTimeout = 10 * time.Second

var ErrUnexpectedResponse = errors.New("mapview: unexpected delete response")

// APIDeleter calls DELETE /api/v1/points/{id} on a running server and
// requires a JSON body back.
type APIDeleter struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (d APIDeleter) DeletePoint(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/api/v1/points/%d?api_key=%s",
		strings.TrimRight(d.BaseURL, "/"), id, url.QueryEscape(d.APIKey))

	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDeleteTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return context.DeadlineExceeded
		}
		timeout = min(timeout, left)
	}

	agent := fiber.Delete(endpoint).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnexpectedResponse, code)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}
