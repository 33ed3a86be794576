package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"uptimer/internals/modules/monitor"

	"github.com/redis/go-redis/v9"
)

// CachedStatus is the last tick result of a monitor.
type CachedStatus struct {
	MonitorID  int            `json:"monitorId"`
	Status     monitor.Status `json:"status"`
	StatusCode int            `json:"statusCode"`
	LatencyMs  int64          `json:"latencyMs"`
	CheckedAt  time.Time      `json:"checkedAt"`
}

func statusKey(monitorID int) string {
	return fmt.Sprintf("monitor:status:%d", monitorID)
}

func (c *Client) StoreStatus(ctx context.Context, monitorID int, st monitor.Status, statusCode int, latencyMs int64, checkedAt time.Time) error {
	key := statusKey(monitorID)

	return retry(ctx, 2, func() error {
		return c.rdb.HSet(ctx, key, map[string]any{
			"status":      int(st),
			"status_code": statusCode,
			"latency_ms":  latencyMs,
			"checked_at":  checkedAt.Unix(),
		}).Err()
	})
}

// GetStatus reports false when nothing was cached for the monitor yet.
func (c *Client) GetStatus(ctx context.Context, monitorID int) (CachedStatus, bool, error) {
	res, err := c.rdb.HGetAll(ctx, statusKey(monitorID)).Result()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	if len(res) == 0 {
		return CachedStatus{}, false, nil
	}

	out := CachedStatus{MonitorID: monitorID}
	st, _ := strconv.Atoi(res["status"])
	out.Status = monitor.Status(st)
	out.StatusCode, _ = strconv.Atoi(res["status_code"])
	out.LatencyMs, _ = strconv.ParseInt(res["latency_ms"], 10, 64)
	if ts, err := strconv.ParseInt(res["checked_at"], 10, 64); err == nil {
		out.CheckedAt = time.Unix(ts, 0).UTC()
	}
	return out, true, nil
}

func (c *Client) DelStatus(ctx context.Context, monitorID int) error {
	return c.rdb.Del(ctx, statusKey(monitorID)).Err()
}
