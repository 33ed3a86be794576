package heartbeat

import (
	"math"

	"github.com/samber/lo"
)

// UptimePercentage returns the rounded share of successful heartbeats, 0 for an empty window.
func UptimePercentage(heartbeats []Heartbeat) int {
	total := len(heartbeats)
	if total == 0 {
		return 0
	}
	failed := lo.CountBy(heartbeats, Heartbeat.Failed)
	return int(math.Round(100 * float64(total-failed) / float64(total)))
}
