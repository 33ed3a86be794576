package heartbeat

import (
	"testing"

	"uptimer/internals/modules/monitor"

	"github.com/stretchr/testify/assert"
)

func beats(up, down int) []Heartbeat {
	out := make([]Heartbeat, 0, up+down)
	for range up {
		out = append(out, Heartbeat{Status: monitor.StatusUp})
	}
	for range down {
		out = append(out, Heartbeat{Status: monitor.StatusDown})
	}
	return out
}

func TestUptimePercentage(t *testing.T) {
	cases := []struct {
		name string
		in   []Heartbeat
		want int
	}{
		{"nil window", nil, 0},
		{"empty window", []Heartbeat{}, 0},
		{"all up", beats(4, 0), 100},
		{"all down", beats(0, 3), 0},
		{"half", beats(5, 5), 50},
		{"one of three up", beats(1, 2), 33},
		{"two of three up", beats(2, 1), 67},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UptimePercentage(tc.in))
		})
	}
}

func TestHeartbeatTime(t *testing.T) {
	hb := Heartbeat{Timestamp: 1700000000123}
	assert.Equal(t, int64(1700000000123), hb.Time().UnixMilli())
	assert.Equal(t, "UTC", hb.Time().Location().String())
}
