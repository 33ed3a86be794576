package executor

import (
	"context"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/internals/modules/probe"
)

type tcpChecker struct{}

// Check passes when the connection state matches and the connect time stays under the ceiling.
func (tcpChecker) Check(ctx context.Context, m monitor.Monitor) (heartbeat.Heartbeat, bool) {
	maxRT, err := m.MaxResponseTime()
	if err != nil {
		return configFailure("Invalid response time assertion"), false
	}

	out, err := probe.TCP(ctx, m.URL, m.Port, seconds(m.Timeout))
	if err != nil {
		return failureBeat(probe.AsFailure(err)), false
	}

	hb := outcomeBeat(out)
	if out.Status != expectedConnection(m) || (maxRT > 0 && out.ResponseTime > maxRT) {
		hb.Message = "Failed tcp response assertion"
		hb.Code = 500
		return hb, false
	}
	return hb, true
}

type mongoChecker struct{}

func (mongoChecker) Check(ctx context.Context, m monitor.Monitor) (heartbeat.Heartbeat, bool) {
	out, err := probe.MongoPing(ctx, m.URL, seconds(m.Timeout))
	return assertConnection(m, out, err, "Failed mongodb response assertion")
}

type redisChecker struct{}

func (redisChecker) Check(ctx context.Context, m monitor.Monitor) (heartbeat.Heartbeat, bool) {
	out, err := probe.RedisPing(ctx, m.URL, seconds(m.Timeout))
	return assertConnection(m, out, err, "Failed redis response assertion")
}

func assertConnection(m monitor.Monitor, out probe.Outcome, err error, failMsg string) (heartbeat.Heartbeat, bool) {
	if err != nil {
		return failureBeat(probe.AsFailure(err)), false
	}

	hb := outcomeBeat(out)
	if out.Status != expectedConnection(m) {
		hb.Message = failMsg
		hb.Code = 500
		return hb, false
	}
	return hb, true
}

func expectedConnection(m monitor.Monitor) string {
	if m.Connection == "" {
		return probe.Established
	}
	return m.Connection
}

func outcomeBeat(out probe.Outcome) heartbeat.Heartbeat {
	return heartbeat.Heartbeat{
		Code:         out.Code,
		Message:      out.Message,
		ResponseTime: out.ResponseTime,
		Connection:   out.Status,
	}
}

func failureBeat(f *probe.Failure) heartbeat.Heartbeat {
	return heartbeat.Heartbeat{
		Code:         f.Code,
		Message:      f.Message,
		ResponseTime: f.ResponseTime,
		Connection:   f.Status,
	}
}
