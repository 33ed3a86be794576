package executor

import (
	"context"
	"encoding/json"

	"uptimer/internals/modules/alert"
	"uptimer/internals/modules/monitor"
	"uptimer/internals/modules/probe"
	"uptimer/internals/modules/status"
)

type sslTicker struct {
	e *Executor
}

// Tick overwrites the certificate snapshot and alerts only on failures.
func (s sslTicker) Tick(ctx context.Context, monitorID int) {
	e := s.e

	m, err := e.store.GetSSLMonitor(ctx, monitorID)
	if err != nil {
		e.logger.Error().Err(err).Int("monitor_id", monitorID).Msg("failed to load ssl monitor")
		return
	}
	if !m.Active {
		e.logger.Debug().Int("monitor_id", m.ID).Msg("ssl monitor inactive, tick skipped")
		return
	}

	info, err := e.certs.Check(ctx, m.URL)
	success := err == nil
	if err != nil {
		if info.Host == "" {
			info.Host = m.URL
			info.Type = probe.CertDanger
		}
		if info.Reason == "" {
			info.Reason = err.Error()
		}
	}

	snapshot, mErr := json.Marshal(info)
	if mErr != nil {
		e.logger.Error().Err(mErr).Int("monitor_id", m.ID).Msg("failed to encode ssl snapshot")
	} else if uErr := e.store.UpdateSSLInfo(ctx, m.ID, string(snapshot)); uErr != nil {
		e.logger.Error().Err(uErr).Int("monitor_id", m.ID).Msg("failed to update ssl info")
	}

	var fire bool
	e.states.Update(status.Key{Type: monitor.SSL, ID: m.ID}, func(st *status.AlertState) {
		fire = status.CountFailure(success, m.AlertThreshold, st)
	})
	if fire {
		e.sendAlert(ctx, m.ID, m.Name, m.NotificationID, alert.ErrorStatus)
	}

	if success {
		e.logger.Info().Int("monitor_id", m.ID).Str("type", info.Type).Int("days_left", info.Info.DaysLeft).Msg("ssl check success")
	} else {
		e.logger.Warn().Err(err).Int("monitor_id", m.ID).Msg("ssl check failed")
	}
}
