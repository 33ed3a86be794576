// Package status decides monitor status transitions and alert hysteresis.
package status

import "uptimer/internals/modules/monitor"

type AlertKind string

const (
	AlertNone    AlertKind = ""
	AlertFailure AlertKind = "errorStatus"
	AlertRecover AlertKind = "successStatus"
)

// AlertState is the in-memory hysteresis for one monitor.
type AlertState struct {
	Failures   int
	Suppressed bool
}

type Decision struct {
	Status  monitor.Status
	Changed bool
	Alert   AlertKind
}

// Decide applies one tick result to state. Changed is true only on an up/down edge.
// Failures count every failing tick; a success resets them.
func Decide(prev monitor.Status, success bool, threshold int, state *AlertState) Decision {
	d := Decision{Status: monitor.StatusUp}
	if !success {
		d.Status = monitor.StatusDown
	}
	d.Changed = d.Status != prev

	if !success {
		state.Failures++
		if threshold > 0 && state.Failures > threshold && !state.Suppressed {
			d.Alert = AlertFailure
			state.Failures = 0
			state.Suppressed = true
		}
		return d
	}

	if state.Suppressed {
		d.Alert = AlertRecover
		state.Suppressed = false
	}
	state.Failures = 0
	return d
}

// CountFailure is the SSL variant: failures alert past the threshold, successes stay silent.
func CountFailure(success bool, threshold int, state *AlertState) bool {
	if success {
		state.Failures = 0
		return false
	}
	state.Failures++
	if threshold > 0 && state.Failures > threshold {
		state.Failures = 0
		return true
	}
	return false
}
