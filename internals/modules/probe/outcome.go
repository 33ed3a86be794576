// Package probe performs single network checks and normalizes what they observe.
package probe

import (
	"errors"
	"time"
)

// Connection states reported by every probe.
const (
	Established = "established"
	Refused     = "refused"
)

type Outcome struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTime"` // ms
	Message      string `json:"message"`
	Code         int    `json:"code"`
}

// Failure is a probe that could not complete. It carries the same shape as a success.
type Failure struct {
	Outcome
	Err error
}

func (f *Failure) Error() string {
	if f.Err != nil && f.Err.Error() != f.Message {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts the normalized failure from err. Any other error becomes a refused outcome.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{
		Outcome: Outcome{Status: Refused, Code: 500, Message: err.Error()},
		Err:     err,
	}
}

func refused(start time.Time, code int, msg string, err error) *Failure {
	return &Failure{
		Outcome: Outcome{
			Status:       Refused,
			ResponseTime: time.Since(start).Milliseconds(),
			Message:      msg,
			Code:         code,
		},
		Err: err,
	}
}

func established(start time.Time, code int, msg string) Outcome {
	return Outcome{
		Status:       Established,
		ResponseTime: time.Since(start).Milliseconds(),
		Message:      msg,
		Code:         code,
	}
}
