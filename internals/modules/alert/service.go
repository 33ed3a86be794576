package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

type AlertService struct {
	// lifecycle
	workerCount int
	workerWG    sync.WaitGroup
	closeMu     sync.RWMutex
	closed      bool

	// channels
	alertChan chan AlertEvent

	// misc
	mailer Mailer
	logger *zerolog.Logger
}

func NewAlertService(workerCount int, alertChan chan AlertEvent, mailer Mailer, logger *zerolog.Logger) *AlertService {
	return &AlertService{
		workerCount: workerCount,
		alertChan:   alertChan,
		mailer:      mailer,
		logger:      logger,
	}
}

// Start starts the Alert Service
func (s *AlertService) Start() {

	s.workerWG.Add(s.workerCount)

	for range s.workerCount {
		go s.handleAlerts()
	}
}

// Dispatch queues an alert without blocking. It reports false when the alert was dropped.
func (s *AlertService) Dispatch(ev AlertEvent) bool {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.alertChan <- ev:
		return true
	default:
		s.logger.Warn().
			Int("monitor_id", ev.MonitorID).
			Str("template", string(ev.Template)).
			Msg("alert queue full, dropping alert")
		return false
	}
}

func (s *AlertService) handleAlerts() {
	defer s.workerWG.Done()

	for ev := range s.alertChan {
		s.deliver(ev)
	}
}

func (s *AlertService) deliver(ev AlertEvent) {
	recipients, err := ParseRecipients(ev.Emails)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("monitor_id", ev.MonitorID).
			Msg("invalid notification emails, alert skipped")
		return
	}

	for _, to := range recipients {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := s.mailer.Send(ctx, to, ev.Template, ev.Locals); err != nil {
			s.logger.Error().
				Err(err).
				Int("monitor_id", ev.MonitorID).
				Str("to", to).
				Msg("failed to send alert")
		}
		cancel()
	}
}

// Close stops accepting alerts; queued ones are still delivered.
func (s *AlertService) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.alertChan)
	}
}

// WorkerClosingWait waits for alert workers to complete
func (s *AlertService) WorkerClosingWait() {
	s.workerWG.Wait()
}
