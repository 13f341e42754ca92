// Package monitor periodically reports the progress of a running simulation
// to a status file and the log.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the reporting interval when none is configured.
const DefaultInterval = time.Second

// Status is one progress report.
type Status struct {
	Time           time.Time `json:"time"`
	RunID          string    `json:"runId"`
	Policy         string    `json:"policy"`
	Ticks          int       `json:"ticks"`
	Vehicles       int       `json:"vehicles"`
	ActiveVehicles int       `json:"activeVehicles"`
	CarsCompleted  int       `json:"carsCompleted"`
	PendingWrites  int       `json:"pendingWrites"`
}

// StatusFunc returns the current status. It is called from the monitor goroutine.
type StatusFunc func() Status

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	StatusPath string // rewritten on every report, empty to only log
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
	last      Status
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent report.
func (s *Service) Last() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Start starts the status monitor goroutine. It is a no-op while already running.
func (s *Service) Start(status StatusFunc) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("error creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				// final report so the file reflects the end state
				s.report(status, statusFile)
				return
			case <-ticker.C:
				s.report(status, statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) report(status StatusFunc, statusFile *os.File) {
	st := status()
	if st.Time.IsZero() {
		st.Time = time.Now()
	}

	s.mu.Lock()
	s.last = st
	s.mu.Unlock()

	s.deps.Logger.Debug("Simulation progress",
		"runId", st.RunID,
		"policy", st.Policy,
		"ticks", st.Ticks,
		"activeVehicles", st.ActiveVehicles,
		"carsCompleted", st.CarsCompleted,
		"pendingWrites", st.PendingWrites,
	)

	if statusFile == nil {
		return
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	if err := statusFile.Truncate(0); err != nil {
		s.deps.Logger.Error("Error truncating status file", "error", err)
		return
	}
	if _, err := statusFile.WriteAt(append(data, '\n'), 0); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}
}

// Stop stops the status monitor and waits for its final report.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
}
