package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker logs the progress of a long pass at a fixed interval. It
// is safe for concurrent use by worker goroutines.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	now         func() time.Time
	mutex       sync.Mutex
}

// ProgressConfig configures progress tracking behavior
type ProgressConfig struct {
	Operation   string
	Total       int64
	LogInterval time.Duration
	Logger      Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewProgressTracker creates a tracker and logs the start of the operation.
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	start := config.Now()
	tracker := &ProgressTracker{
		logger:      config.Logger.WithField("operation", config.Operation),
		operation:   config.Operation,
		total:       config.Total,
		startTime:   start,
		lastLogTime: start,
		logInterval: config.LogInterval,
		now:         config.Now,
	}

	tracker.logger.WithField("total", config.Total).Debug("Starting operation")
	return tracker
}

// Increment counts one processed item
func (p *ProgressTracker) Increment() {
	p.Add(1)
}

// Add counts delta processed items
func (p *ProgressTracker) Add(delta int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current += delta
	now := p.now()
	if now.Sub(p.lastLogTime) >= p.logInterval {
		p.logger.WithFields(p.statsLocked(now).fields()).Info("Progress update")
		p.lastLogTime = now
	}
}

// Complete logs the final statistics. A non-nil err is logged at error level.
func (p *ProgressTracker) Complete(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	fields := p.statsLocked(p.now()).fields()
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("Operation completed with error")
		return
	}
	p.logger.WithFields(fields).Debug("Operation completed")
}

// Stats returns a snapshot of the progress so far
func (p *ProgressTracker) Stats() ProgressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.statsLocked(p.now())
}

func (p *ProgressTracker) statsLocked(now time.Time) ProgressStats {
	stats := ProgressStats{
		Operation: p.operation,
		Total:     p.total,
		Current:   p.current,
		Duration:  now.Sub(p.startTime),
	}
	if secs := stats.Duration.Seconds(); secs > 0 {
		stats.Rate = float64(p.current) / secs
	}
	if p.total > 0 {
		stats.Percentage = float64(p.current) / float64(p.total) * 100
		if p.current > 0 && stats.Rate > 0 {
			remaining := p.total - p.current
			stats.ETA = time.Duration(float64(remaining) / stats.Rate * float64(time.Second))
		}
	}
	return stats
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Operation  string        `json:"operation"`
	Total      int64         `json:"total"`
	Current    int64         `json:"current"`
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
	Rate       float64       `json:"rate"`
	ETA        time.Duration `json:"eta,omitempty"`
}

func (ps ProgressStats) fields() Fields {
	fields := Fields{
		"processed": ps.Current,
		"duration":  ps.Duration.String(),
		"rate":      fmt.Sprintf("%.2f/sec", ps.Rate),
	}
	if ps.Total > 0 {
		fields["total"] = ps.Total
		fields["percentage"] = fmt.Sprintf("%.1f%%", ps.Percentage)
		if ps.ETA > 0 {
			fields["eta"] = ps.ETA.String()
		}
	}
	return fields
}

// String returns a human-readable representation of the progress
func (ps ProgressStats) String() string {
	if ps.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%) at %.2f/sec, ETA: %v",
			ps.Operation, ps.Current, ps.Total, ps.Percentage, ps.Rate, ps.ETA)
	}
	return fmt.Sprintf("%s: %d processed at %.2f/sec, elapsed: %v",
		ps.Operation, ps.Current, ps.Rate, ps.Duration)
}
