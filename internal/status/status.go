// Package status provides a thread-safe snapshot of the panel for the
// web server and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/interlock-panel/internal/panel"
)

// Config is the daemon configuration shown on the status page.
type Config struct {
	PollMs        int64
	DebounceTicks int
	LongMs        int64
	DoubleMs      int64
	ResetPulseMs  int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	Headless      bool
}

// Snapshot is a point-in-time view of daemon state. It is a value type
// and safe to use after the lock is released.
type Snapshot struct {
	Panel         panel.Report
	Ready         bool // a panel report has been received
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{StartTime: startTime, Config: cfg},
		now:  time.Now,
	}
}

// Update stores the latest panel report. Called from the poll loop.
func (t *Tracker) Update(r panel.Report) {
	t.mu.Lock()
	t.snap.Panel = r
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a copy of the daemon state with Now set to the time
// of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
