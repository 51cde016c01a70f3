// Package status provides a thread-safe status tracker for the keypad-lock daemon.
// It is written by the poll loop and read by HTTP handlers and MQTT system events.
package status

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/sweeney/keypad-lock/internal/lock"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// ProcessInfo is a sample of the daemon's own resource usage.
type ProcessInfo struct {
	CPUPercent float64
	RSSBytes   uint64
}

// Config contains daemon configuration for display.
// The secret is deliberately absent.
type Config struct {
	PollMs         int64
	HeartbeatMs    int64
	Broker         string
	HTTPAddr       string
	BufferCapacity int
	UnlockSteps    int
	LockSteps      int
	DwellMs        int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	BufferLen     int
	Counts        lock.Counts
	Actuator      lock.ActuatorState
	LastEvent     lock.EventType
	LastEventAt   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Process       *ProcessInfo
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
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Actuator:  lock.ActuatorIdle,
			Config:    cfg,
		},
	}
}

// Update sets the buffer length and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(bufferLen int, counts lock.Counts) {
	t.mu.Lock()
	t.snap.BufferLen = bufferLen
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetActuator records the current unlock cycle phase.
func (t *Tracker) SetActuator(state lock.ActuatorState) {
	t.mu.Lock()
	t.snap.Actuator = state
	t.mu.Unlock()
}

// RecordEvent remembers the most recent handled event.
func (t *Tracker) RecordEvent(ev lock.Event) {
	t.mu.Lock()
	t.snap.LastEvent = ev.Type
	t.snap.LastEventAt = ev.Timestamp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetProcess sets the latest process resource sample.
func (t *Tracker) SetProcess(info *ProcessInfo) {
	t.mu.Lock()
	t.snap.Process = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// ReadProcessInfo samples CPU and resident memory for the current process.
func ReadProcessInfo() (*ProcessInfo, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		return nil, err
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return nil, err
	}

	return &ProcessInfo{CPUPercent: cpu, RSSBytes: mem.RSS}, nil
}
