package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Actuator      string       `json:"actuator"`
	BufferLength  int          `json:"buffer_length"`
	LastEvent     string       `json:"last_event,omitempty"`
	LastEventAt   string       `json:"last_event_at,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Process       *ProcessJSON `json:"process,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Keys    int `json:"keys"`
	Dropped int `json:"dropped"`
	Resets  int `json:"resets"`
	Granted int `json:"granted"`
	Denied  int `json:"denied"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ProcessJSON is the JSON representation of process usage.
type ProcessJSON struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs         int64  `json:"poll_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	BufferCapacity int    `json:"buffer_capacity"`
	UnlockSteps    int    `json:"unlock_steps"`
	LockSteps      int    `json:"lock_steps"`
	DwellMs        int64  `json:"dwell_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	actuator := string(snap.Actuator)
	if actuator == "" {
		actuator = "UNKNOWN"
	}

	inner := StatusInner{
		Actuator:      actuator,
		BufferLength:  snap.BufferLen,
		LastEvent:     string(snap.LastEvent),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Keys:    snap.Counts.Keys,
			Dropped: snap.Counts.Dropped,
			Resets:  snap.Counts.Resets,
			Granted: snap.Counts.Granted,
			Denied:  snap.Counts.Denied,
		},
		Config: ConfigJSON{
			PollMs:         snap.Config.PollMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
			BufferCapacity: snap.Config.BufferCapacity,
			UnlockSteps:    snap.Config.UnlockSteps,
			LockSteps:      snap.Config.LockSteps,
			DwellMs:        snap.Config.DwellMs,
		},
	}
	if !snap.LastEventAt.IsZero() {
		inner.LastEventAt = snap.LastEventAt.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildOptional(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	if snap.Process != nil {
		inner.Process = &ProcessJSON{
			CPUPercent: snap.Process.CPUPercent,
			RSSBytes:   snap.Process.RSSBytes,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildOptional(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildOptional(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
