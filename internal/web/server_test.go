package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/keypad-lock/internal/audit"
	"github.com/sweeney/keypad-lock/internal/lock"
	"github.com/sweeney/keypad-lock/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *audit.MemoryStore) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:         20,
		HeartbeatMs:    900000,
		Broker:         "tcp://192.168.1.200:1883",
		HTTPAddr:       ":80",
		BufferCapacity: 32,
		UnlockSteps:    123,
		LockSteps:      123,
		DwellMs:        5000,
	}
	tr := status.NewTracker(start, cfg)
	store := audit.NewMemoryStore()
	srv := New(":0", tr, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, store
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
	}
	return resp
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(2, lock.Counts{Keys: 6, Granted: 1, Denied: 1})
	tr.SetMQTTConnected(true)

	var sj status.StatusJSON
	resp := getJSON(t, ts.URL+"/index.json", &sj)

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if sj.Status.Actuator != "IDLE" {
		t.Errorf("Actuator: got %q, want IDLE", sj.Status.Actuator)
	}
	if sj.Status.BufferLength != 2 {
		t.Errorf("BufferLength: got %d, want 2", sj.Status.BufferLength)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Keys != 6 {
		t.Errorf("Counts.Keys: got %d, want 6", sj.Status.Counts.Keys)
	}
	if sj.Status.Config.PollMs != 20 {
		t.Errorf("Config.PollMs: got %d, want 20", sj.Status.Config.PollMs)
	}
	if sj.Status.Config.UnlockSteps != 123 {
		t.Errorf("Config.UnlockSteps: got %d, want 123", sj.Status.Config.UnlockSteps)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.RecordEvent(lock.Event{Timestamp: time.Now(), Type: lock.EventGranted, Length: 4})
	tr.SetProcess(&status.ProcessInfo{CPUPercent: 2.5, RSSBytes: 12 << 20})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"Keypad Lock", "GRANTED", "IDLE", "12.0 MiB", "123 unlock"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestPostIsRejected(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	var sj1 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj1)
	if sj1.Status.LastEvent != "" {
		t.Errorf("expected no last event initially, got %q", sj1.Status.LastEvent)
	}

	tr.SetActuator(lock.ActuatorOpen)
	tr.RecordEvent(lock.Event{Timestamp: time.Now(), Type: lock.EventGranted})
	tr.SetMQTTConnected(true)

	var sj2 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj2)

	if sj2.Status.Actuator != "OPEN" {
		t.Errorf("Actuator: got %q, want OPEN", sj2.Status.Actuator)
	}
	if sj2.Status.LastEvent != "GRANTED" {
		t.Errorf("LastEvent: got %q, want GRANTED", sj2.Status.LastEvent)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestAttemptsEndpoint(t *testing.T) {
	ts, _, store := newTestServer(t)
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.Record(context.Background(), audit.Attempt{ID: "a", At: t0, Granted: false, Length: 3, Reason: audit.ReasonMismatch})
	store.Record(context.Background(), audit.Attempt{ID: "b", At: t0.Add(time.Minute), Granted: true, Length: 4, Reason: audit.ReasonMatch})

	var aj AttemptsJSON
	resp := getJSON(t, ts.URL+"/attempts.json", &aj)

	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if len(aj.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(aj.Attempts))
	}
	if aj.Attempts[0].ID != "b" || !aj.Attempts[0].Granted {
		t.Errorf("expected newest granted attempt first, got %+v", aj.Attempts[0])
	}
	if aj.Attempts[1].Timestamp != "2026-01-01T10:00:00Z" {
		t.Errorf("Timestamp: got %q", aj.Attempts[1].Timestamp)
	}
	if aj.Attempts[1].Length != 3 {
		t.Errorf("Length: got %d, want 3", aj.Attempts[1].Length)
	}
}

func TestAttemptsEndpointLimit(t *testing.T) {
	ts, _, store := newTestServer(t)
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.Record(context.Background(), audit.Attempt{ID: string(rune('a' + i)), At: t0.Add(time.Duration(i) * time.Second)})
	}

	var aj AttemptsJSON
	getJSON(t, ts.URL+"/attempts.json?limit=2", &aj)

	if len(aj.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(aj.Attempts))
	}
	if aj.Attempts[0].ID != "e" {
		t.Errorf("expected newest first, got %q", aj.Attempts[0].ID)
	}
}

func TestAttemptsEndpointEmptyIsArray(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/attempts.json")
	if err != nil {
		t.Fatalf("GET /attempts.json: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"attempts": []`) {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestAttemptsEndpointBadLimit(t *testing.T) {
	ts, _, _ := newTestServer(t)

	for _, q := range []string{"abc", "0", "-3"} {
		resp := getJSON(t, ts.URL+"/attempts.json?limit="+q, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s: got %d, want 400", q, resp.StatusCode)
		}
	}
}

type failingLister struct{}

func (failingLister) Recent(ctx context.Context, limit int) ([]audit.Attempt, error) {
	return nil, errors.New("disk on fire")
}

func TestAttemptsEndpointListerError(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, failingLister{}).Handler())
	defer ts.Close()

	resp := getJSON(t, ts.URL+"/attempts.json", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}

func TestAttemptsRouteAbsentWithoutLister(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp := getJSON(t, ts.URL+"/attempts.json", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
