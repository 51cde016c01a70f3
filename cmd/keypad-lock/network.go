package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/sweeney/keypad-lock/internal/status"
)

// piHelperEnvPath is where pi-helper writes the current network state. It is
// re-read on every heartbeat so the status reflects Wi-Fi changes without a
// restart.
var piHelperEnvPath = "/run/pi-helper.env"

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// readNetworkInfo prefers the pi-helper file and falls back to the process
// environment. It returns nil when no network status is known.
func readNetworkInfo() *status.NetworkInfo {
	vars, err := godotenv.Read(piHelperEnvPath)
	if err != nil {
		vars = nil
	}
	get := func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}

// refreshSystemInfo updates network and process details on the tracker.
func refreshSystemInfo(tracker *status.Tracker) {
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	proc, err := status.ReadProcessInfo()
	if err != nil {
		log.Printf("process stats: %v", err)
		return
	}
	tracker.SetProcess(proc)
}
