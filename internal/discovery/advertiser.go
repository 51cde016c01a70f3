// Package discovery advertises the status page over mDNS so the lock can be
// found on the local network without knowing its address.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// DNS-SD parameters for the status page.
const (
	ServiceHTTP   = "_http._tcp"
	DefaultDomain = "local."
	DefaultPort   = 80
)

var (
	// ErrClosed is returned when an operation is attempted on a closed advertiser.
	ErrClosed = errors.New("discovery: closed")

	// ErrAlreadyStarted is returned when starting an already-started advertisement.
	ErrAlreadyStarted = errors.New("discovery: already started")

	// ErrInvalidPort is returned when the port number is out of range.
	ErrInvalidPort = errors.New("discovery: invalid port (must be 1-65535)")
)

// MDNSServer is a running mDNS registration.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
// Tests substitute their own.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// Config holds configuration for the Advertiser.
type Config struct {
	// Instance is the DNS-SD instance name. Defaults to "keypad-lock-<hostname>".
	Instance string

	// Port is the HTTP port to advertise.
	Port int

	// TXT holds extra key=value records. "path=/" is always added.
	TXT []string

	// Interfaces restricts advertising to these interfaces. Nil means all.
	Interfaces []net.Interface

	// ServerFactory defaults to grandcat/zeroconf.
	ServerFactory MDNSServerFactory

	// LoggerFactory for creating loggers. Nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes the status page as an _http._tcp service.
type Advertiser struct {
	config  Config
	factory MDNSServerFactory
	log     logging.LeveledLogger

	mu     sync.Mutex
	server MDNSServer
	closed bool
}

// NewAdvertiser creates an Advertiser. Nothing is registered until Start.
func NewAdvertiser(config Config) (*Advertiser, error) {
	if config.Port <= 0 || config.Port > 65535 {
		return nil, ErrInvalidPort
	}
	if config.Instance == "" {
		config.Instance = defaultInstance()
	}

	factory := config.ServerFactory
	if factory == nil {
		factory = &zeroconfServerFactory{}
	}

	a := &Advertiser{config: config, factory: factory}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a, nil
}

// Instance returns the advertised instance name.
func (a *Advertiser) Instance() string {
	return a.config.Instance
}

// Start registers the service.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.server != nil {
		return ErrAlreadyStarted
	}

	txt := append([]string{"path=/"}, a.config.TXT...)
	server, err := a.factory.Register(a.config.Instance, ServiceHTTP, DefaultDomain, a.config.Port, txt, a.config.Interfaces)
	if err != nil {
		return fmt.Errorf("discovery: mDNS registration failed: %w", err)
	}
	a.server = server

	if a.log != nil {
		a.log.Infof("advertising %s.%s%s on port %d", a.config.Instance, ServiceHTTP, DefaultDomain, a.config.Port)
	}
	return nil
}

// IsAdvertising reports whether the service is registered.
func (a *Advertiser) IsAdvertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// Stop withdraws the service. It is a no-op if not started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Advertiser) stopLocked() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	if a.log != nil {
		a.log.Info("mDNS advertisement withdrawn")
	}
}

// Close stops the advertisement and prevents further use.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	a.stopLocked()
	a.closed = true
	return nil
}

// PortFromAddr extracts the port from a listen address such as ":8080".
// An address without a port yields 80.
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return DefaultPort, nil
	}
	if p == "" {
		return DefaultPort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("discovery: bad port in %q", addr)
	}
	return port, nil
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "keypad-lock"
	}
	return "keypad-lock-" + host
}
