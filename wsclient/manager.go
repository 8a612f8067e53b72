package wsclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"

	"github.com/thrasher-corp/wsresilient/internal/common"
	"github.com/thrasher-corp/wsresilient/internal/log"
)

// ManagerSetup is the construction-time configuration for a Manager,
// validated up front with a vala chain so misconfiguration fails in
// NewManager rather than deep inside the runtime task.
type ManagerSetup struct {
	Name               string
	DefaultURL         string
	RunningURL         string
	ConnectorFn        func(ctx context.Context, setup ConnectionSetup) (*Connection, error)
	MaxSubscriptions   int
	TrafficTimeout     time.Duration
	ProxyAddress       string
}

// Validate checks the required fields with a vala.BeginValidation
// chain, so every violated requirement is collected before returning,
// not just the first.
func (s *ManagerSetup) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(s.Name, "Name"),
		vala.StringNotEmpty(s.DefaultURL, "DefaultURL"),
		vala.IsNotNil(s.ConnectorFn, "ConnectorFn"),
		vala.GreaterThan(s.MaxSubscriptions, -1, "MaxSubscriptions"),
	).Check()
}

// Manager owns a named collection of Connections sharing one endpoint
// identity: it is the entry point hosts use to bring a websocket
// session up, tear it down, and reach an individual Connection to
// send or subscribe.
type Manager struct {
	setup ManagerSetup

	mu          sync.RWMutex
	connections map[string]*Connection
	cancels     map[string]context.CancelFunc
	enabled     bool

	log *log.SubLogger
}

// NewManager validates setup and returns a disabled Manager ready for
// Enable/Connect.
func NewManager(setup ManagerSetup) (*Manager, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	if setup.RunningURL == "" {
		setup.RunningURL = setup.DefaultURL
	}
	return &Manager{
		setup:       setup,
		connections: make(map[string]*Connection),
		cancels:     make(map[string]context.CancelFunc),
		log:         log.New("websocket." + setup.Name),
	}, nil
}

// Enable flips the Manager on; Connect returns ErrWebsocketNotEnabled
// until this is called.
// The enable/disable toggle is independent of the connection lifecycle
// itself.
func (m *Manager) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled {
		return ErrWebsocketAlreadyEnabled
	}
	m.enabled = true
	m.log.Infof("websocket enabled")
	return nil
}

func (m *Manager) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return ErrAlreadyDisabled
	}
	m.enabled = false
	m.log.Infof("websocket disabled")
	return nil
}

// Connect builds a Connection named key via the configured
// ConnectorFn, starts its runtime task, and opens it.
func (m *Manager) Connect(ctx context.Context, key string, connSetup ConnectionSetup) (*Connection, error) {
	m.mu.RLock()
	enabled := m.enabled
	_, exists := m.connections[key]
	m.mu.RUnlock()
	if !enabled {
		return nil, ErrWebsocketNotEnabled
	}
	if exists {
		return nil, errAlreadyConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	conn, err := m.setup.ConnectorFn(runCtx, connSetup)
	if err != nil {
		cancel()
		return nil, err
	}
	if conn == nil {
		cancel()
		return nil, common.NilErrorf(conn, "Connect: ConnectorFn")
	}

	m.mu.Lock()
	m.connections[key] = conn
	m.cancels[key] = cancel
	m.mu.Unlock()

	go conn.Run(runCtx)
	if err := conn.Open(runCtx); err != nil {
		m.log.Errorf("connect %s: %v", key, err)
		cancel()
		return conn, err
	}
	m.log.Infof("connect %s: dialing %s", key, connSetup.Endpoint.url())
	return conn, nil
}

// GetConnection returns the Connection registered under key, if any.
func (m *Manager) GetConnection(key string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[key]
	return c, ok
}

// SetProxyAddress records addr as the Manager's proxy address.
// Changing it to the address already in effect is rejected as a no-op.
// Connect does not read it: each Connection dials through whatever
// proxy its Transport was built with.
func (m *Manager) SetProxyAddress(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr == m.setup.ProxyAddress {
		return errSameProxyAddress
	}
	m.setup.ProxyAddress = addr
	return nil
}

// Shutdown closes every tracked Connection and disables the Manager.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for key, conn := range m.connections {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("connection %s: %w", key, err)
		}
		if cancel, ok := m.cancels[key]; ok {
			cancel()
		}
		delete(m.connections, key)
		delete(m.cancels, key)
	}
	m.enabled = false
	m.log.Infof("shutdown complete")
	return firstErr
}

// monitorTraffic watches for inbound silence longer than
// TrafficTimeout on the named Connection and forces a transport_down
// style reconnect, guarding against a peer that stops sending without
// ever closing the socket.
func (m *Manager) monitorTraffic(ctx context.Context, key string, lastSeen func() time.Time) {
	if m.setup.TrafficTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(m.setup.TrafficTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(lastSeen()) <= m.setup.TrafficTimeout {
				continue
			}
			conn, ok := m.GetConnection(key)
			if !ok {
				return
			}
			conn.onError(ctx, nil, errTrafficTimeout)
		}
	}
}

// monitorConnection restarts Connect for key if its Connection's
// runtime task ever exits (an explicit Close or cancellation of its
// context) while the Manager is still enabled. A policy-driven stop
// moves the Connection to closed without ending its runtime task, so
// it does not trigger a restart.
func (m *Manager) monitorConnection(ctx context.Context, key string, rebuild func() ConnectionSetup) {
	conn, ok := m.GetConnection(key)
	if !ok {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-conn.Done():
	}
	m.mu.RLock()
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled {
		return
	}
	m.mu.Lock()
	delete(m.connections, key)
	m.mu.Unlock()
	m.Connect(ctx, key, rebuild())
}
