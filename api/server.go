package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moyoez/retadi-server/api/controllers"
	"github.com/moyoez/retadi-server/api/models"
	"github.com/moyoez/retadi-server/netaddr"
	"github.com/moyoez/retadi-server/notify"
	"github.com/moyoez/retadi-server/session"
	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Options configures a Server. Zero values pick sensible defaults.
type Options struct {
	Protocol  string // http | https
	Resolver  *netaddr.Resolver
	DeviceTTL time.Duration
	Notifier  *notify.Notifier
	Prober    *netaddr.Prober
	// Handler replaces the default handshake handler.
	Handler types.HandlerInterface
}

// Server is the pairing server: static assets for the companion app plus
// the handshake endpoint. It is the only writer of the session state.
type Server struct {
	state    *session.State
	protocol string
	resolver *netaddr.Resolver
	devices  *models.DeviceRegistry
	handler  types.HandlerInterface

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// Handler is the default handshake handler. It records the device and, when
// configured, fires a webhook notification and a reachability probe. Those
// side effects are throttled so a burst of handshakes cannot fan out.
type Handler struct {
	devices  *models.DeviceRegistry
	notifier *notify.Notifier
	prober   *netaddr.Prober
	limiter  *rate.Limiter
}

// NewDefaultHandler returns the default handshake handler.
func NewDefaultHandler(devices *models.DeviceRegistry, notifier *notify.Notifier, prober *netaddr.Prober) *Handler {
	return &Handler{
		devices:  devices,
		notifier: notifier,
		prober:   prober,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (h *Handler) OnConnect(device *types.ConnectedDevice) error {
	if device == nil {
		return fmt.Errorf("nil device")
	}
	h.devices.Record(*device)
	if h.notifier == nil && h.prober == nil {
		return nil
	}
	if !h.limiter.Allow() {
		tool.DefaultLogger.Debugf("[Connect] Side effects throttled for %s", device.RemoteAddr)
		return nil
	}
	go h.followUp(*device)
	return nil
}

func (h *Handler) followUp(device types.ConnectedDevice) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if h.notifier != nil {
		if err := h.notifier.DeviceConnected(ctx, &device); err != nil {
			tool.DefaultLogger.Errorf("[Notify] Failed to send device_connected notification: %v", err)
		}
	}
	if h.prober != nil {
		result, err := h.prober.Probe(ctx, device.RemoteAddr)
		if err != nil {
			tool.DefaultLogger.Debugf("[Probe] %v", err)
			return
		}
		tool.DefaultLogger.Infof("[Probe] %s reachable: %d/%d replies, avg rtt %s",
			result.Host, result.Received, result.Sent, result.AvgRTT)
	}
}

// NewServer creates a pairing server writing into state.
func NewServer(state *session.State, opts Options) *Server {
	if state == nil {
		state = session.New()
	}
	protocol := opts.Protocol
	if protocol == "" {
		protocol = "http"
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = netaddr.NewResolver(protocol)
	}
	devices := models.NewDeviceRegistry(opts.DeviceTTL)
	handler := opts.Handler
	if handler == nil {
		handler = NewDefaultHandler(devices, opts.Notifier, opts.Prober)
	}
	return &Server{
		state:    state,
		protocol: protocol,
		resolver: resolver,
		devices:  devices,
		handler:  handler,
	}
}

// Handler builds the HTTP handler serving assetRoot.
func (s *Server) Handler(assetRoot string) http.Handler {
	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(
		gin.RecoveryWithWriter(tool.DefaultLogger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}).Writer()),
		RequestLogger(),
		NoCache(),
		PermissiveCORS(),
	)

	connect := controllers.NewConnectController(s.handler)
	status := controllers.NewStatusController(s.state, s.devices, s.resolver)
	static := controllers.NewStaticController(assetRoot)

	router.POST(tool.ConnectPath, connect.HandleConnect)
	router.GET("/api/status", status.HandleStatus)
	router.NoRoute(static.HandleStatic)
	return router
}

// Devices lists recently connected devices, newest first.
func (s *Server) Devices() []types.ConnectedDevice {
	return s.devices.Recent()
}

// Start binds 0.0.0.0:port and serves assetRoot on a background goroutine.
// It returns once the bind step is done: *BindError if the port cannot be
// opened, ErrAlreadyRunning if a listener is already up. Port 0 picks a
// free port; the session records the real one.
func (s *Server) Start(port uint16, assetRoot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil || s.state.Snapshot().Running {
		return ErrAlreadyRunning
	}
	if info, err := os.Stat(assetRoot); err != nil || !info.IsDir() {
		tool.DefaultLogger.Warnf("Asset root %q is not a readable directory; static requests will 404", assetRoot)
	}

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Port: port, Err: err}
	}
	bound := uint16(listener.Addr().(*net.TCPAddr).Port)

	server := &http.Server{
		Handler:           s.Handler(assetRoot),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          tool.DefaultLogger.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}),
	}

	if s.protocol == "https" {
		tlsConfig, err := tool.SelfSignedTLSConfig()
		if err != nil {
			listener.Close()
			return fmt.Errorf("failed to prepare TLS: %w", err)
		}
		server.TLSConfig = tlsConfig
		listener = tls.NewListener(listener, tlsConfig)
		tool.DefaultLogger.Infof("TLS certificate generated and configured for HTTPS")
	}

	url := s.resolver.Resolve(bound)
	if err := s.state.MarkRunning(url, bound); err != nil {
		listener.Close()
		return err
	}

	done := make(chan struct{})
	s.server, s.listener, s.done = server, listener, done
	go s.serve(server, listener, done)

	tool.DefaultLogger.Infof("Pairing server listening on %s://0.0.0.0:%d, advertised as %s", s.protocol, bound, url)
	return nil
}

func (s *Server) serve(server *http.Server, listener net.Listener, done chan struct{}) {
	err := server.Serve(listener)
	close(done)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	tool.DefaultLogger.Errorf("Pairing server stopped unexpectedly: %v", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == server {
		s.server, s.listener, s.done = nil, nil, nil
		s.state.MarkStopped()
	}
}

// Stop closes the listener, drains in-flight requests until ctx expires and
// marks the session stopped.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return ErrNotRunning
	}
	server, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil

	err := server.Shutdown(ctx)
	if err != nil {
		_ = server.Close()
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.state.MarkStopped()
	tool.DefaultLogger.Info("Pairing server stopped")
	return err
}

// Addr is the bound listener address, nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
