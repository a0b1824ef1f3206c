package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyoez/retadi-server/api"
	"github.com/moyoez/retadi-server/netaddr"
	"github.com/moyoez/retadi-server/qr"
	"github.com/moyoez/retadi-server/session"
	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

const (
	TickInterval = 250 * time.Millisecond
	stopTimeout  = 3 * time.Second
	maxDevices   = 5
)

// Controller is the part of the server the shell drives.
type Controller interface {
	Start(port uint16, assetRoot string) error
	Stop(ctx context.Context) error
	Devices() []types.ConnectedDevice
}

type Options struct {
	Port       uint16
	AssetRoot  string
	Protocol   string
	QRSize     int
	AutoStart  bool
	Interfaces func() []netaddr.NetworkInfo
}

type (
	tickMsg    time.Time
	startedMsg struct{ err error }
	stoppedMsg struct{ err error }
)

// qrCache re-encodes only when the URL changes.
type qrCache struct {
	url    string
	bitmap *qr.Bitmap
	err    error
}

func (c *qrCache) get(url string, size int) (*qr.Bitmap, error) {
	if url != c.url {
		c.url = url
		c.bitmap, c.err = qr.Encode(url, size, size)
		if c.err != nil {
			tool.DefaultLogger.Warnf("QR encoding failed for %s: %v", url, c.err)
		}
	}
	return c.bitmap, c.err
}

// Shell is the bubbletea model. It only reads session state; the server
// is the single writer.
type Shell struct {
	server   Controller
	state    session.Reader
	opts     Options
	cache    qrCache
	view     View
	stopping bool
	quitting bool
}

func NewShell(server Controller, state session.Reader, opts Options) *Shell {
	if opts.QRSize <= 0 {
		opts.QRSize = tool.DefaultQRSize
	}
	if opts.Port == 0 {
		opts.Port = tool.DefaultPort
	}
	s := &Shell{
		server: server,
		state:  state,
		opts:   opts,
		view: View{
			Tab:       TabConnect,
			Port:      opts.Port,
			Protocol:  opts.Protocol,
			AssetRoot: opts.AssetRoot,
			Version:   tool.Version,
		},
	}
	s.refresh()
	return s
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (s *Shell) Init() tea.Cmd {
	if s.opts.AutoStart {
		s.view.Starting = true
		return tea.Batch(tick(), s.startCmd())
	}
	return tick()
}

func (s *Shell) startCmd() tea.Cmd {
	port, root := s.view.Port, s.opts.AssetRoot
	return func() tea.Msg {
		return startedMsg{err: s.server.Start(port, root)}
	}
}

func (s *Shell) stopCmd(quit bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err := s.server.Stop(ctx)
		if quit {
			if err != nil && !errors.Is(err, api.ErrNotRunning) {
				tool.DefaultLogger.Errorf("Stopping server on quit: %v", err)
			}
			return tea.QuitMsg{}
		}
		return stoppedMsg{err: err}
	}
}

// refresh copies observable state into the view.
func (s *Shell) refresh() {
	snap := s.state.Snapshot()
	s.view.Session = snap
	if snap.Running && snap.URL != "" {
		s.view.QR, s.view.QRErr = s.cache.get(snap.URL, s.opts.QRSize)
	} else {
		s.view.QR, s.view.QRErr = nil, nil
	}
	devices := s.server.Devices()
	if len(devices) > maxDevices {
		devices = devices[:maxDevices]
	}
	s.view.Devices = devices
	if s.opts.Interfaces != nil && s.view.Tab == TabSettings {
		s.view.Interfaces = s.opts.Interfaces()
	}
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		s.refresh()
		return s, tick()

	case startedMsg:
		s.view.Starting = false
		switch {
		case msg.err == nil:
			s.view.Err = nil
			s.view.Notice = ""
		case errors.Is(msg.err, api.ErrAlreadyRunning):
			s.view.Notice = "Server is already running"
		default:
			s.view.Err = msg.err
			tool.DefaultLogger.Errorf("Server failed to start: %v", msg.err)
		}
		s.refresh()
		return s, nil

	case stoppedMsg:
		s.stopping = false
		if msg.err != nil && !errors.Is(msg.err, api.ErrNotRunning) {
			s.view.Notice = "Stop failed: " + msg.err.Error()
		} else {
			s.view.Notice = "Server stopped"
		}
		s.refresh()
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Shell) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if s.quitting {
		return s, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		s.quitting = true
		return s, s.stopCmd(true)

	case "tab", "right":
		s.setTab((s.view.Tab + 1) % Tab(len(tabNames)))
	case "shift+tab", "left":
		s.setTab((s.view.Tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	case "1":
		s.setTab(TabConnect)
	case "2":
		s.setTab(TabApplets)
	case "3":
		s.setTab(TabSettings)

	case "s", "enter":
		if s.view.Session.Running || s.view.Starting {
			return s, nil
		}
		s.view.Starting = true
		s.view.Err = nil
		s.view.Notice = ""
		return s, s.startCmd()

	case "x":
		if !s.view.Session.Running || s.stopping {
			return s, nil
		}
		s.stopping = true
		return s, s.stopCmd(false)

	case "+", "=":
		if s.view.Port < 65535 {
			s.view.Port++
		}
	case "-", "_":
		if s.view.Port > 1 {
			s.view.Port--
		}
	}
	return s, nil
}

func (s *Shell) setTab(t Tab) {
	s.view.Tab = t
	s.refresh()
}

func (s *Shell) View() string {
	return Render(s.view)
}

// Run blocks until the user quits.
func Run(server Controller, state session.Reader, opts Options) error {
	_, err := tea.NewProgram(NewShell(server, state, opts), tea.WithAltScreen()).Run()
	return err
}
