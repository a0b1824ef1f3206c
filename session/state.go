// Package session holds the record shared between the pairing server and
// whatever renders it: whether the server runs, and the URL it published.
package session

import (
	"errors"
	"sync"
)

var ErrEmptyURL = errors.New("session: running state requires a url")

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Running bool   `json:"running"`
	URL     string `json:"url"`
	Port    uint16 `json:"port"`
}

// Reader is the read-only view handed to observers such as the UI shell.
type Reader interface {
	Snapshot() Snapshot
}

// State is written by the pairing server only and read by any number of
// observers. URL is non-empty iff Running.
type State struct {
	mu      sync.RWMutex
	running bool
	url     string
	port    uint16
}

func New() *State {
	return &State{}
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Running: s.running, URL: s.url, Port: s.port}
}

// MarkRunning publishes a bound server.
func (s *State) MarkRunning(url string, port uint16) error {
	if url == "" {
		return ErrEmptyURL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.url = url
	s.port = port
	return nil
}

// MarkStopped clears the published URL. The last port is kept so a restart
// can reuse it.
func (s *State) MarkStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.url = ""
}
