// Package browser holds the navigation session: the current location, the
// last listing fetched for it and the view mode it is shown in.
package browser

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/fioncat/vbrowse/breadcrumb"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/sirupsen/logrus"
)

var ErrRetryNotAllowed = errors.New("retry is only allowed after a failed load")

type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

type View string

const (
	ViewGrid View = "grid"
	ViewList View = "list"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewGrid, ViewList:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q, it should be %q or %q", s, ViewGrid, ViewList)
}

type Event int

const (
	EventLoading Event = iota
	EventLoaded
	EventErrored
	EventViewChanged
)

func (e Event) String() string {
	switch e {
	case EventLoading:
		return "loading"
	case EventLoaded:
		return "loaded"
	case EventErrored:
		return "errored"
	case EventViewChanged:
		return "view-changed"
	}
	return "unknown"
}

// Hook is called after every state transition with the resulting snapshot.
// Presentation layers use it to re-render; it is invoked without the
// session lock held.
type Hook func(ev Event, snap Snapshot)

// Snapshot is a copy of the session state, safe to keep after the session
// moves on.
type Snapshot struct {
	Path  string
	View  View
	State State

	Entries    []*types.Entry
	Breadcrumb []breadcrumb.Item
	Stats      Stats

	Err string
}

// Empty reports whether a listing loaded successfully but has no entries.
func (s Snapshot) Empty() bool {
	return s.State == StateLoaded && len(s.Entries) == 0
}

type Session struct {
	provider types.DirectoryProvider

	mu sync.Mutex

	path    string
	view    View
	state   State
	entries []*types.Entry
	trail   []breadcrumb.Item
	stats   Stats
	errMsg  string

	// seq identifies the latest issued load; results of older loads are
	// ignored.
	seq uint64

	hooks []Hook

	notifications *NotificationQueue

	logger *logrus.Entry
}

type Option func(s *Session)

func WithView(view View) Option {
	return func(s *Session) {
		s.view = view
	}
}

func WithHook(hook Hook) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, hook)
	}
}

func WithNotifications(queue *NotificationQueue) Option {
	return func(s *Session) {
		s.notifications = queue
	}
}

func WithLogger(logger *logrus.Entry) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func New(provider types.DirectoryProvider, opts ...Option) *Session {
	s := &Session{
		provider: provider,

		path:  "/",
		view:  ViewGrid,
		state: StateIdle,
		trail: breadcrumb.Build("/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifications == nil {
		s.notifications = NewNotificationQueue(DefaultNotificationLimit)
	}
	if s.logger == nil {
		s.logger = logrus.WithField("Component", "session")
	}
	return s
}

// Navigate loads the listing of p and makes it the current location. It
// returns false without doing anything when another load is still running.
// Provider failures are not returned; they move the session to the errored
// state and keep p as the current path so that Retry targets it again.
func (s *Session) Navigate(ctx context.Context, p string) bool {
	p = pathcodec.Normalize(p)
	logger := s.logger.WithField("Path", p)

	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		logger.Debugf("Drop navigation, %q is still loading", s.path)
		return false
	}
	s.state = StateLoading
	s.path = p
	s.errMsg = ""
	s.seq++
	seq := s.seq
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(EventLoading, snap)

	start := time.Now()
	ents, err := s.provider.List(ctx, p)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		logger.Debugf("Discard listing of a superseded load")
		return true
	}

	if err != nil {
		s.state = StateErrored
		s.errMsg = types.ErrorMessage(err)
		snap = s.snapshotLocked()
		s.mu.Unlock()

		logger.Errorf("List directory error: %v", err)
		s.notifications.Push(LevelError, snap.Err)
		s.emit(EventErrored, snap)
		return true
	}

	s.entries = cloneEntries(ents)
	s.state = StateLoaded
	s.trail = breadcrumb.Build(p)
	s.stats = ComputeStats(s.entries)
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logger.Debugf("List directory done, with %d entries, took %v", len(snap.Entries), time.Since(start))
	s.emit(EventLoaded, snap)
	return true
}

// Refresh reloads the current path, bypassing any provider cache.
func (s *Session) Refresh(ctx context.Context) bool {
	p := s.CurrentPath()
	if inv, ok := s.provider.(types.Invalidator); ok {
		err := inv.Invalidate(p)
		if err != nil {
			s.logger.WithField("Path", p).Warnf("Invalidate listing cache error: %v", err)
		}
	}
	return s.Navigate(ctx, p)
}

// Retry reloads the current path after a failed load.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateErrored {
		s.mu.Unlock()
		return ErrRetryNotAllowed
	}
	p := s.path
	s.mu.Unlock()

	s.Navigate(ctx, p)
	return nil
}

// Back navigates to the parent of the current path. It is a no-op at root.
func (s *Session) Back(ctx context.Context) bool {
	p := s.CurrentPath()
	if p == "/" {
		return false
	}
	return s.Navigate(ctx, path.Dir(p))
}

// SwitchView changes how the current entries are shown, without fetching.
func (s *Session) SwitchView(view View) error {
	view, err := ParseView(string(view))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.view = view
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(EventViewChanged, snap)
	return nil
}

// OnRender registers a hook called after every transition.
func (s *Session) OnRender(hook Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Entry looks up an entry of the current listing by its logical path.
func (s *Session) Entry(p string) (*types.Entry, bool) {
	p = pathcodec.Normalize(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ent := range s.entries {
		if ent.Path == p {
			clone := *ent
			return &clone, true
		}
	}
	return nil, false
}

func (s *Session) Notifications() *NotificationQueue {
	return s.notifications
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Path:  s.path,
		View:  s.view,
		State: s.state,

		Entries:    cloneEntries(s.entries),
		Breadcrumb: append([]breadcrumb.Item(nil), s.trail...),
		Stats:      s.stats,

		Err: s.errMsg,
	}
}

func (s *Session) emit(ev Event, snap Snapshot) {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ev, snap)
	}
}

func cloneEntries(ents []*types.Entry) []*types.Entry {
	clones := make([]*types.Entry, 0, len(ents))
	for _, ent := range ents {
		if ent == nil {
			continue
		}
		clone := *ent
		clones = append(clones, &clone)
	}
	return clones
}
