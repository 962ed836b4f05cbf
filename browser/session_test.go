package browser

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/fioncat/vbrowse/breadcrumb"
	"github.com/fioncat/vbrowse/types"
)

type testProvider struct {
	mu sync.Mutex

	listings map[string][]*types.Entry
	errs     map[string]error

	calls []string

	// When block is set, List signals started and waits until block is
	// closed.
	block   chan struct{}
	started chan string

	invalidated []string
}

func newTestProvider() *testProvider {
	return &testProvider{
		listings: map[string][]*types.Entry{
			"/": {
				{Name: "马主义哲学入门研读资料", Kind: types.KindFolder, Path: "/马主义哲学入门研读资料"},
				{Name: "更新说明.txt", Kind: types.KindFile, SizeText: "324 B", Path: "/更新说明.txt"},
				{Name: "哲学笔记.docx", Kind: types.KindFile, Size: 156 * 1024, Path: "/哲学笔记.docx"},
			},
			"/马主义哲学入门研读资料": {
				{Name: "第一章.txt", Kind: types.KindFile, Size: 10, Path: "/马主义哲学入门研读资料/第一章.txt"},
			},
			"/p1": {
				{Name: "one.txt", Kind: types.KindFile, Size: 1, Path: "/p1/one.txt"},
			},
			"/p2": {
				{Name: "two.txt", Kind: types.KindFile, Size: 2, Path: "/p2/two.txt"},
			},
			"/empty": {},
		},
		errs: map[string]error{
			"/broken": fmt.Errorf("list /broken: %w", types.ErrUnavailable),
		},
	}
}

func (p *testProvider) List(ctx context.Context, path string) ([]*types.Entry, error) {
	p.mu.Lock()
	p.calls = append(p.calls, path)
	block, started := p.block, p.started
	p.mu.Unlock()

	if started != nil {
		started <- path
	}
	if block != nil {
		<-block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.errs[path]; ok {
		return nil, err
	}
	ents, ok := p.listings[path]
	if !ok {
		return nil, fmt.Errorf("list %q: %w", path, types.ErrNotFound)
	}
	return ents, nil
}

func (p *testProvider) Invalidate(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated = append(p.invalidated, path)
	return nil
}

func (p *testProvider) getCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func TestSessionInitial(t *testing.T) {
	s := New(newTestProvider())
	snap := s.Snapshot()
	if snap.Path != "/" || snap.State != StateIdle || snap.View != ViewGrid {
		t.Fatalf("Unexpect initial snapshot %+v", snap)
	}
	if !reflect.DeepEqual(snap.Breadcrumb, []breadcrumb.Item{{Label: "home", Path: "/"}}) {
		t.Fatalf("Unexpect initial breadcrumb %+v", snap.Breadcrumb)
	}
}

func TestSessionNavigate(t *testing.T) {
	p := newTestProvider()
	s := New(p)
	ctx := context.Background()

	if !s.Navigate(ctx, "/") {
		t.Fatal("Expect navigate to run")
	}
	snap := s.Snapshot()
	if snap.State != StateLoaded {
		t.Fatalf("Unexpect state %v", snap.State)
	}
	if len(snap.Entries) != 3 {
		t.Fatalf("Unexpect entries count %d", len(snap.Entries))
	}
	// Provider order is kept
	for i, ent := range p.listings["/"] {
		if snap.Entries[i].Path != ent.Path {
			t.Fatalf("Unexpect entry order at %d: %q, expect %q", i, snap.Entries[i].Path, ent.Path)
		}
	}
	if snap.Stats != (Stats{Files: 2, Folders: 1, Bytes: 156 * 1024}) {
		t.Fatalf("Unexpect stats %+v", snap.Stats)
	}

	s.Navigate(ctx, "马主义哲学入门研读资料/")
	snap = s.Snapshot()
	if snap.Path != "/马主义哲学入门研读资料" {
		t.Fatalf("Unexpect path %q", snap.Path)
	}
	expectTrail := []breadcrumb.Item{
		{Label: "home", Path: "/"},
		{Label: "马主义哲学入门研读资料", Path: "/马主义哲学入门研读资料"},
	}
	if !reflect.DeepEqual(snap.Breadcrumb, expectTrail) {
		t.Fatalf("Unexpect breadcrumb %+v", snap.Breadcrumb)
	}

	ent, ok := s.Entry("/马主义哲学入门研读资料/第一章.txt")
	if !ok || ent.Name != "第一章.txt" {
		t.Fatalf("Expect to find entry, got %+v", ent)
	}
	_, ok = s.Entry("/更新说明.txt")
	if ok {
		t.Fatal("Entry of the previous listing should not be found")
	}
}

func TestSessionNavigateIdempotent(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	once := New(p)
	once.Navigate(ctx, "/")

	twice := New(p)
	twice.Navigate(ctx, "/")
	twice.Navigate(ctx, "/")

	a, b := once.Snapshot(), twice.Snapshot()
	if !reflect.DeepEqual(a.Entries, b.Entries) || a.Stats != b.Stats || a.Path != b.Path {
		t.Fatalf("Navigating twice should give the same state, got %+v and %+v", a, b)
	}
}

func TestSessionSingleFlight(t *testing.T) {
	p := newTestProvider()
	p.block = make(chan struct{})
	p.started = make(chan string, 1)
	s := New(p)
	ctx := context.Background()

	done := make(chan bool)
	go func() {
		done <- s.Navigate(ctx, "/p1")
	}()

	if path := <-p.started; path != "/p1" {
		t.Fatalf("Unexpect provider path %q", path)
	}

	if s.Navigate(ctx, "/p2") {
		t.Fatal("Navigate should be dropped while loading")
	}
	if err := s.Retry(ctx); !errors.Is(err, ErrRetryNotAllowed) {
		t.Fatalf("Expect retry not allowed while loading, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Path != "/p1" || snap.State != StateLoading || len(snap.Entries) != 0 {
		t.Fatalf("Dropped navigation mutated the session: %+v", snap)
	}

	close(p.block)
	if !<-done {
		t.Fatal("First navigation should have run")
	}

	snap = s.Snapshot()
	if snap.Path != "/p1" || snap.State != StateLoaded {
		t.Fatalf("Unexpect snapshot %+v", snap)
	}
	if len(snap.Entries) != 1 || snap.Entries[0].Path != "/p1/one.txt" {
		t.Fatalf("Unexpect entries %+v", snap.Entries)
	}
	if calls := p.getCalls(); !reflect.DeepEqual(calls, []string{"/p1"}) {
		t.Fatalf("Unexpect provider calls %q", calls)
	}
}

func TestSessionEmpty(t *testing.T) {
	s := New(newTestProvider())
	s.Navigate(context.Background(), "/empty")

	snap := s.Snapshot()
	if !snap.Empty() {
		t.Fatalf("Expect empty listing, got %+v", snap)
	}
	if snap.Stats.Files != 0 || snap.Stats.Folders != 0 {
		t.Fatalf("Unexpect stats %+v", snap.Stats)
	}
}

func TestSessionErroredAndRetry(t *testing.T) {
	p := newTestProvider()
	s := New(p)
	ctx := context.Background()

	s.Navigate(ctx, "/")
	s.Navigate(ctx, "/broken")

	snap := s.Snapshot()
	if snap.State != StateErrored {
		t.Fatalf("Unexpect state %v", snap.State)
	}
	if snap.Path != "/broken" {
		t.Fatalf("Errored session should keep the failed path, got %q", snap.Path)
	}
	if snap.Err == "" {
		t.Fatal("Expect error message")
	}
	notes := s.Notifications().Drain()
	if len(notes) != 1 || notes[0].Level != LevelError || notes[0].Message != snap.Err {
		t.Fatalf("Unexpect notifications %+v", notes)
	}

	err := s.Retry(ctx)
	if err != nil {
		t.Fatal(err)
	}
	calls := p.getCalls()
	if !reflect.DeepEqual(calls, []string{"/", "/broken", "/broken"}) {
		t.Fatalf("Unexpect provider calls %q", calls)
	}

	// The provider recovers
	p.mu.Lock()
	delete(p.errs, "/broken")
	p.listings["/broken"] = []*types.Entry{{Name: "ok.txt", Kind: types.KindFile, Path: "/broken/ok.txt"}}
	p.mu.Unlock()

	err = s.Retry(ctx)
	if err != nil {
		t.Fatal(err)
	}
	snap = s.Snapshot()
	if snap.State != StateLoaded || snap.Err != "" || len(snap.Entries) != 1 {
		t.Fatalf("Unexpect snapshot after retry %+v", snap)
	}

	err = s.Retry(ctx)
	if !errors.Is(err, ErrRetryNotAllowed) {
		t.Fatalf("Expect retry not allowed after success, got %v", err)
	}
}

func TestSessionNotFound(t *testing.T) {
	s := New(newTestProvider())
	s.Navigate(context.Background(), "/missing")

	snap := s.Snapshot()
	if snap.State != StateErrored || snap.Path != "/missing" {
		t.Fatalf("Unexpect snapshot %+v", snap)
	}
}

func TestSessionSwitchView(t *testing.T) {
	p := newTestProvider()
	s := New(p)
	ctx := context.Background()
	s.Navigate(ctx, "/")
	before := s.Snapshot()

	err := s.SwitchView(ViewList)
	if err != nil {
		t.Fatal(err)
	}
	after := s.Snapshot()
	if after.View != ViewList {
		t.Fatalf("Unexpect view %q", after.View)
	}
	if !reflect.DeepEqual(before.Entries, after.Entries) {
		t.Fatal("Switching view should keep entries")
	}
	if calls := p.getCalls(); len(calls) != 1 {
		t.Fatalf("Switching view should not fetch, calls: %q", calls)
	}

	err = s.SwitchView(View("tree"))
	if err == nil {
		t.Fatal("Expect error for unknown view")
	}
	if s.Snapshot().View != ViewList {
		t.Fatal("Invalid view should not change the session")
	}
}

func TestSessionRefreshAndBack(t *testing.T) {
	p := newTestProvider()
	s := New(p)
	ctx := context.Background()

	s.Navigate(ctx, "/马主义哲学入门研读资料")
	s.Refresh(ctx)
	if !reflect.DeepEqual(p.invalidated, []string{"/马主义哲学入门研读资料"}) {
		t.Fatalf("Unexpect invalidated paths %q", p.invalidated)
	}

	if !s.Back(ctx) {
		t.Fatal("Expect back to navigate")
	}
	if s.CurrentPath() != "/" {
		t.Fatalf("Unexpect path after back %q", s.CurrentPath())
	}
	if s.Back(ctx) {
		t.Fatal("Back at root should be a no-op")
	}

	calls := p.getCalls()
	expect := []string{"/马主义哲学入门研读资料", "/马主义哲学入门研读资料", "/"}
	if !reflect.DeepEqual(calls, expect) {
		t.Fatalf("Unexpect provider calls %q, expect %q", calls, expect)
	}
}

func TestSessionHooks(t *testing.T) {
	var events []Event
	var states []State
	s := New(newTestProvider(), WithHook(func(ev Event, snap Snapshot) {
		events = append(events, ev)
		states = append(states, snap.State)
	}))
	ctx := context.Background()

	s.Navigate(ctx, "/")
	s.SwitchView(ViewList)
	s.Navigate(ctx, "/broken")

	expectEvents := []Event{EventLoading, EventLoaded, EventViewChanged, EventLoading, EventErrored}
	if !reflect.DeepEqual(events, expectEvents) {
		t.Fatalf("Unexpect events %v, expect %v", events, expectEvents)
	}
	expectStates := []State{StateLoading, StateLoaded, StateLoaded, StateLoading, StateErrored}
	if !reflect.DeepEqual(states, expectStates) {
		t.Fatalf("Unexpect states %v, expect %v", states, expectStates)
	}
}

func TestSessionHookCanReadSession(t *testing.T) {
	s := New(newTestProvider())
	var paths []string
	s.OnRender(func(ev Event, snap Snapshot) {
		// Hooks run without the lock held
		paths = append(paths, s.CurrentPath())
	})
	s.Navigate(context.Background(), "/p2")
	if !reflect.DeepEqual(paths, []string{"/p2", "/p2"}) {
		t.Fatalf("Unexpect paths %q", paths)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := New(newTestProvider())
	s.Navigate(context.Background(), "/")

	snap := s.Snapshot()
	snap.Entries[0].Name = "changed"

	if s.Snapshot().Entries[0].Name == "changed" {
		t.Fatal("Snapshot entries should not alias session entries")
	}
}
