package playback

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

func TestSessionEnqueue(t *testing.T) {
	t.Run("first item starts playing", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)

		pos, err := s.Enqueue(item("A"))
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if pos != 0 {
			t.Errorf("position = %d, want 0", pos)
		}
		if s.State() != StatePlaying {
			t.Errorf("state = %v, want Playing", s.State())
		}
		if s.Token() != 1 {
			t.Errorf("token = %d, want 1", s.Token())
		}
		if cur := s.Current(); cur == nil || cur.Title() != "A" {
			t.Errorf("current = %v, want A", cur)
		}
		if got := tr.plays(); len(got) != 1 || got[0].title != "A" || got[0].token != 1 {
			t.Errorf("plays = %+v, want [A/1]", got)
		}
	})

	t.Run("later items queue behind", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)

		for i, title := range []string{"A", "B", "C"} {
			pos, err := s.Enqueue(item(title))
			if err != nil {
				t.Fatalf("Enqueue(%s) error = %v", title, err)
			}
			if pos != i {
				t.Errorf("Enqueue(%s) position = %d, want %d", title, pos, i)
			}
		}

		queue := s.Queue()
		if len(queue) != 2 || queue[0].Title() != "B" || queue[1].Title() != "C" {
			t.Errorf("queue = %v, want [B C]", queue)
		}
		if tr.connectCount() != 1 {
			t.Errorf("connects = %d, want 1", tr.connectCount())
		}
	})

	t.Run("invalid item is rejected", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)

		noSource := models.NewPlaylistItem(models.ItemMetadata{Title: "A"}, "", models.Locator{}, "A", "")
		_, err := s.Enqueue(noSource)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
		if s.State() != StateIdle {
			t.Errorf("state = %v, want Idle", s.State())
		}
	})

	t.Run("rejected start is reported to the caller", func(t *testing.T) {
		tr := newFakeTransport()
		tr.failOn("A")
		s := newTestSession(tr, nil)

		_, err := s.Enqueue(item("A"))
		if !errors.Is(err, shared.ErrTransportStart) {
			t.Fatalf("error = %v, want ErrTransportStart", err)
		}
		if s.State() != StateIdle {
			t.Errorf("state = %v, want Idle", s.State())
		}
		if s.Current() != nil {
			t.Error("current should be nil after a rejected start")
		}
	})

	t.Run("connect failure counts as start failure", func(t *testing.T) {
		tr := newFakeTransport()
		tr.connectErr = errors.New("no route")
		s := newTestSession(tr, nil)

		_, err := s.Enqueue(item("A"))
		if !errors.Is(err, shared.ErrTransportStart) {
			t.Errorf("error = %v, want ErrTransportStart", err)
		}
		if s.Snapshot().Failures != 1 {
			t.Errorf("failures = %d, want 1", s.Snapshot().Failures)
		}
	})

	t.Run("no transport configured", func(t *testing.T) {
		s := NewSession("guild-1", Options{})

		if _, err := s.Enqueue(item("A")); !errors.Is(err, shared.ErrTransportStart) {
			t.Errorf("error = %v, want ErrTransportStart", err)
		}
	})
}

func TestSessionConcurrentEnqueue(t *testing.T) {
	const (
		workers = 20
		perTask = 10
	)

	tr := newFakeTransport()
	s := newTestSession(tr, nil)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perTask {
				if _, err := s.Enqueue(item(fmt.Sprintf("w%02d-%02d", w, i))); err != nil {
					t.Errorf("Enqueue() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Current == nil {
		t.Fatal("expected an item to be playing")
	}
	if plays := tr.plays(); len(plays) != 1 {
		t.Fatalf("plays = %d, want exactly 1", len(plays))
	}

	order := append([]string{snap.Current.Title()}, titles(snap.Queue)...)
	if len(order) != workers*perTask {
		t.Fatalf("got %d items, want %d", len(order), workers*perTask)
	}

	seen := make(map[string]bool)
	last := make(map[int]int)
	for _, title := range order {
		if seen[title] {
			t.Fatalf("duplicate item %s", title)
		}
		seen[title] = true

		var w, i int
		if _, err := fmt.Sscanf(title, "w%d-%d", &w, &i); err != nil {
			t.Fatalf("unexpected title %q", title)
		}
		if prev, ok := last[w]; ok && i <= prev {
			t.Errorf("worker %d items out of order: %d after %d", w, i, prev)
		}
		last[w] = i
	}
}

func TestSessionAdvance(t *testing.T) {
	t.Run("scenario A then B", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)

		if pos, _ := s.Enqueue(item("A")); pos != 0 {
			t.Fatalf("A position = %d, want 0", pos)
		}
		if s.Token() != 1 || s.State() != StatePlaying {
			t.Fatalf("after A: token=%d state=%v, want 1 Playing", s.Token(), s.State())
		}

		if pos, _ := s.Enqueue(item("B")); pos != 1 {
			t.Fatalf("B position = %d, want 1", pos)
		}
		if q := s.Queue(); len(q) != 1 || q[0].Title() != "B" {
			t.Fatalf("queue = %v, want [B]", q)
		}

		out := s.Advance(1)
		if out.Kind != AdvanceAdvanced || out.Item.Title() != "B" || out.Token != 2 {
			t.Fatalf("Advance(1) = %+v, want Advanced(B, 2)", out)
		}
		if len(s.Queue()) != 0 {
			t.Errorf("queue = %v, want empty", s.Queue())
		}

		before := s.Snapshot()
		if out := s.Advance(1); out.Kind != AdvanceStale {
			t.Errorf("stale Advance(1) = %v, want Stale", out.Kind)
		}
		after := s.Snapshot()
		if after.Token != before.Token || after.Current.Title() != "B" || after.State != StatePlaying {
			t.Errorf("stale advance changed state: %+v", after)
		}

		if out := s.Advance(2); out.Kind != AdvanceIdle {
			t.Errorf("Advance(2) = %v, want Idle", out.Kind)
		}
		if s.State() != StateIdle || s.Current() != nil || len(s.Queue()) != 0 {
			t.Errorf("expected Idle with empty queue, got %+v", s.Snapshot())
		}
	})

	t.Run("stale token after skip is a no-op", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)
		for _, title := range []string{"A", "B", "C"} {
			s.Enqueue(item(title))
		}

		oldToken := s.Token()
		if out := s.Skip(); out.Kind != AdvanceAdvanced {
			t.Fatalf("Skip() = %v, want Advanced", out.Kind)
		}
		before := s.Snapshot()

		if out := s.Advance(oldToken); out.Kind != AdvanceStale {
			t.Errorf("Advance(old) = %v, want Stale", out.Kind)
		}

		after := s.Snapshot()
		if after.Token != before.Token {
			t.Errorf("token = %d, want %d", after.Token, before.Token)
		}
		if after.Current.Title() != before.Current.Title() {
			t.Errorf("current = %s, want %s", after.Current.Title(), before.Current.Title())
		}
		if got, want := titles(after.Queue), titles(before.Queue); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("queue = %v, want %v", got, want)
		}
	})

	t.Run("advance on idle session is stale", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)
		if out := s.Advance(1); out.Kind != AdvanceStale {
			t.Errorf("Advance() = %v, want Stale", out.Kind)
		}
	})

	t.Run("round trip of N items", func(t *testing.T) {
		const n = 6

		hub := NewHub(0)
		sub := hub.Subscribe()
		tr := newFakeTransport()
		s := newTestSession(tr, hub)

		for i := range n {
			s.Enqueue(item(fmt.Sprintf("t%d", i)))
		}
		for range n {
			s.Advance(s.Token())
		}

		if s.State() != StateIdle || len(s.Queue()) != 0 || s.Current() != nil {
			t.Fatalf("expected Idle with empty queue, got %+v", s.Snapshot())
		}

		playing := ofKind(drain(sub), EventNowPlaying)
		if len(playing) != n {
			t.Fatalf("now playing events = %d, want %d", len(playing), n)
		}
		for i, e := range playing {
			if want := fmt.Sprintf("t%d", i); e.Item.Title() != want {
				t.Errorf("event %d title = %s, want %s", i, e.Item.Title(), want)
			}
			if e.Token != TrackToken(i+1) {
				t.Errorf("event %d token = %d, want %d", i, e.Token, i+1)
			}
		}

		conn := tr.conns[0]
		if conn.stops != 1 {
			t.Errorf("stops = %d, want 1 when the queue ran dry", conn.stops)
		}
	})
}

func TestSessionSkip(t *testing.T) {
	t.Run("nothing playing", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)
		if out := s.Skip(); out.Kind != AdvanceIdle {
			t.Errorf("Skip() = %v, want Idle", out.Kind)
		}
		if s.State() != StateIdle {
			t.Errorf("state = %v, want Idle", s.State())
		}
	})

	t.Run("while paused", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)
		s.Enqueue(item("A"))
		s.Enqueue(item("B"))
		s.Pause()

		out := s.Skip()
		if out.Kind != AdvanceAdvanced || out.Item.Title() != "B" {
			t.Errorf("Skip() = %+v, want Advanced(B)", out)
		}
		if s.State() != StatePlaying {
			t.Errorf("state = %v, want Playing", s.State())
		}
	})
}

func TestSessionStop(t *testing.T) {
	t.Run("terminal", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)
		s.Enqueue(item("A"))
		s.Enqueue(item("B"))

		if err := s.Stop(); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if s.State() != StateStopped || s.Current() != nil || len(s.Queue()) != 0 {
			t.Fatalf("expected Stopped and empty, got %+v", s.Snapshot())
		}
		if !tr.conns[0].closed {
			t.Error("connection should be closed")
		}

		if _, err := s.Enqueue(item("C")); !errors.Is(err, shared.ErrSessionStopped) {
			t.Errorf("Enqueue after Stop error = %v, want ErrSessionStopped", err)
		}
		if got := len(tr.plays()); got != 1 {
			t.Errorf("plays = %d, want 1", got)
		}
		if tr.connectCount() != 1 {
			t.Errorf("connects = %d, want 1", tr.connectCount())
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)
		if err := s.Stop(); err != nil {
			t.Fatalf("first Stop() error = %v", err)
		}
		if err := s.Stop(); err != nil {
			t.Fatalf("second Stop() error = %v", err)
		}
	})

	t.Run("late signal after stop is stale", func(t *testing.T) {
		s := newTestSession(newFakeTransport(), nil)
		s.Enqueue(item("A"))
		token := s.Token()
		s.Stop()

		if out := s.Finish(Signal{Token: token, Outcome: SignalEnded}); out.Kind != AdvanceStale {
			t.Errorf("Finish() = %v, want Stale", out.Kind)
		}
		if s.State() != StateStopped {
			t.Errorf("state = %v, want Stopped", s.State())
		}
	})
}

func TestSessionPauseResume(t *testing.T) {
	tr := newFakeTransport()
	s := newTestSession(tr, nil)

	if ok, _ := s.Pause(); ok {
		t.Error("Pause() on idle session should be a no-op")
	}

	s.Enqueue(item("A"))
	s.Enqueue(item("B"))
	token := s.Token()

	if ok, err := s.Pause(); !ok || err != nil {
		t.Fatalf("Pause() = %v, %v", ok, err)
	}
	if s.State() != StatePaused {
		t.Errorf("state = %v, want Paused", s.State())
	}
	if ok, _ := s.Pause(); ok {
		t.Error("second Pause() should be a no-op")
	}
	if s.Token() != token || len(s.Queue()) != 1 {
		t.Error("pause must not touch the token or queue")
	}

	if ok, err := s.Resume(); !ok || err != nil {
		t.Fatalf("Resume() = %v, %v", ok, err)
	}
	if s.State() != StatePlaying {
		t.Errorf("state = %v, want Playing", s.State())
	}
	if ok, _ := s.Resume(); ok {
		t.Error("second Resume() should be a no-op")
	}

	conn := tr.conns[0]
	if conn.pauses != 1 || conn.resumes != 1 {
		t.Errorf("pauses=%d resumes=%d, want 1 1", conn.pauses, conn.resumes)
	}
}

func TestSessionFailures(t *testing.T) {
	t.Run("three consecutive failures halt auto-advance", func(t *testing.T) {
		hub := NewHub(0)
		sub := hub.Subscribe()
		tr := newFakeTransport()
		s := newTestSession(tr, hub)

		s.Enqueue(item("A"))
		for _, title := range []string{"B", "C", "D", "E"} {
			s.Enqueue(item(title))
		}
		tr.failOn("B", "C", "D")
		drain(sub)

		out := s.Advance(s.Token())
		if out.Kind != AdvanceIdle {
			t.Fatalf("Advance() = %v, want Idle", out.Kind)
		}
		if s.State() != StateIdle || s.Current() != nil {
			t.Errorf("expected Idle, got %+v", s.Snapshot())
		}
		if q := titles(s.Queue()); len(q) != 1 || q[0] != "E" {
			t.Errorf("queue = %v, want [E]", q)
		}
		for _, p := range tr.plays() {
			if p.title == "E" {
				t.Error("fourth item must not be started")
			}
		}

		events := drain(sub)
		failed := ofKind(events, EventTrackFailed)
		if len(failed) != 3 {
			t.Fatalf("track failed events = %d, want 3", len(failed))
		}
		for i, want := range []string{"B", "C", "D"} {
			if failed[i].Item.Title() != want {
				t.Errorf("failure %d = %s, want %s", i, failed[i].Item.Title(), want)
			}
			if failed[i].Failures != i+1 {
				t.Errorf("failure %d count = %d, want %d", i, failed[i].Failures, i+1)
			}
			if !errors.Is(failed[i].Err, shared.ErrTransportStart) {
				t.Errorf("failure %d err = %v, want ErrTransportStart", i, failed[i].Err)
			}
		}
		if halted := ofKind(events, EventPlaybackHalted); len(halted) != 1 || halted[0].Position != 1 {
			t.Errorf("halted events = %+v, want one with 1 item left", halted)
		}
		if !tr.conns[0].closed {
			t.Error("halting should release the connection")
		}
	})

	t.Run("a normal end resets the counter", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)
		s.Enqueue(item("A"))
		for _, title := range []string{"B", "C", "D", "E", "F"} {
			s.Enqueue(item(title))
		}
		tr.failOn("B", "C", "E", "F")

		out := s.Advance(s.Token())
		if out.Kind != AdvanceAdvanced || out.Item.Title() != "D" {
			t.Fatalf("Advance() = %+v, want Advanced(D)", out)
		}
		if s.Snapshot().Failures != 2 {
			t.Errorf("failures = %d, want 2", s.Snapshot().Failures)
		}

		s.Advance(s.Token())
		if s.Snapshot().Failures != 2 {
			t.Errorf("failures after E and F = %d, want 2", s.Snapshot().Failures)
		}
		if s.State() != StateIdle {
			t.Errorf("state = %v, want Idle", s.State())
		}
	})

	t.Run("user enqueue restarts a halted session", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)
		s.Enqueue(item("A"))
		for _, title := range []string{"B", "C", "D", "E"} {
			s.Enqueue(item(title))
		}
		tr.failOn("B", "C", "D")
		s.Advance(s.Token())

		pos, err := s.Enqueue(item("F"))
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if pos != 1 {
			t.Errorf("position = %d, want 1 behind E", pos)
		}
		if cur := s.Current(); cur == nil || cur.Title() != "E" {
			t.Errorf("current = %v, want E", cur)
		}
		if s.Snapshot().Failures != 0 {
			t.Errorf("failures = %d, want 0", s.Snapshot().Failures)
		}
		if tr.connectCount() != 2 {
			t.Errorf("connects = %d, want 2 after the halt released the first", tr.connectCount())
		}
	})

	t.Run("restart that halts again reports the failure", func(t *testing.T) {
		hub := NewHub(0)
		sub := hub.Subscribe()
		tr := newFakeTransport()
		s := newTestSession(tr, hub)
		for _, title := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			s.Enqueue(item(title))
		}
		tr.setFailAll(true)
		if out := s.Skip(); out.Kind != AdvanceIdle {
			t.Fatalf("Skip() = %v, want Idle", out.Kind)
		}
		drain(sub)

		pos, err := s.Enqueue(item("H"))
		if !errors.Is(err, shared.ErrTransportStart) {
			t.Fatalf("Enqueue() error = %v, want ErrTransportStart", err)
		}
		if pos != 1 {
			t.Errorf("position = %d, want 1", pos)
		}
		if s.State() != StateIdle || s.Current() != nil {
			t.Errorf("expected Idle with nothing playing, got %+v", s.Snapshot())
		}
		if q := titles(s.Queue()); len(q) != 1 || q[0] != "H" {
			t.Errorf("queue = %v, want [H]", q)
		}

		events := drain(sub)
		if n := len(ofKind(events, EventTrackFailed)); n != 3 {
			t.Errorf("track failed events = %d, want 3", n)
		}
		if n := len(ofKind(events, EventPlaybackHalted)); n != 1 {
			t.Errorf("halted events = %d, want 1", n)
		}
	})

	t.Run("failed signals count toward the threshold", func(t *testing.T) {
		hub := NewHub(0)
		sub := hub.Subscribe()
		s := newTestSession(newFakeTransport(), hub)
		for _, title := range []string{"A", "B", "C", "D"} {
			s.Enqueue(item(title))
		}

		for range 2 {
			out := s.Finish(Signal{Token: s.Token(), Outcome: SignalFailed, Err: errRejected})
			if out.Kind != AdvanceAdvanced {
				t.Fatalf("Finish() = %v, want Advanced", out.Kind)
			}
		}
		out := s.Finish(Signal{Token: s.Token(), Outcome: SignalFailed})
		if out.Kind != AdvanceIdle {
			t.Fatalf("third Finish() = %v, want Idle", out.Kind)
		}
		if q := titles(s.Queue()); len(q) != 1 || q[0] != "D" {
			t.Errorf("queue = %v, want [D]", q)
		}

		events := drain(sub)
		if n := len(ofKind(events, EventTrackFailed)); n != 3 {
			t.Errorf("track failed events = %d, want 3", n)
		}
		if n := len(ofKind(events, EventPlaybackHalted)); n != 1 {
			t.Errorf("halted events = %d, want 1", n)
		}
	})

	t.Run("custom threshold", func(t *testing.T) {
		tr := newFakeTransport()
		s := NewSession("guild-1", Options{Transport: tr, MaxFailures: 1})
		s.Enqueue(item("A"))
		s.Enqueue(item("B"))
		s.Enqueue(item("C"))
		tr.failOn("B")

		if out := s.Advance(s.Token()); out.Kind != AdvanceIdle {
			t.Errorf("Advance() = %v, want Idle", out.Kind)
		}
		if q := titles(s.Queue()); len(q) != 1 || q[0] != "C" {
			t.Errorf("queue = %v, want [C]", q)
		}
	})

	t.Run("rejected start tokens are stale", func(t *testing.T) {
		tr := newFakeTransport()
		s := newTestSession(tr, nil)
		s.Enqueue(item("A"))
		s.Enqueue(item("B"))
		s.Enqueue(item("C"))
		tr.failOn("B")

		out := s.Advance(1)
		if out.Kind != AdvanceAdvanced || out.Token != 3 {
			t.Fatalf("Advance(1) = %+v, want Advanced with token 3", out)
		}
		if out := s.Advance(2); out.Kind != AdvanceStale {
			t.Errorf("Advance(2) = %v, want Stale", out.Kind)
		}
	})
}

func TestSessionEvents(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe()
	s := newTestSession(newFakeTransport(), hub)

	s.Enqueue(item("A"))
	s.Enqueue(item("B"))

	events := drain(sub)
	want := []EventKind{EventNowPlaying, EventStateChanged, EventQueued}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, kind := range want {
		if events[i].Kind != kind {
			t.Errorf("event %d = %v, want %v", i, events[i].Kind, kind)
		}
		if events[i].Key != "guild-1" {
			t.Errorf("event %d key = %q, want guild-1", i, events[i].Key)
		}
	}
	if sc := events[1]; sc.Previous != StateIdle || sc.Current != StatePlaying {
		t.Errorf("state change = %v -> %v, want Idle -> Playing", sc.Previous, sc.Current)
	}
	if q := events[2]; q.Position != 1 || q.Item.Title() != "B" {
		t.Errorf("queued = %+v, want B at 1", q)
	}
}

func titles[T interface{ Title() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title())
	}
	return out
}
