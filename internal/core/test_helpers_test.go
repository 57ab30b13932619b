package core

import (
	"sync"
	"testing"
	"time"
)

// recordingMailbox collects enqueued texts on a buffered channel.
type recordingMailbox struct {
	texts chan string
}

func newRecordingMailbox() *recordingMailbox {
	return &recordingMailbox{texts: make(chan string, 64)}
}

func (m *recordingMailbox) Enqueue(text string) error {
	select {
	case m.texts <- text:
		return nil
	default:
		return ErrMailboxFull
	}
}

// closedMailbox rejects everything, like a session that just ended.
type closedMailbox struct{}

func (closedMailbox) Enqueue(string) error { return ErrSessionClosed }

func mustNotice(t *testing.T, ch <-chan string, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case got := <-ch:
			if got == want {
				return
			}
			t.Fatalf("unexpected notice %q, want %q", got, want)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected notice %q not received", want)
}

func mustBeQuiet(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected notice %q", got)
	default:
	}
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	dir   *Directory
	store *GroupStore
	boxes map[string]*recordingMailbox
	mu    sync.Mutex
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()

	dir := NewDirectory()
	store := NewGroupStore("public", []GroupSpec{
		{ID: "public", Name: "Public Message Board"},
		{ID: "tech", Name: "Technology Discussion"},
		{ID: "books", Name: "Book Club"},
	}, NewNotifier(dir, nil), WithClock(func() time.Time { return fixedNow }))

	f := &fixture{dir: dir, store: store, boxes: make(map[string]*recordingMailbox)}
	for _, u := range users {
		f.connect(t, u)
	}
	return f
}

func (f *fixture) connect(t *testing.T, user string) *recordingMailbox {
	t.Helper()
	mb := newRecordingMailbox()
	if err := f.dir.Register(user, mb); err != nil {
		t.Fatalf("register %s: %v", user, err)
	}
	f.mu.Lock()
	f.boxes[user] = mb
	f.mu.Unlock()
	return mb
}

func (f *fixture) inbox(user string) <-chan string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boxes[user].texts
}
