package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestConcurrentRegisterSameName(t *testing.T) {
	dir := NewDirectory()

	const attempts = 32
	var (
		wins, taken atomic.Int32
		wg          sync.WaitGroup
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := dir.Register("alice", newRecordingMailbox())
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrUsernameTaken):
				taken.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || taken.Load() != attempts-1 {
		t.Fatalf("wins=%d taken=%d", wins.Load(), taken.Load())
	}
	if CodeOf(ErrUsernameTaken) != ErrCodeAuth {
		t.Fatalf("unexpected code %s", CodeOf(ErrUsernameTaken))
	}
}

func TestDirectoryRemoveIsIdempotent(t *testing.T) {
	dir := NewDirectory()
	if err := dir.Register("bob", newRecordingMailbox()); err != nil {
		t.Fatal(err)
	}
	dir.Remove("bob")
	dir.Remove("bob")

	if _, err := dir.Lookup("bob"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := dir.Register("bob", newRecordingMailbox()); err != nil {
		t.Fatalf("name should be free again: %v", err)
	}
	if dir.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", dir.Len())
	}
	if _, err := dir.Lookup("Bob"); err == nil {
		t.Fatal("usernames are case-sensitive")
	}
}

func TestNotifierSkipsFailingRecipients(t *testing.T) {
	dir := NewDirectory()
	logger := zerolog.Nop()
	n := NewNotifier(dir, &logger)

	full := &recordingMailbox{texts: make(chan string)} // unbuffered, always full
	ok := newRecordingMailbox()
	for name, mb := range map[string]Mailbox{"full": full, "gone": closedMailbox{}, "ok": ok} {
		if err := dir.Register(name, mb); err != nil {
			t.Fatal(err)
		}
	}

	n.Notify([]string{"full", "gone", "offline", "ok"}, "ping")
	mustNotice(t, ok.texts, "ping")
}

func TestEventText(t *testing.T) {
	msg := Message{ID: 4, From: "A", Subject: "Hi", CreatedAt: fixedNow}
	cases := map[Event]string{
		{Kind: EventUserJoined, User: "A"}:                  "A has joined the group",
		{Kind: EventUserLeft, User: "A"}:                    "A has left the group",
		{Kind: EventUserDisconnected, User: "A"}:            "A has disconnected",
		{Kind: EventMessagePosted, User: "A", Message: msg}: "New message posted: [4] A | 2026-10-15 09:30:00 | Hi",
	}
	for ev, want := range cases {
		if got := ev.Text(); got != want {
			t.Fatalf("%s: got %q want %q", ev.Kind, got, want)
		}
	}
}
