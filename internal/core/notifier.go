package core

import (
	"errors"

	"github.com/rs/zerolog"
)

// Notifier schedules notification deliveries into recipients' mailboxes.
//
// Notify never performs I/O: each mailbox is a bounded queue drained by its
// session's writer, so it is safe to call while GroupStore holds its lock.
// Delivery is fire-and-forget; failures are logged and skipped.
type Notifier struct {
	dir *Directory
	log *zerolog.Logger
}

// NewNotifier builds a notifier that resolves recipients through dir.
func NewNotifier(dir *Directory, logger *zerolog.Logger) *Notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Notifier{dir: dir, log: logger}
}

// Notify enqueues text for every recipient that has an active session.
func (n *Notifier) Notify(recipients []string, text string) {
	for _, user := range recipients {
		mb, err := n.dir.Lookup(user)
		if err != nil {
			continue
		}
		if err := mb.Enqueue(text); err != nil {
			ev := n.log.Warn()
			if errors.Is(err, ErrSessionClosed) {
				ev = n.log.Debug()
			}
			ev.Err(err).Str("user", user).Msg("notification dropped")
		}
	}
}

// publish notifies every member of the event's group except the acting user.
// The caller must hold the store lock that guards g.
func (n *Notifier) publish(g *Group, ev Event) {
	n.Notify(g.MembersExcept(ev.User), ev.Text())
}
