package core

import "sync"

// Mailbox accepts notification text for one session without blocking.
// Implementations return ErrMailboxFull or ErrSessionClosed when they cannot.
type Mailbox interface {
	Enqueue(text string) error
}

// Directory maps active usernames to their session mailboxes.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]Mailbox
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{sessions: make(map[string]Mailbox)}
}

// Register claims username for mb. The check and insert happen atomically.
func (d *Directory) Register(username string, mb Mailbox) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.sessions[username]; taken {
		return ErrUsernameTaken
	}
	d.sessions[username] = mb
	return nil
}

// Lookup returns the mailbox of an active user.
func (d *Directory) Lookup(username string) (Mailbox, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	mb, ok := d.sessions[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return mb, nil
}

// Remove releases username. Safe to call more than once.
func (d *Directory) Remove(username string) {
	d.mu.Lock()
	delete(d.sessions, username)
	d.mu.Unlock()
}

// Len returns the number of active sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
