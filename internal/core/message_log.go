package core

import "time"

// MessageLog is an append-only message sequence with ids 1, 2, 3, ...
// It is not safe for concurrent use; GroupStore serializes access.
type MessageLog struct {
	messages []Message
}

// Append assigns the next id and stores the message.
func (l *MessageLog) Append(group, from, subject, body string, at time.Time) Message {
	msg := Message{
		ID:        int64(len(l.messages)) + 1,
		Group:     group,
		From:      from,
		Subject:   subject,
		Body:      body,
		CreatedAt: at,
	}
	l.messages = append(l.messages, msg)
	return msg
}

// Last returns up to n most recent messages, oldest first.
func (l *MessageLog) Last(n int) []Message {
	if n <= 0 || len(l.messages) == 0 {
		return []Message{}
	}
	start := max(len(l.messages)-n, 0)
	out := make([]Message, len(l.messages)-start)
	copy(out, l.messages[start:])
	return out
}

// Get returns the message with the given id.
func (l *MessageLog) Get(id int64) (Message, bool) {
	if id < 1 || id > int64(len(l.messages)) {
		return Message{}, false
	}
	return l.messages[id-1], true
}
