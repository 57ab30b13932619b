package core

import "fmt"

// EventKind is a group activity the core reports to other members.
type EventKind int

const (
	// EventUserJoined notifies members about a user joining a group.
	EventUserJoined EventKind = iota
	// EventUserLeft notifies members about a user leaving a group.
	EventUserLeft
	// EventMessagePosted notifies members about a new message.
	EventMessagePosted
	// EventUserDisconnected notifies members that a user's session ended.
	EventUserDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventUserJoined:
		return "user_joined"
	case EventUserLeft:
		return "user_left"
	case EventMessagePosted:
		return "message_posted"
	case EventUserDisconnected:
		return "user_disconnected"
	default:
		return "unknown"
	}
}

// Event describes what happened in a group.
type Event struct {
	Kind    EventKind
	Group   string
	User    string
	Message Message // for EventMessagePosted
}

// Text renders the notification line sent to members.
func (e Event) Text() string {
	switch e.Kind {
	case EventUserJoined:
		return fmt.Sprintf("%s has joined the group", e.User)
	case EventUserLeft:
		return fmt.Sprintf("%s has left the group", e.User)
	case EventMessagePosted:
		return "New message posted: " + e.Message.Header()
	case EventUserDisconnected:
		return fmt.Sprintf("%s has disconnected", e.User)
	default:
		return ""
	}
}
