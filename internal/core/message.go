package core

import (
	"fmt"
	"time"
)

// PostDateLayout renders message timestamps on the wire.
const PostDateLayout = "2006-01-02 15:04:05"

// Message is the domain model for a posted bulletin board message.
type Message struct {
	ID        int64
	Group     string
	From      string
	Subject   string
	Body      string
	CreatedAt time.Time
}

// PostDate formats CreatedAt for display.
func (m Message) PostDate() string {
	return m.CreatedAt.Format(PostDateLayout)
}

// Header is the one-line summary shown in join replies and notifications.
func (m Message) Header() string {
	return fmt.Sprintf("[%d] %s | %s | %s", m.ID, m.From, m.PostDate(), m.Subject)
}
