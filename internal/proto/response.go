package proto

import "encoding/json"

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"

	TypeNotification = "NOTIFICATION"
)

// Response is a reply document. Each command has its own shape.
type Response interface {
	Status() string
}

// Reply is the common header; on its own it serves commands that only carry a message.
type Reply struct {
	StatusText string `json:"status"`
	Message    string `json:"message,omitempty"`
}

func (r Reply) Status() string { return r.StatusText }

// Ok builds a success reply with an optional message.
func Ok(msg string) Reply {
	return Reply{StatusText: StatusSuccess, Message: msg}
}

// ErrorReply reports a failed command.
type ErrorReply struct {
	StatusText string `json:"status"`
	Message    string `json:"message"`
	Code       string `json:"code"`
}

func (r ErrorReply) Status() string { return r.StatusText }

// Error builds an error reply.
func Error(code, msg string) ErrorReply {
	return ErrorReply{StatusText: StatusError, Message: msg, Code: code}
}

// JoinReply answers JOIN and GROUPJOIN.
type JoinReply struct {
	Reply
	Users          []string `json:"users"`
	RecentMessages []string `json:"recent_messages"`
}

// PostReply answers POST and GROUPPOST.
type PostReply struct {
	Reply
	MsgID int64 `json:"msg_id"`
}

// UsersReply answers USERS and GROUPUSERS.
type UsersReply struct {
	Reply
	Users []string `json:"users"`
}

// MessageRecord is the full form of a stored message.
type MessageRecord struct {
	MsgID    int64  `json:"msg_id"`
	Sender   string `json:"sender"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	PostDate string `json:"post_date"`
	GroupID  string `json:"group_id"`
}

// MessageReply answers MESSAGE and GROUPMESSAGE. The record travels in the
// "message" field.
type MessageReply struct {
	StatusText string        `json:"status"`
	Message    MessageRecord `json:"message"`
}

func (r MessageReply) Status() string { return r.StatusText }

// GroupInfo is one entry of a GROUPS reply.
type GroupInfo struct {
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// GroupsReply answers GROUPS.
type GroupsReply struct {
	Reply
	Groups []GroupInfo `json:"groups"`
}

// Notification is pushed to a session without a matching request.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewNotification wraps an event line.
func NewNotification(text string) Notification {
	return Notification{Type: TypeNotification, Message: text}
}

// Encode marshals any outbound document.
func Encode(doc any) ([]byte, error) {
	return json.Marshal(doc)
}
