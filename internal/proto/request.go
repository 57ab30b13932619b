package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Command names as they appear in the "command" field.
const (
	CommandRegister     = "REGISTER"
	CommandJoin         = "JOIN"
	CommandPost         = "POST"
	CommandUsers        = "USERS"
	CommandLeave        = "LEAVE"
	CommandMessage      = "MESSAGE"
	CommandGroups       = "GROUPS"
	CommandGroupJoin    = "GROUPJOIN"
	CommandGroupPost    = "GROUPPOST"
	CommandGroupUsers   = "GROUPUSERS"
	CommandGroupLeave   = "GROUPLEAVE"
	CommandGroupMessage = "GROUPMESSAGE"
	CommandDisconnect   = "DISCONNECT"
)

var (
	// ErrMalformed means the frame is not a JSON object of the expected shape.
	ErrMalformed = errors.New("malformed document")
	// ErrMissingCommand means the document has no command field.
	ErrMissingCommand = errors.New("missing command")
	// ErrUnknownCommand means the command name is not recognized.
	ErrUnknownCommand = errors.New("unknown command")
)

// Request is one decoded client document. Each command has its own type.
type Request interface {
	Command() string
}

type envelope struct {
	Command string `json:"command"`
}

// RegisterRequest claims a username for the connection.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=32"`
}

// JoinRequest joins the public group.
type JoinRequest struct{}

// PostRequest posts to the public group.
type PostRequest struct {
	Subject string `json:"subject" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// UsersRequest lists members of the public group.
type UsersRequest struct{}

// LeaveRequest leaves the public group.
type LeaveRequest struct{}

// MessageRequest fetches a message from the public group.
type MessageRequest struct {
	MsgID *MessageID `json:"msg_id" validate:"required"`
}

// GroupsRequest lists the non-public groups.
type GroupsRequest struct{}

// GroupJoinRequest joins a named group.
type GroupJoinRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// GroupPostRequest posts to a named group.
type GroupPostRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// GroupUsersRequest lists members of a named group.
type GroupUsersRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// GroupLeaveRequest leaves a named group.
type GroupLeaveRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// GroupMessageRequest fetches a message from a named group.
type GroupMessageRequest struct {
	GroupID string     `json:"group_id" validate:"required"`
	MsgID   *MessageID `json:"msg_id" validate:"required"`
}

// DisconnectRequest ends the session.
type DisconnectRequest struct{}

func (RegisterRequest) Command() string     { return CommandRegister }
func (JoinRequest) Command() string         { return CommandJoin }
func (PostRequest) Command() string         { return CommandPost }
func (UsersRequest) Command() string        { return CommandUsers }
func (LeaveRequest) Command() string        { return CommandLeave }
func (MessageRequest) Command() string      { return CommandMessage }
func (GroupsRequest) Command() string       { return CommandGroups }
func (GroupJoinRequest) Command() string    { return CommandGroupJoin }
func (GroupPostRequest) Command() string    { return CommandGroupPost }
func (GroupUsersRequest) Command() string   { return CommandGroupUsers }
func (GroupLeaveRequest) Command() string   { return CommandGroupLeave }
func (GroupMessageRequest) Command() string { return CommandGroupMessage }
func (DisconnectRequest) Command() string   { return CommandDisconnect }

var requestTypes = map[string]func() Request{
	CommandRegister:     func() Request { return &RegisterRequest{} },
	CommandJoin:         func() Request { return &JoinRequest{} },
	CommandPost:         func() Request { return &PostRequest{} },
	CommandUsers:        func() Request { return &UsersRequest{} },
	CommandLeave:        func() Request { return &LeaveRequest{} },
	CommandMessage:      func() Request { return &MessageRequest{} },
	CommandGroups:       func() Request { return &GroupsRequest{} },
	CommandGroupJoin:    func() Request { return &GroupJoinRequest{} },
	CommandGroupPost:    func() Request { return &GroupPostRequest{} },
	CommandGroupUsers:   func() Request { return &GroupUsersRequest{} },
	CommandGroupLeave:   func() Request { return &GroupLeaveRequest{} },
	CommandGroupMessage: func() Request { return &GroupMessageRequest{} },
	CommandDisconnect:   func() Request { return &DisconnectRequest{} },
}

// DecodeRequest parses a frame into its command-specific type. The returned
// value is always a pointer, e.g. *PostRequest. Errors wrap ErrMalformed,
// ErrMissingCommand or ErrUnknownCommand.
func DecodeRequest(frame []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Command == "" {
		return nil, ErrMissingCommand
	}

	newReq, ok := requestTypes[env.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}
	req := newReq()
	if err := json.Unmarshal(frame, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req, nil
}

// MessageID is a message id that accepts a JSON integer or numeric string.
type MessageID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("msg_id must be an integer, got %s", data)
	}
	*id = MessageID(n)
	return nil
}

// Int64 returns the id as int64; a nil receiver yields 0.
func (id *MessageID) Int64() int64 {
	if id == nil {
		return 0
	}
	return int64(*id)
}
