// Package dispatch maps decoded client requests onto the group store and
// shapes the reply documents.
package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wireboard/internal/core"
	"github.com/vovakirdan/wireboard/internal/proto"
)

// Dispatcher routes one request for an authenticated user. It keeps no
// per-session state and is safe for concurrent use.
type Dispatcher struct {
	store    *core.GroupStore
	validate *validator.Validate
	log      *zerolog.Logger
}

// New builds a dispatcher over store.
func New(store *core.GroupStore, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	return &Dispatcher{
		store:    store,
		validate: validate,
		log:      logger,
	}
}

// Dispatch decodes frame and executes it on behalf of username. Every failure
// comes back as an ERROR reply; nothing escapes to the transport.
func (d *Dispatcher) Dispatch(username string, frame []byte) proto.Response {
	req, err := d.Decode(frame)
	if err != nil {
		return ErrorReply(err)
	}
	return d.Execute(username, req)
}

// Decode parses and validates a frame, mapping failures to core errors.
func (d *Dispatcher) Decode(frame []byte) (proto.Request, error) {
	req, err := proto.DecodeRequest(frame)
	switch {
	case errors.Is(err, proto.ErrUnknownCommand):
		return nil, core.ErrUnknownCommand
	case errors.Is(err, proto.ErrMissingCommand):
		return nil, core.NewError(core.ErrCodeProtocol, "Missing command")
	case err != nil:
		return nil, core.NewError(core.ErrCodeProtocol, "Malformed request: "+err.Error())
	}

	if err := d.validate.Struct(req); err != nil {
		return nil, core.NewError(core.ErrCodeBadRequest, describeValidation(err))
	}
	return req, nil
}

// Execute runs an already decoded request.
func (d *Dispatcher) Execute(username string, req proto.Request) (resp proto.Response) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("user", username).Str("command", req.Command()).Msg("dispatch panic")
			resp = proto.Error(core.ErrCodeInternal, "Internal server error")
		}
	}()

	public := d.store.PublicGroup()

	switch r := req.(type) {
	case *proto.JoinRequest:
		return d.join(public, username)
	case *proto.GroupJoinRequest:
		return d.join(r.GroupID, username)
	case *proto.PostRequest:
		return d.post(public, username, r.Subject, r.Content)
	case *proto.GroupPostRequest:
		return d.post(r.GroupID, username, r.Subject, r.Content)
	case *proto.UsersRequest:
		return d.users(public, username)
	case *proto.GroupUsersRequest:
		return d.users(r.GroupID, username)
	case *proto.LeaveRequest:
		return d.leave(public, username)
	case *proto.GroupLeaveRequest:
		return d.leave(r.GroupID, username)
	case *proto.MessageRequest:
		return d.message(public, username, r.MsgID.Int64())
	case *proto.GroupMessageRequest:
		return d.message(r.GroupID, username, r.MsgID.Int64())
	case *proto.GroupsRequest:
		return d.groups()
	case *proto.RegisterRequest:
		return proto.Error(core.ErrCodeProtocol, "Already registered")
	default:
		return ErrorReply(core.ErrUnknownCommand)
	}
}

func (d *Dispatcher) join(groupID, username string) proto.Response {
	res, err := d.store.Join(groupID, username)
	if err != nil {
		return ErrorReply(err)
	}
	return proto.JoinReply{
		Reply:          proto.Ok("Joined group: " + res.Group.Name),
		Users:          res.Users,
		RecentMessages: lo.Map(res.Recent, func(m core.Message, _ int) string { return m.Header() }),
	}
}

func (d *Dispatcher) post(groupID, username, subject, body string) proto.Response {
	msg, err := d.store.Post(groupID, username, subject, body)
	if err != nil {
		return ErrorReply(err)
	}
	return proto.PostReply{Reply: proto.Ok("Message posted successfully"), MsgID: msg.ID}
}

func (d *Dispatcher) users(groupID, username string) proto.Response {
	users, err := d.store.Members(groupID, username)
	if err != nil {
		return ErrorReply(err)
	}
	return proto.UsersReply{Reply: proto.Ok(""), Users: users}
}

func (d *Dispatcher) leave(groupID, username string) proto.Response {
	info, err := d.store.Leave(groupID, username)
	if err != nil {
		return ErrorReply(err)
	}
	return proto.Ok("Left group: " + info.Name)
}

func (d *Dispatcher) message(groupID, username string, id int64) proto.Response {
	msg, err := d.store.Message(groupID, username, id)
	if err != nil {
		return ErrorReply(err)
	}
	return proto.MessageReply{StatusText: proto.StatusSuccess, Message: Record(msg)}
}

func (d *Dispatcher) groups() proto.Response {
	return proto.GroupsReply{Reply: proto.Ok(""), Groups: GroupInfos(d.store.Groups())}
}

// Record converts a stored message to its wire form.
func Record(m core.Message) proto.MessageRecord {
	return proto.MessageRecord{
		MsgID:    m.ID,
		Sender:   m.From,
		Subject:  m.Subject,
		Content:  m.Body,
		PostDate: m.PostDate(),
		GroupID:  m.Group,
	}
}

// GroupInfos converts group summaries to their wire form.
func GroupInfos(groups []core.GroupInfo) []proto.GroupInfo {
	return lo.Map(groups, func(g core.GroupInfo, _ int) proto.GroupInfo {
		return proto.GroupInfo{GroupID: g.ID, Name: g.Name, MemberCount: g.MemberCount}
	})
}

// ErrorReply renders any error as a wire error document.
func ErrorReply(err error) proto.ErrorReply {
	var ce *core.CoreError
	if errors.As(err, &ce) {
		return proto.Error(ce.Code, ce.Message)
	}
	return proto.Error(core.ErrCodeInternal, "Internal server error")
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	parts := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", field)
		}
	})
	return strings.Join(parts, "; ")
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
