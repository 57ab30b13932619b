package core

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// GroupSpec seeds one group at construction time.
type GroupSpec struct {
	ID   string
	Name string
}

// JoinResult is what a new member sees after joining.
type JoinResult struct {
	Group  GroupInfo
	Users  []string
	Recent []Message
}

// GroupStore owns every group, its membership and message log.
//
// A single mutex covers each check-and-mutate sequence, so membership checks,
// id assignment and notification scheduling are atomic with respect to each
// other. Nothing under the lock blocks on I/O.
type GroupStore struct {
	mu     sync.Mutex
	groups map[string]*Group
	order  []string
	public string
	recent int

	notifier *Notifier
	now      func() time.Time
}

// StoreOption customizes a GroupStore.
type StoreOption func(*GroupStore)

// WithClock overrides the timestamp source for posted messages.
func WithClock(now func() time.Time) StoreOption {
	return func(s *GroupStore) { s.now = now }
}

// WithRecentMessages sets how many messages a join reply includes.
func WithRecentMessages(n int) StoreOption {
	return func(s *GroupStore) { s.recent = n }
}

// NewGroupStore creates all groups up front. public names the default group
// that Groups() leaves out.
func NewGroupStore(public string, specs []GroupSpec, notifier *Notifier, opts ...StoreOption) *GroupStore {
	s := &GroupStore{
		groups:   make(map[string]*Group, len(specs)),
		public:   public,
		recent:   2,
		notifier: notifier,
		now:      time.Now,
	}
	for _, spec := range specs {
		if _, dup := s.groups[spec.ID]; dup {
			continue
		}
		s.groups[spec.ID] = NewGroup(spec.ID, spec.Name)
		s.order = append(s.order, spec.ID)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublicGroup returns the id of the default group.
func (s *GroupStore) PublicGroup() string {
	return s.public
}

// Join adds username to the group and announces it to the other members.
func (s *GroupStore) Join(groupID, username string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return JoinResult{}, ErrGroupNotFound
	}
	if !g.AddMember(username) {
		return JoinResult{}, ErrAlreadyMember
	}

	s.publish(g, Event{Kind: EventUserJoined, Group: g.ID, User: username})

	return JoinResult{
		Group:  g.Info(),
		Users:  g.Members(),
		Recent: g.log.Last(s.recent),
	}, nil
}

// Leave removes username from the group and announces it.
func (s *GroupStore) Leave(groupID, username string) (GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.memberGroup(groupID, username)
	if err != nil {
		return GroupInfo{}, err
	}
	g.RemoveMember(username)

	s.publish(g, Event{Kind: EventUserLeft, Group: g.ID, User: username})
	return g.Info(), nil
}

// Post appends a message from a member and announces its header.
func (s *GroupStore) Post(groupID, username, subject, body string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.memberGroup(groupID, username)
	if err != nil {
		return Message{}, err
	}
	msg := g.log.Append(g.ID, username, subject, body, s.now())

	s.publish(g, Event{Kind: EventMessagePosted, Group: g.ID, User: username, Message: msg})
	return msg, nil
}

// Members lists the group's users, visible to members only.
func (s *GroupStore) Members(groupID, username string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.memberGroup(groupID, username)
	if err != nil {
		return nil, err
	}
	return g.Members(), nil
}

// Message fetches one message by id, visible to members only.
func (s *GroupStore) Message(groupID, username string, id int64) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.memberGroup(groupID, username)
	if err != nil {
		return Message{}, err
	}
	msg, ok := g.log.Get(id)
	if !ok {
		return Message{}, ErrMessageNotFound
	}
	return msg, nil
}

// Groups lists every group except the public one, in creation order.
func (s *GroupStore) Groups() []GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := lo.Filter(s.order, func(id string, _ int) bool { return id != s.public })
	return lo.Map(ids, func(id string, _ int) GroupInfo { return s.groups[id].Info() })
}

// Disconnect drops username from every group it belongs to and tells the
// remaining members once per group. Returns the affected group ids.
func (s *GroupStore) Disconnect(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var left []string
	for _, id := range s.order {
		g := s.groups[id]
		if !g.RemoveMember(username) {
			continue
		}
		left = append(left, id)
		s.publish(g, Event{Kind: EventUserDisconnected, Group: id, User: username})
	}
	return left
}

// memberGroup resolves a group and checks membership. Caller holds s.mu.
func (s *GroupStore) memberGroup(groupID, username string) (*Group, error) {
	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	if !g.HasMember(username) {
		return nil, ErrNotMember
	}
	return g, nil
}

func (s *GroupStore) publish(g *Group, ev Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.publish(g, ev)
}
