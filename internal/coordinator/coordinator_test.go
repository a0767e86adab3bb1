package coordinator

import (
	"errors"
	"sync"
	"time"
)

// fakeConn records every event sent to it, standing in for a websocket
// connection.
type fakeConn struct {
	mu     sync.Mutex
	events []sentEvent
}

type sentEvent struct {
	name    string
	payload interface{}
}

func (f *fakeConn) Send(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{name: event, payload: payload})
}

func (f *fakeConn) named(name string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentEvent
	for _, ev := range f.events {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakeGateway grants access from explicit maps; nil maps deny everything.
type fakeGateway struct {
	readable map[string]map[string]bool // userID -> projectID -> ok
	editable map[string]map[string]bool
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		readable: make(map[string]map[string]bool),
		editable: make(map[string]map[string]bool),
	}
}

func (g *fakeGateway) allowRead(userID, projectID string) {
	if g.readable[userID] == nil {
		g.readable[userID] = make(map[string]bool)
	}
	g.readable[userID][projectID] = true
}

func (g *fakeGateway) allowEdit(userID, projectID string) {
	g.allowRead(userID, projectID)
	if g.editable[userID] == nil {
		g.editable[userID] = make(map[string]bool)
	}
	g.editable[userID][projectID] = true
}

func (g *fakeGateway) CanReadProject(userID, projectID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.readable[userID][projectID], nil
}

func (g *fakeGateway) CanEditProject(userID, projectID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.editable[userID][projectID], nil
}

// fakeProfiles resolves profiles from a map; unknown users get ErrNotFound.
type fakeProfiles struct {
	profiles map[string]Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]Profile)}
}

func (p *fakeProfiles) add(userID, username string) {
	p.profiles[userID] = Profile{UserID: userID, Username: username}
}

func (p *fakeProfiles) UserProfile(userID string) (Profile, error) {
	profile, ok := p.profiles[userID]
	if !ok {
		return Profile{}, errors.New("unknown user")
	}
	return profile, nil
}

func newTestCoordinator(ttl time.Duration) (*Coordinator, *fakeGateway, *fakeProfiles) {
	gateway := newFakeGateway()
	profiles := newFakeProfiles()
	c := New(gateway, profiles, Options{LockTTL: ttl})
	return c, gateway, profiles
}

// connect registers a user with a fresh fake connection and known profile.
func connect(c *Coordinator, profiles *fakeProfiles, userID, username string) *fakeConn {
	conn := &fakeConn{}
	profiles.add(userID, username)
	c.OnConnect(conn, Profile{UserID: userID, Username: username})
	return conn
}
