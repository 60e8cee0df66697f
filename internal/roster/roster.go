// Package roster tracks which crew member is connected at which bridge
// station. Sessions join with a station and display name and are announced to
// every other station on change.
package roster

import (
	"sync"
	"time"
)

// Member is one connected crew session.
type Member struct {
	SessionID string    `json:"sessionId"`
	Station   string    `json:"station"`
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Roster holds the connected crew, keyed by session.
type Roster struct {
	mu       sync.RWMutex
	members  map[string]Member
	onChange func([]Member)
}

// New returns an empty roster. onChange, if non-nil, receives the full member
// list after every join or leave.
func New(onChange func([]Member)) *Roster {
	return &Roster{
		members:  make(map[string]Member),
		onChange: onChange,
	}
}

// Join registers (or re-registers) a session at a station.
func (r *Roster) Join(sessionID, station, name string) Member {
	r.mu.Lock()
	member := Member{
		SessionID: sessionID,
		Station:   station,
		Name:      name,
		JoinedAt:  time.Now(),
	}
	r.members[sessionID] = member
	members := r.listLocked()
	r.mu.Unlock()

	r.notify(members)
	return member
}

// Leave drops a session. Unknown sessions are ignored.
func (r *Roster) Leave(sessionID string) {
	r.mu.Lock()
	_, exists := r.members[sessionID]
	delete(r.members, sessionID)
	members := r.listLocked()
	r.mu.Unlock()

	if exists {
		r.notify(members)
	}
}

// List returns every connected member.
func (r *Roster) List() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

// Station returns the members connected at one station.
func (r *Roster) Station(station string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var members []Member
	for _, m := range r.members {
		if m.Station == station {
			members = append(members, m)
		}
	}
	return members
}

func (r *Roster) listLocked() []Member {
	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	return members
}

func (r *Roster) notify(members []Member) {
	if r.onChange != nil {
		r.onChange(members)
	}
}
