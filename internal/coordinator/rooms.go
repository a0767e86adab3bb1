package coordinator

import "sync"

// RoomIndex is a bidirectional multimap between scopes (project or file IDs)
// and members (user IDs). Empty sets are pruned on removal so churn does not
// grow the maps without bound. One instance serves project rooms, another
// file rooms.
type RoomIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // scope -> member set
	scopes  map[string]map[string]struct{} // member -> scope set
}

// NewRoomIndex creates an empty index.
func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		members: make(map[string]map[string]struct{}),
		scopes:  make(map[string]map[string]struct{}),
	}
}

// Join adds memberID to scopeID in both directions. Idempotent.
func (ri *RoomIndex) Join(scopeID, memberID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if ri.members[scopeID] == nil {
		ri.members[scopeID] = make(map[string]struct{})
	}
	ri.members[scopeID][memberID] = struct{}{}

	if ri.scopes[memberID] == nil {
		ri.scopes[memberID] = make(map[string]struct{})
	}
	ri.scopes[memberID][scopeID] = struct{}{}
}

// Leave removes memberID from scopeID in both directions, pruning empty
// sets. Idempotent.
func (ri *RoomIndex) Leave(scopeID, memberID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.leaveLocked(scopeID, memberID)
}

func (ri *RoomIndex) leaveLocked(scopeID, memberID string) {
	if set, ok := ri.members[scopeID]; ok {
		delete(set, memberID)
		if len(set) == 0 {
			delete(ri.members, scopeID)
		}
	}
	if set, ok := ri.scopes[memberID]; ok {
		delete(set, scopeID)
		if len(set) == 0 {
			delete(ri.scopes, memberID)
		}
	}
}

// LeaveAll removes memberID from every scope it belongs to and returns the
// affected scope IDs, so disconnect handling can drive per-room cleanup
// broadcasts.
func (ri *RoomIndex) LeaveAll(memberID string) []string {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	set := ri.scopes[memberID]
	if len(set) == 0 {
		return nil
	}

	affected := make([]string, 0, len(set))
	for scopeID := range set {
		affected = append(affected, scopeID)
	}
	for _, scopeID := range affected {
		ri.leaveLocked(scopeID, memberID)
	}
	return affected
}

// MembersOf returns a copy of the member set for scopeID.
func (ri *RoomIndex) MembersOf(scopeID string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	set := ri.members[scopeID]
	out := make([]string, 0, len(set))
	for memberID := range set {
		out = append(out, memberID)
	}
	return out
}

// ScopesOf returns a copy of the scope set for memberID.
func (ri *RoomIndex) ScopesOf(memberID string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	set := ri.scopes[memberID]
	out := make([]string, 0, len(set))
	for scopeID := range set {
		out = append(out, scopeID)
	}
	return out
}

// Contains reports whether memberID is in scopeID.
func (ri *RoomIndex) Contains(scopeID, memberID string) bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	_, ok := ri.members[scopeID][memberID]
	return ok
}

// ScopeCount returns the number of non-empty scopes.
func (ri *RoomIndex) ScopeCount() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.members)
}
