package match

import (
	"sync"

	"github.com/m-mueller678/as4/internal/protocol"
)

// MaxConnections bounds the number of simultaneously connected clients,
// matching the original server's SERVER_MAX_CONNECTIONS.
const MaxConnections = 256

// slotTable is the fixed-capacity connection registry plus the open-games
// map, guarded by a single RWMutex the way the original pairs them under one
// poll-loop owner. A goroutine-per-connection design needs explicit locking
// where the original relied on single-threaded access.
type slotTable struct {
	mu        sync.RWMutex
	slots     []*conn // nil entry = vacant
	openGames map[JoinCode]SlotID
}

func newSlotTable() *slotTable {
	return &slotTable{
		slots:     make([]*conn, 0, MaxConnections),
		openGames: make(map[JoinCode]SlotID),
	}
}

// register inserts c into the first vacant slot, growing the table up to
// MaxConnections. Returns false if the table is full.
func (t *slotTable) register(c *conn) (SlotID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = c
			return SlotID(i), true
		}
	}
	if len(t.slots) >= MaxConnections {
		return 0, false
	}
	t.slots = append(t.slots, c)
	return SlotID(len(t.slots) - 1), true
}

// remove clears the slot, making it available for reuse.
func (t *slotTable) remove(id SlotID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= 0 && int(id) < len(t.slots) {
		t.slots[id] = nil
	}
}

// state returns a copy of the slot's current state.
func (t *slotTable) state(id SlotID) (PlayerState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := t.slots[id]
	if c == nil {
		return PlayerState{}, false
	}
	return c.state, true
}

// setState overwrites the slot's state in place.
func (t *slotTable) setState(id SlotID, st PlayerState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c := t.slots[id]; c != nil {
		c.state = st
	}
}

// streamOf returns the stream registered at id, or nil if the slot is vacant.
func (t *slotTable) streamOf(id SlotID) *protocol.Stream {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(t.slots) || t.slots[id] == nil {
		return nil
	}
	return t.slots[id].stream
}

// reserveCode inserts a fresh JoinCode -> SlotID mapping if code is not
// already taken. Returns false on collision.
func (t *slotTable) reserveCode(code JoinCode, id SlotID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, taken := t.openGames[code]; taken {
		return false
	}
	t.openGames[code] = id
	return true
}

// takeCode removes and returns the SlotID waiting under code, if any.
func (t *slotTable) takeCode(code JoinCode) (SlotID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.openGames[code]
	if ok {
		delete(t.openGames, code)
	}
	return id, ok
}
