package driver

import "sync"

// trackingRegistry associates a client-chosen TRACKING id with the
// next SET/INSTCMD a peer sends, so upsd can correlate an async
// completion reply (spec.md §4.4 "TRACKING <id>").
type trackingRegistry struct {
	mu      sync.Mutex
	pending map[*ctrlPeer]string
}

func newTrackingRegistry() *trackingRegistry {
	return &trackingRegistry{pending: make(map[*ctrlPeer]string)}
}

// Arm records id as the tracking token for peer's next command.
func (r *trackingRegistry) Arm(peer *ctrlPeer, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[peer] = id
}

// Take returns and clears the armed id for peer, if any.
func (r *trackingRegistry) Take(peer *ctrlPeer) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pending[peer]
	if ok {
		delete(r.pending, peer)
	}
	return id, ok
}

// maxTrackingIDLen bounds the client-supplied "UUID-like" token
// (spec.md §4.4); a real UUID is 36 characters, so this leaves
// generous room without accepting arbitrarily long garbage.
const maxTrackingIDLen = 64

// validTrackingID reports whether id is acceptable as a TRACKING
// token. The id is client-chosen (spec.md §4.4 "TRACKING <id>" is
// echoed back verbatim on completion), so validation is limited to
// what the wire format and the reply line can safely carry: non-
// empty, bounded, and free of whitespace that would corrupt the
// "TRACKING <id>" reply line it is echoed back in.
func validTrackingID(id string) bool {
	if id == "" || len(id) > maxTrackingIDLen {
		return false
	}
	for _, r := range id {
		if r <= ' ' || r == 0x7f {
			return false
		}
	}
	return true
}
