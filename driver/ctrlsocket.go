package driver

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	log "github.com/hashicorp/go-hclog"
)

// maxLineLen is the control-socket wire protocol's maximum line
// length (spec.md §6.1).
const maxLineLen = 8 * 1024

// SyncMode governs what happens when an outbound notification to a
// peer would block (spec.md §4.4 "Outbound flow control").
type SyncMode int

const (
	SyncAuto SyncMode = iota // default: disconnect the stalled peer
	SyncYes                  // block the poll loop until drained
	SyncNo                   // drop the notification, warn
)

// ParseSyncMode parses the `synchronous` option's yes/no/auto value.
func ParseSyncMode(s string) SyncMode {
	switch strings.ToLower(s) {
	case "yes":
		return SyncYes
	case "no":
		return SyncNo
	default:
		return SyncAuto
	}
}

// ctrlRequest is a SET/INSTCMD a peer's reader goroutine has parsed
// and handed off to the poll loop, so all DState/Callbacks mutation
// still happens on the single poll-loop goroutine (spec.md §5).
type ctrlRequest struct {
	cmd        Command
	trackingID string
	hasTrack   bool
	reply      chan ctrlReply
}

type ctrlReply struct {
	err *CommandError
}

// ctrlPeer is one connected control-socket client (normally upsd).
type ctrlPeer struct {
	conn   net.Conn
	outCh  chan string
	closed chan struct{}
	once   sync.Once
}

func (p *ctrlPeer) closeOnce() {
	p.once.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}

// CtrlSocket is the local stream socket upsd and tooling connect to
// (spec.md §4.4). It owns accept/read concurrency but defers every
// mutating request to the poll loop via reqCh, preserving the
// single-mutator model of spec.md §5.
type CtrlSocket struct {
	logger   log.Logger
	path     string
	ln       net.Listener
	syncMode SyncMode

	mu    sync.Mutex
	peers map[*ctrlPeer]struct{}

	reqCh    chan *ctrlRequest
	tracking *trackingRegistry

	dstate *DState
}

// NewCtrlSocket listens on a unix-domain socket at path. Callers must
// call Close when done.
func NewCtrlSocket(logger log.Logger, path string, dstate *DState, mode SyncMode) (*CtrlSocket, error) {
	_ = os.Remove(path) // stale socket from a prior crashed instance
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fatalf(err, "listening on control socket %s", path)
	}
	cs := &CtrlSocket{
		logger:   logger,
		path:     path,
		ln:       ln,
		syncMode: mode,
		peers:    make(map[*ctrlPeer]struct{}),
		reqCh:    make(chan *ctrlRequest, 64),
		tracking: newTrackingRegistry(),
		dstate:   dstate,
	}
	dstate.SetOnChange(cs.broadcast)
	return cs, nil
}

// Close stops accepting connections and disconnects every peer.
func (cs *CtrlSocket) Close() error {
	err := cs.ln.Close()
	cs.mu.Lock()
	for p := range cs.peers {
		p.closeOnce()
	}
	cs.mu.Unlock()
	_ = os.Remove(cs.path)
	return err
}

// Serve accepts connections until the listener is closed. Run it in
// its own goroutine from Lifecycle.
func (cs *CtrlSocket) Serve() {
	for {
		conn, err := cs.ln.Accept()
		if err != nil {
			return // listener closed
		}
		cs.acceptPeer(conn)
	}
}

func (cs *CtrlSocket) acceptPeer(conn net.Conn) {
	p := &ctrlPeer{conn: conn, outCh: make(chan string, 256), closed: make(chan struct{})}
	cs.mu.Lock()
	cs.peers[p] = struct{}{}
	cs.mu.Unlock()

	go cs.writerLoop(p)
	go cs.readerLoop(p)

	// Handshake: stream full current state, then DUMPDONE (spec.md §4.2).
	for _, line := range cs.dstate.dumpLines() {
		cs.deliver(p, line)
	}
}

func (cs *CtrlSocket) removePeer(p *ctrlPeer) {
	cs.mu.Lock()
	delete(cs.peers, p)
	cs.mu.Unlock()
	p.closeOnce()
}

func (cs *CtrlSocket) writerLoop(p *ctrlPeer) {
	w := bufio.NewWriter(p.conn)
	for {
		select {
		case line, ok := <-p.outCh:
			if !ok {
				return
			}
			if _, err := w.WriteString(line); err != nil {
				cs.removePeer(p)
				return
			}
			if err := w.WriteByte('\n'); err != nil {
				cs.removePeer(p)
				return
			}
			if err := w.Flush(); err != nil {
				cs.removePeer(p)
				return
			}
		case <-p.closed:
			return
		}
	}
}

func (cs *CtrlSocket) readerLoop(p *ctrlPeer) {
	defer cs.removePeer(p)
	r := bufio.NewReaderSize(p.conn, maxLineLen+1)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineLen {
			cs.deliver(p, fmt.Sprintf("ERR %s", ErrTooLong))
			continue
		}
		cs.handleLine(p, line)
	}
}

func (cs *CtrlSocket) handleLine(p *ctrlPeer, line string) {
	toks, err := tokenize(line)
	if err != nil || len(toks) == 0 {
		cs.deliver(p, fmt.Sprintf("ERR %s", ErrInvalidArgument))
		return
	}

	verb := strings.ToUpper(toks[0])
	switch verb {
	case "PING":
		cs.deliver(p, "PONG")

	case "DUMPALL":
		for _, l := range cs.dstate.dumpLines() {
			cs.deliver(p, l)
		}

	case "TRACKING":
		if len(toks) < 2 || !validTrackingID(toks[1]) {
			cs.deliver(p, fmt.Sprintf("ERR %s", ErrInvalidArgument))
			return
		}
		cs.tracking.Arm(p, toks[1])

	case "SET":
		if len(toks) < 3 {
			cs.deliver(p, fmt.Sprintf("ERR %s", ErrInvalidArgument))
			return
		}
		val, uerr := unquoteValue(toks[2])
		if uerr != nil {
			cs.deliver(p, fmt.Sprintf("ERR %s", ErrInvalidArgument))
			return
		}
		cs.submit(p, NewSetVarCommand(toks[1], val))

	case "INSTCMD":
		if len(toks) < 2 {
			cs.deliver(p, fmt.Sprintf("ERR %s", ErrInvalidArgument))
			return
		}
		extra := ""
		if len(toks) >= 3 {
			if v, uerr := unquoteValue(toks[2]); uerr == nil {
				extra = v
			}
		}
		cs.submit(p, NewInstCmdCommand(toks[1], extra))

	default:
		cs.deliver(p, fmt.Sprintf("ERR %s", ErrUnknownCommand))
	}
}

// submit hands a mutating command to the poll loop and blocks the
// peer's reader goroutine (not the poll loop) until it is processed,
// then writes the OK/ERR/tracking reply.
func (cs *CtrlSocket) submit(p *ctrlPeer, cmd Command) {
	trackID, hasTrack := cs.tracking.Take(p)
	req := &ctrlRequest{cmd: cmd, trackingID: trackID, hasTrack: hasTrack, reply: make(chan ctrlReply, 1)}

	select {
	case cs.reqCh <- req:
	case <-p.closed:
		return
	}

	select {
	case rep := <-req.reply:
		if rep.err != nil {
			cs.deliver(p, fmt.Sprintf("ERR %s", rep.err.Code))
		} else {
			cs.deliver(p, "OK")
		}
		if hasTrack {
			cs.deliver(p, fmt.Sprintf("TRACKING %s", trackID))
		}
	case <-p.closed:
	}
}

// drainRequests is called by the poll loop between updateinfo calls
// (spec.md §5 ordering guarantee): it processes every currently
// queued request without blocking, so nothing queues past the next
// updateinfo start.
func (d *Driver) drainRequests() {
	for {
		select {
		case req := <-d.ctrlSocket.reqCh:
			_, _, err := d.dispatch(req.cmd)
			var cerr *CommandError
			if err != nil {
				if ce, ok := err.(*CommandError); ok {
					cerr = ce
				} else {
					cerr = cmdErr(ErrCmdFailed)
				}
			}
			req.reply <- ctrlReply{err: cerr}
		default:
			return
		}
	}
}

// deliver queues line for p honoring the configured SyncMode.
func (cs *CtrlSocket) deliver(p *ctrlPeer, line string) {
	switch cs.syncMode {
	case SyncYes:
		select {
		case p.outCh <- line:
		case <-p.closed:
		}
	case SyncNo:
		select {
		case p.outCh <- line:
		default:
			cs.logger.Warn("dropping notification, peer write would block", "line", line)
		}
	default: // SyncAuto
		select {
		case p.outCh <- line:
		default:
			cs.logger.Warn("disconnecting slow peer", "line", line)
			cs.removePeer(p)
		}
	}
}

// broadcast fans a dstate wire line out to every connected peer; this
// is DState's onChange callback.
func (cs *CtrlSocket) broadcast(line string) {
	cs.mu.Lock()
	peers := make([]*ctrlPeer, 0, len(cs.peers))
	for p := range cs.peers {
		peers = append(peers, p)
	}
	cs.mu.Unlock()
	for _, p := range peers {
		cs.deliver(p, line)
	}
}

// PeerCount reports the number of connected peers, mainly for tests.
func (cs *CtrlSocket) PeerCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.peers)
}
