//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

// Package p2p implements the point-to-point mesh between committee
// members. Each pair of members shares exactly one connection that
// carries 6-byte share frames in both directions. A receive loop per
// peer deposits the inbound shares into the exchange slot table.
package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/markkurossi/tabulate"
	"github.com/markkurossi/tallier/exchange"
	"github.com/markkurossi/tallier/field"
	"github.com/markkurossi/tallier/pkg/math"
	"github.com/markkurossi/text/superscript"
	"golang.org/x/sync/errgroup"
)

// Default configuration values.
const (
	DefaultHost       = "127.0.0.1"
	DefaultBasePort   = 5010
	DefaultRetryDelay = 100 * time.Millisecond
)

var (
	// ErrHandshake is returned for invalid handshake values.
	ErrHandshake = errors.New("invalid handshake")

	// ErrDuplicatePeer is returned when a peer registers twice.
	ErrDuplicatePeer = errors.New("duplicate peer")

	// ErrSessionEnded is returned when the end-of-session signal
	// arrives before the mesh is complete.
	ErrSessionEnded = errors.New("session ended")

	// ErrClosed is returned for operations on a closed network.
	ErrClosed = errors.New("network closed")

	// ErrNotReady is returned when exchanging before the mesh is
	// complete.
	ErrNotReady = errors.New("mesh not complete")

	// ErrShareCount is returned when the exchanged share vector does
	// not have one share per party.
	ErrShareCount = errors.New("invalid number of shares")

	// ErrPeerClosed is the failure of a peer that closed its
	// connection.
	ErrPeerClosed = errors.New("peer closed connection")
)

// StallError is returned when an exchange round cannot complete
// because parties that have not contributed to it have failed.
type StallError struct {
	MsgID uint16
	Peers []int
	Err   error
}

func (e *StallError) Error() string {
	return fmt.Sprintf("message %d stalled on peers %v: %v",
		e.MsgID, e.Peers, e.Err)
}

func (e *StallError) Unwrap() error {
	return e.Err
}

// Config defines the network configuration of one committee member.
type Config struct {
	ID         int
	Parties    int
	Host       string
	BasePort   int
	RetryDelay time.Duration
	Linger     time.Duration
	Verbose    bool
}

// Addr returns the listener address of party id.
func (c Config) Addr(id int) string {
	host := c.Host
	if len(host) == 0 {
		host = DefaultHost
	}
	port := c.BasePort
	if port == 0 {
		port = DefaultBasePort
	}
	return net.JoinHostPort(host, strconv.Itoa(port+id))
}

// Network implements the mesh of one committee member.
type Network struct {
	cfg   Config
	id    int
	slots *exchange.Table[field.Element]
	peers []*Peer
	ready chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup

	m        sync.Mutex
	pending  uint64
	failed   uint64
	failures []error
	failCh   chan struct{}
	closing  bool
	listener net.Listener
	accepted map[net.Conn]struct{}
	aborted  map[uint16]error
	endOnce  sync.Once
	endCh    chan struct{}
	fatal    chan error
}

// Peer implements a connection to one committee peer.
type Peer struct {
	id     int
	client bool
	m      sync.Mutex
	conn   *Conn
	closed bool
}

func (p *Peer) send(f Frame) error {
	p.m.Lock()
	defer p.m.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.conn.SendFrame(f); err != nil {
		return err
	}
	return p.conn.Flush()
}

func (p *Peer) close() error {
	p.m.Lock()
	defer p.m.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}

// NewNetwork creates the network of committee member cfg.ID. The
// network has a slot table with one slot per message ID.
func NewNetwork(cfg Config) (*Network, error) {
	if cfg.Parties < 1 || cfg.Parties > math.MaxParties {
		return nil, fmt.Errorf("invalid number of parties %d", cfg.Parties)
	}
	if cfg.ID < 0 || cfg.ID >= cfg.Parties {
		return nil, fmt.Errorf("invalid party ID %d", cfg.ID)
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	slots, err := exchange.NewTable[field.Element](math.NumMessageIDs,
		cfg.Parties)
	if err != nil {
		return nil, err
	}
	nw := &Network{
		cfg:      cfg,
		id:       cfg.ID,
		slots:    slots,
		peers:    make([]*Peer, cfg.Parties),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		failures: make([]error, cfg.Parties),
		failCh:   make(chan struct{}),
		accepted: make(map[net.Conn]struct{}),
		aborted:  make(map[uint16]error),
		endCh:    make(chan struct{}),
		fatal:    make(chan error, 1),
	}
	for i := 0; i < cfg.Parties; i++ {
		if i != cfg.ID {
			nw.pending |= 1 << i
		}
	}
	if nw.pending == 0 {
		close(nw.ready)
	}
	return nw, nil
}

// ID returns the party ID of this committee member.
func (nw *Network) ID() int {
	return nw.id
}

// Parties returns the committee size.
func (nw *Network) Parties() int {
	return nw.cfg.Parties
}

// Config returns the network configuration.
func (nw *Network) Config() Config {
	return nw.cfg
}

// Ready returns a channel that is closed when all peers are
// connected.
func (nw *Network) Ready() <-chan struct{} {
	return nw.ready
}

// Debugf prints debugging message if Verbose output is enabled.
func (nw *Network) Debugf(format string, a ...interface{}) {
	if !nw.cfg.Verbose {
		return
	}
	fmt.Printf(format, a...)
}

func (nw *Network) name() string {
	return "NW" + superscript.Itoa(nw.id)
}

// Build creates the mesh. It listens at the member's address, accepts
// connections from higher party IDs, and dials the lower party IDs
// until they answer. Build returns when every peer is connected. On
// failure, the network is closed.
func (nw *Network) Build(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := nw.cfg.Addr(nw.id)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		nw.Close()
		return err
	}
	nw.m.Lock()
	if nw.closing {
		nw.m.Unlock()
		listener.Close()
		return ErrClosed
	}
	nw.listener = listener
	nw.wg.Add(1)
	nw.m.Unlock()

	nw.Debugf("%s: listening at %s\n", nw.name(), addr)
	go nw.acceptLoop(listener)

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < nw.id; id++ {
		g.Go(func() error {
			return nw.dial(gctx, id)
		})
	}
	dialc := make(chan error, 1)
	go func() {
		dialc <- g.Wait()
	}()

	for {
		select {
		case <-nw.ready:
			nw.stopListener()
			return nil

		case <-nw.endCh:
			select {
			case <-nw.ready:
				nw.stopListener()
				return nil
			default:
			}
			err = ErrSessionEnded

		case err = <-dialc:
			if err == nil {
				dialc = nil
				continue
			}

		case err = <-nw.fatal:

		case <-nw.done:
			return ErrClosed

		case <-ctx.Done():
			err = ctx.Err()
		}
		nw.Close()
		return err
	}
}

func (nw *Network) stopListener() {
	nw.m.Lock()
	listener := nw.listener
	nw.listener = nil
	nw.m.Unlock()

	if listener != nil {
		listener.Close()
	}
}

func (nw *Network) acceptLoop(listener net.Listener) {
	defer nw.wg.Done()

	for {
		nc, err := listener.Accept()
		if err != nil {
			nw.m.Lock()
			stopped := nw.listener != listener || nw.closing
			nw.m.Unlock()
			if !stopped {
				log.Printf("%s: accept failed: %v\n", nw.name(), err)
				select {
				case nw.fatal <- err:
				default:
				}
			}
			return
		}
		nw.Debugf("%s: accepted connection from %s\n",
			nw.name(), nc.RemoteAddr())

		nw.m.Lock()
		if nw.closing {
			nw.m.Unlock()
			nc.Close()
			return
		}
		nw.accepted[nc] = struct{}{}
		nw.wg.Add(1)
		nw.m.Unlock()

		go func(nc net.Conn) {
			defer nw.wg.Done()
			if err := nw.AddConn(NewConn(nc)); err != nil {
				log.Printf("%s: %v\n", nw.name(), err)
			}
			nw.m.Lock()
			delete(nw.accepted, nc)
			nw.m.Unlock()
		}(nc)
	}
}

func (nw *Network) dial(ctx context.Context, id int) error {
	addr := nw.cfg.Addr(id)
	var dialer net.Dialer

	for {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn := NewConn(nc)
			peerID, err := handshake(conn, int8(nw.id))
			if err != nil {
				conn.Close()
				return fmt.Errorf("handshake with %s failed: %w", addr, err)
			}
			if int(peerID) != id {
				conn.Close()
				return fmt.Errorf("%w: dialed peer %d, got %d",
					ErrHandshake, id, peerID)
			}
			return nw.register(conn, id, true)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		nw.Debugf("%s: connect to %s failed, retrying in %s\n",
			nw.name(), addr, nw.cfg.RetryDelay)

		select {
		case <-time.After(nw.cfg.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AddConn performs the server-side handshake on the connection and
// registers the peer. Ephemeral connections are closed after the
// handshake, and an end-of-session handshake ends the session. The
// connection is closed on errors.
func (nw *Network) AddConn(conn *Conn) error {
	value, err := handshake(conn, int8(nw.id))
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}
	switch value {
	case HandshakeEphemeral:
		nw.Debugf("%s: ephemeral connection\n", nw.name())
		return conn.Close()

	case HandshakeEndSession:
		nw.Debugf("%s: end of session\n", nw.name())
		// Close drains the handshake reply before the session ends
		// and Build tears down the pending connections.
		err := conn.Close()
		nw.endOnce.Do(func() {
			close(nw.endCh)
		})
		return err
	}
	return nw.register(conn, int(value), false)
}

func (nw *Network) register(conn *Conn, id int, client bool) error {
	if id < 0 || id >= nw.cfg.Parties || id == nw.id {
		conn.Close()
		return fmt.Errorf("%w: party ID %d", ErrHandshake, id)
	}
	nw.m.Lock()
	if nw.closing {
		nw.m.Unlock()
		conn.Close()
		return ErrClosed
	}
	bit := uint64(1) << id
	if nw.pending&bit == 0 {
		nw.m.Unlock()
		conn.Close()
		return fmt.Errorf("%w: %d", ErrDuplicatePeer, id)
	}
	peer := &Peer{
		id:     id,
		client: client,
		conn:   conn,
	}
	nw.peers[id] = peer
	nw.pending &^= bit
	complete := nw.pending == 0
	nw.wg.Add(1)
	nw.m.Unlock()

	nw.Debugf("%s: peer %d connected\n", nw.name(), id)

	go nw.recvLoop(peer)
	if complete {
		nw.Debugf("%s: mesh complete\n", nw.name())
		close(nw.ready)
	}
	return nil
}

func (nw *Network) recvLoop(peer *Peer) {
	defer nw.wg.Done()

	for {
		f, err := peer.conn.ReceiveFrame()
		if err != nil {
			if nw.isClosing() {
				return
			}
			if errors.Is(err, io.EOF) {
				nw.Debugf("%s: peer %d closed connection\n", nw.name(), peer.id)
				err = ErrPeerClosed
			} else {
				log.Printf("%s: receive from peer %d failed: %v\n",
					nw.name(), peer.id, err)
			}
			nw.peerFailed(peer.id, err)
			nw.closePeer(peer)
			return
		}
		err = nw.slots.Deposit(int(f.MsgID), field.Element(f.Value), peer.id)
		if err != nil {
			log.Printf("%s: peer %d: frame %v: %v\n", nw.name(), peer.id, f, err)
			nw.peerFailed(peer.id, fmt.Errorf("message %d: %w", f.MsgID, err))
			nw.closePeer(peer)
			return
		}
	}
}

// closePeer closes the connection of a failed peer so that the peer's
// pending writes fail instead of blocking.
func (nw *Network) closePeer(peer *Peer) {
	if err := peer.close(); err != nil {
		nw.Debugf("%s: close peer %d: %v\n", nw.name(), peer.id, err)
	}
}

func (nw *Network) isClosing() bool {
	nw.m.Lock()
	defer nw.m.Unlock()
	return nw.closing
}

func (nw *Network) peerFailed(id int, err error) {
	nw.m.Lock()
	defer nw.m.Unlock()

	bit := uint64(1) << id
	if nw.failed&bit != 0 {
		return
	}
	nw.failed |= bit
	nw.failures[id] = err
	close(nw.failCh)
	nw.failCh = make(chan struct{})
}

func (nw *Network) failure() (uint64, chan struct{}) {
	nw.m.Lock()
	defer nw.m.Unlock()
	return nw.failed, nw.failCh
}

func (nw *Network) stallError(msgID uint16, mask uint64) error {
	nw.m.Lock()
	defer nw.m.Unlock()

	e := &StallError{
		MsgID: msgID,
	}
	for i := 0; i < nw.cfg.Parties; i++ {
		if mask&(1<<i) != 0 {
			e.Peers = append(e.Peers, i)
			if e.Err == nil {
				e.Err = nw.failures[i]
			}
		}
	}
	return e
}

// Exchange runs one exchange round: shares[i] is sent to party i and
// the function returns the vector of the shares that each party sent
// to this member. The own share is deposited locally. Exchange
// returns a *StallError if a party that has not contributed to the
// round has failed.
//
// A failed or cancelled round leaves the message ID unusable for the
// rest of the session since the peers' contributions to it can still
// arrive. Later exchanges on the ID return the original failure.
func (nw *Network) Exchange(ctx context.Context, msgID uint16,
	shares []field.Element) ([]field.Element, error) {

	if len(shares) != nw.cfg.Parties {
		return nil, fmt.Errorf("%w: got %d, expected %d",
			ErrShareCount, len(shares), nw.cfg.Parties)
	}
	select {
	case <-nw.ready:
	default:
		return nil, ErrNotReady
	}
	select {
	case <-nw.done:
		return nil, ErrClosed
	default:
	}

	nw.m.Lock()
	cause, ok := nw.aborted[msgID]
	nw.m.Unlock()
	if ok {
		return nil, fmt.Errorf("message %d aborted: %w", msgID, cause)
	}

	slot := nw.slots.Slot(int(msgID))
	if err := slot.Claim(); err != nil {
		return nil, fmt.Errorf("message %d: %w", msgID, err)
	}
	result, err := nw.runExchange(ctx, slot, msgID, shares)
	if err != nil {
		nw.m.Lock()
		nw.aborted[msgID] = err
		nw.m.Unlock()
		return nil, err
	}
	return result, nil
}

func (nw *Network) runExchange(ctx context.Context,
	slot *exchange.Slot[field.Element], msgID uint16,
	shares []field.Element) ([]field.Element, error) {

	if err := slot.Deposit(shares[nw.id], nw.id); err != nil {
		return nil, fmt.Errorf("message %d: %w", msgID, err)
	}
	for i, peer := range nw.peers {
		if i == nw.id {
			continue
		}
		err := peer.send(Frame{
			MsgID: msgID,
			Value: uint32(shares[i]),
		})
		if err != nil {
			nw.peerFailed(i, err)
			return nil, nw.stallError(msgID, 1<<i)
		}
	}

	for {
		failed, failCh := nw.failure()
		if stalled := slot.Missing() & failed; stalled != 0 {
			return nil, nw.stallError(msgID, stalled)
		}
		select {
		case <-slot.Ready():
			return slot.Take()
		case <-failCh:
		case <-nw.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stats returns the I/O statistics of the peer connections.
func (nw *Network) Stats() IOStats {
	result := NewIOStats()
	for _, peer := range nw.connected() {
		result = result.Add(peer.conn.Stats)
	}
	return result
}

// PrintStats prints the per-peer I/O statistics to w. If w is nil,
// the statistics are printed to standard output.
func (nw *Network) PrintStats(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Peer").SetAlign(tabulate.ML)
	tab.Header("Role").SetAlign(tabulate.ML)
	tab.Header("Sent").SetAlign(tabulate.MR)
	tab.Header("Rcvd").SetAlign(tabulate.MR)
	tab.Header("Flushed").SetAlign(tabulate.MR)

	total := NewIOStats()
	for _, peer := range nw.connected() {
		stats := peer.conn.Stats
		total = total.Add(stats)

		role := "server"
		if peer.client {
			role = "client"
		}
		row := tab.Row()
		row.Column(fmt.Sprintf("%d", peer.id))
		row.Column(role)
		row.Column(fmt.Sprintf("%d", stats.Sent.Load()))
		row.Column(fmt.Sprintf("%d", stats.Recvd.Load()))
		row.Column(fmt.Sprintf("%d", stats.Flushed.Load()))
	}
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column("")
	row.Column(fmt.Sprintf("%d", total.Sent.Load())).SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", total.Recvd.Load())).SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", total.Flushed.Load())).
		SetFormat(tabulate.FmtBold)

	tab.Print(w)
}

func (nw *Network) connected() []*Peer {
	nw.m.Lock()
	defer nw.m.Unlock()

	var result []*Peer
	for _, peer := range nw.peers {
		if peer != nil {
			result = append(result, peer)
		}
	}
	return result
}

// Close closes the network. It waits for the configured linger
// delay, closes the listener and all peer connections, and waits
// for the receive loops to terminate. Pending exchanges return
// ErrClosed.
func (nw *Network) Close() error {
	nw.m.Lock()
	if nw.closing {
		nw.m.Unlock()
		return nil
	}
	nw.m.Unlock()

	if nw.cfg.Linger > 0 {
		time.Sleep(nw.cfg.Linger)
	}

	nw.m.Lock()
	if nw.closing {
		nw.m.Unlock()
		return nil
	}
	nw.closing = true
	listener := nw.listener
	nw.listener = nil
	var accepted []net.Conn
	for nc := range nw.accepted {
		accepted = append(accepted, nc)
	}
	close(nw.done)
	nw.m.Unlock()

	if listener != nil {
		listener.Close()
	}
	// Connections still in handshake.
	for _, nc := range accepted {
		nc.Close()
	}
	for _, peer := range nw.connected() {
		if err := peer.close(); err != nil {
			nw.Debugf("%s: close peer %d: %v\n", nw.name(), peer.id, err)
		}
	}
	nw.wg.Wait()

	return nil
}

// SignalEnd connects to the committee member listening at addr and
// sends the end-of-session handshake.
func SignalEnd(ctx context.Context, addr string) error {
	return dialHandshake(ctx, addr, HandshakeEndSession)
}

// Probe connects to the committee member listening at addr with an
// ephemeral handshake and returns the member's party ID.
func Probe(ctx context.Context, addr string) (int, error) {
	var dialer net.Dialer
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, err
	}
	conn := NewConn(nc)
	defer conn.Close()

	id, err := handshake(conn, HandshakeEphemeral)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func dialHandshake(ctx context.Context, addr string, value int8) error {
	var dialer net.Dialer
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	conn := NewConn(nc)
	_, err = handshake(conn, value)
	if cerr := conn.Close(); err == nil {
		err = cerr
	}
	return err
}
