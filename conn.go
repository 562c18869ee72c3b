package rtnl

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/bpf"
	"golang.org/x/sync/errgroup"
)

// maxMessageSize is the largest payload Send will accept.
const maxMessageSize = 1024 * 32

var errMessageTooLarge = errors.New("netlink message data too large")

// Defaults applied to a zero Config.
const (
	defaultNotificationBuffer = 64
	inboxBuffer               = 16
)

// A Conn is a connection to netlink.  A Conn owns a single Socket and
// correlates requests with their replies by sequence number, so it may be
// used by many goroutines at once.
//
// Replies which match no pending request, and any message delivered on a
// multicast group, are delivered on Notifications.  Datagrams which cannot be
// parsed are reported on InvalidMessages.  Both streams drop messages when
// their buffer is full rather than blocking the receive path.
type Conn struct {
	sock     Socket
	pid      uint32
	seq      atomic.Uint32
	timeout  time.Duration
	registry *Registry
	log      zerolog.Logger
	d        *debugger

	mu      sync.Mutex
	pending map[uint32]*Request
	err     error

	inbox         chan datagram
	notifications chan Message
	invalid       chan InvalidMessage

	eg        *errgroup.Group
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Config contains options for a Conn.
type Config struct {
	// Groups is a bitmask which specifies multicast groups. If set to 0,
	// no multicast group subscriptions will be made.
	Groups uint32

	// Timeout applies to requests whose context has no deadline.  Zero
	// means such requests wait until cancelled.
	Timeout time.Duration

	// NotificationBuffer sets the capacity of the Notifications and
	// InvalidMessages channels.  Zero selects a default.
	NotificationBuffer int

	// Registry, if set, is used to validate the payload of every reply
	// before it is delivered.  A reply which fails to decode fails its
	// request and is reported on InvalidMessages.
	Registry *Registry

	// Logger receives connection events.  If nil, logging is disabled
	// unless the NLDEBUG environment variable is set.
	Logger *zerolog.Logger
}

// An InvalidMessage reports a received datagram, or a message within one,
// which could not be parsed.
type InvalidMessage struct {
	Err error

	// Data holds the raw datagram.
	Data []byte

	// Sequence is the sequence number of the offending message, or 0 if
	// it could not be read.
	Sequence uint32
}

// A datagram is one read from the Socket.
type datagram struct {
	b    []byte
	from Sender
}

// NewConn creates a Conn over an existing Socket.  pid is the port ID
// assigned to the socket, used to fill in outgoing messages.
func NewConn(sock Socket, pid uint32, config *Config) *Conn {
	if config == nil {
		config = &Config{}
	}

	nb := config.NotificationBuffer
	if nb <= 0 {
		nb = defaultNotificationBuffer
	}

	c := &Conn{
		sock:          sock,
		pid:           pid,
		timeout:       config.Timeout,
		registry:      config.Registry,
		log:           zerolog.Nop(),
		pending:       make(map[uint32]*Request),
		inbox:         make(chan datagram, inboxBuffer),
		notifications: make(chan Message, nb),
		invalid:       make(chan InvalidMessage, nb),
	}
	if config.Logger != nil {
		c.log = *config.Logger
	}

	// Optionally set up a debugger.
	if debugArgs != nil {
		c.d = newDebugger(os.Stderr, debugArgs)
		if config.Logger == nil {
			c.log = c.d.Log
		}
	}

	c.seq.Store(rand.Uint32())

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.eg, ctx = errgroup.WithContext(ctx)
	c.eg.Go(func() error { return c.receiveLoop(ctx) })
	c.eg.Go(func() error { return c.dispatchLoop(ctx) })

	return c
}

// PID returns the port ID of the Conn.
func (c *Conn) PID() uint32 { return c.pid }

// Notifications returns the stream of unsolicited messages.  The channel
// is closed by Close.
func (c *Conn) Notifications() <-chan Message { return c.notifications }

// InvalidMessages returns the stream of messages which failed to parse.
// The channel is closed by Close.
func (c *Conn) InvalidMessages() <-chan InvalidMessage { return c.invalid }

// Close closes the connection.  Pending requests fail with an error
// matching net.ErrClosed.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = net.ErrClosed
		}
		c.mu.Unlock()

		c.cancel()
		if cerr := c.sock.Close(); cerr != nil {
			err = &OpError{Op: "close", Err: cerr}
		}

		if werr := c.eg.Wait(); werr != nil {
			c.log.Debug().Err(werr).Msg("receive loop stopped")
		}

		c.failAll(&OpError{Op: "receive", Err: net.ErrClosed})

		// The dispatcher has exited, so nothing sends on the streams.
		close(c.notifications)
		close(c.invalid)
	})

	return err
}

// Send sends a single Message to netlink without waiting for a reply.  Any
// reply is delivered on Notifications.  In most cases, m.Header's Length,
// Sequence, and PID fields should be set to 0, so they can be populated
// automatically before the Message is sent.  On success, Send returns a
// copy of the Message with all parameters populated.
//
// HeaderFlagsRequest is always set.
func (c *Conn) Send(m Message) (Message, error) {
	c.mu.Lock()
	err := c.err
	if err == nil {
		m.Header.Sequence, err = c.nextSequence(m.Header.Sequence)
	}
	c.mu.Unlock()

	if err != nil {
		return Message{}, &OpError{Op: "send", Err: err}
	}

	m, err = c.prepare(m)
	if err != nil {
		return Message{}, err
	}

	if err := c.write(m); err != nil {
		return Message{}, err
	}

	return m, nil
}

// Execute sends m as a request and waits for its complete reply.  It is
// shorthand for Request followed by Wait.
func (c *Conn) Execute(ctx context.Context, m Message) ([]Message, error) {
	r, err := c.Request(ctx, m)
	if err != nil {
		return nil, err
	}

	return r.Wait()
}

// Request sends m and registers it as a pending request, returning a handle
// to wait for its reply.  Set HeaderFlagsDump in m to request a dump.
//
// If ctx expires before the reply completes, the request fails with
// ErrTimeout; if ctx is cancelled it fails with ErrCancelled.  When ctx has
// no deadline, Config.Timeout applies.
func (c *Conn) Request(ctx context.Context, m Message) (*Request, error) {
	m, err := c.prepare(m)
	if err != nil {
		return nil, err
	}

	r := &Request{
		c:    c,
		dump: m.Header.Flags&HeaderFlagsDump == HeaderFlagsDump,
		ack:  m.Header.Flags&HeaderFlagsAcknowledge != 0,
		done: make(chan struct{}),
	}

	// Register before writing so no reply can be missed.  The deadline
	// callback also takes c.mu, so it cannot observe a half-built request.
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, &OpError{Op: "send", Err: err}
	}
	seq, err := c.nextSequence(m.Header.Sequence)
	if err != nil {
		c.mu.Unlock()
		return nil, &OpError{Op: "send", Err: err}
	}
	m.Header.Sequence = seq
	r.seq = seq
	c.pending[r.seq] = r

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		ctx, r.release = context.WithTimeout(ctx, c.timeout)
	}
	r.stop = context.AfterFunc(ctx, func() {
		if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
			c.resolve(r, RequestTimedOut, ErrTimeout)
			return
		}

		c.resolve(r, RequestCancelled, ErrCancelled)
	})
	c.mu.Unlock()

	if err := c.write(m); err != nil {
		c.resolve(r, RequestFailed, err)
		return nil, err
	}

	return r, nil
}

// prepare fills in the automatic header fields of m, except Sequence.
func (c *Conn) prepare(m Message) (Message, error) {
	ml := nlmsgLength(len(m.Data))
	if ml > maxMessageSize {
		return Message{}, &OpError{Op: "send", Err: errMessageTooLarge}
	}

	if m.Header.Length == 0 {
		m.Header.Length = uint32(nlmsgAlign(ml))
	}
	if m.Header.PID == 0 {
		m.Header.PID = c.pid
	}
	m.Header.Flags |= HeaderFlagsRequest

	return m, nil
}

// write marshals and sends m.
func (c *Conn) write(m Message) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return &OpError{Op: "send", Err: err}
	}

	if c.d != nil {
		c.d.message(1, "send", m, c.headerLen(m.Header.Type))
	}

	if err := c.sock.Send(b); err != nil {
		return &OpError{Op: "send", Err: err}
	}

	return nil
}

// nextSequence returns want if it is non-zero, otherwise the next sequence
// number which is neither zero nor held by a pending request.  A non-zero
// want held by a pending request fails with ErrSequenceInUse.  c.mu must be
// held.
func (c *Conn) nextSequence(want uint32) (uint32, error) {
	if want != 0 {
		if _, ok := c.pending[want]; ok {
			return 0, ErrSequenceInUse
		}

		return want, nil
	}

	for {
		s := c.seq.Add(1)
		if s == 0 {
			continue
		}
		if _, ok := c.pending[s]; ok {
			continue
		}

		return s, nil
	}
}

// receiveLoop reads datagrams and hands them to the dispatcher.
func (c *Conn) receiveLoop(ctx context.Context) error {
	for {
		b, from, err := c.sock.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			// The kernel dropped messages for this socket; keep reading.
			if errors.Is(err, syscall.ENOBUFS) {
				c.log.Warn().Err(err).Msg("receive buffer overrun, messages lost")
				continue
			}

			err = &OpError{Op: "receive", Err: err}
			c.log.Error().Err(err).Msg("receive failed")

			c.mu.Lock()
			if c.err == nil {
				c.err = err
			}
			c.mu.Unlock()
			c.failAll(err)

			return err
		}

		select {
		case c.inbox <- datagram{b: b, from: from}:
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatchLoop is the single consumer of the inbox.
func (c *Conn) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case d := <-c.inbox:
			c.dispatch(d)
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch splits a datagram into messages and routes each one.
func (c *Conn) dispatch(d datagram) {
	msgs, seq, err := parseMessages(d.b)
	for _, m := range msgs {
		c.handle(m, d)
	}

	if err != nil {
		c.reportInvalid(err, d.b, seq)
		if r := c.lookup(seq); r != nil {
			c.resolve(r, RequestFailed, &OpError{Op: "decode", Err: err})
		}
	}
}

// handle routes a single message to its pending request or to the
// notification stream.
func (c *Conn) handle(m Message, d datagram) {
	if c.d != nil {
		c.d.message(1, "recv", m, c.headerLen(m.Header.Type))
	}

	// Multicast deliveries are never replies.
	var r *Request
	if d.from.Groups == 0 && m.Header.Sequence != 0 {
		r = c.lookup(m.Header.Sequence)
	}
	if r == nil {
		c.notify(m)
		return
	}

	if err := checkMessage(m); err != nil {
		var kerr *KernelError
		if errors.As(err, &kerr) {
			c.resolve(r, RequestFailed, kerr)
			return
		}

		c.reportInvalid(err, d.b, m.Header.Sequence)
		c.resolve(r, RequestFailed, &OpError{Op: "decode", Err: err})
		return
	}

	switch {
	case m.Header.Type == HeaderTypeDone:
		c.resolve(r, RequestCompleted, nil)
	case isAck(m):
		c.complete(r, m)
	case m.Header.Type == HeaderTypeNoop:
	case m.Header.Type == HeaderTypeOverrun:
		c.resolve(r, RequestFailed, &OpError{Op: "receive", Err: syscall.ENOBUFS})
	default:
		if c.registry != nil {
			if _, err := c.registry.Decode(m); err != nil {
				c.reportInvalid(err, d.b, m.Header.Sequence)
				c.resolve(r, RequestFailed, &OpError{Op: "decode", Err: err})
				return
			}
		}

		more := r.dump || r.ack || m.Header.Flags&HeaderFlagsMulti != 0
		c.accumulate(r, m, more)
	}
}

// headerLen returns the family header length for t when a registry knows
// it, for debug output.
func (c *Conn) headerLen(t HeaderType) int {
	if c.registry == nil {
		return 0
	}

	k, err := c.registry.lookup(t)
	if err != nil {
		return 0
	}

	return k.headerLen()
}

// lookup returns the pending request for seq, if any.
func (c *Conn) lookup(seq uint32) *Request {
	if seq == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[seq]
}

// notify delivers m on the notification stream, dropping it when full.
func (c *Conn) notify(m Message) {
	select {
	case c.notifications <- m:
	default:
		c.log.Warn().
			Uint32("seq", m.Header.Sequence).
			Stringer("type", m.Header.Type).
			Msg("notification buffer full, dropping message")
	}
}

// reportInvalid delivers an InvalidMessage, dropping it when full.
func (c *Conn) reportInvalid(err error, b []byte, seq uint32) {
	c.log.Debug().Err(err).Uint32("seq", seq).Msg("invalid message")

	select {
	case c.invalid <- InvalidMessage{Err: err, Data: b, Sequence: seq}:
	default:
		c.log.Warn().Err(err).Msg("invalid message buffer full, dropping report")
	}
}

// accumulate appends m to r, completing r unless more is set.
func (c *Conn) accumulate(r *Request, m Message, more bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.state.terminal() {
		return
	}

	r.msgs = append(r.msgs, m)
	if more {
		r.state = RequestAwaitingMore
		return
	}

	c.resolveLocked(r, RequestCompleted, nil)
}

// complete completes r on acknowledgement.  The ack itself is the result
// when no other replies were received.
func (c *Conn) complete(r *Request, ack Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.state.terminal() {
		return
	}
	if len(r.msgs) == 0 {
		r.msgs = []Message{ack}
	}

	c.resolveLocked(r, RequestCompleted, nil)
}

// resolve moves r to a terminal state.  It reports whether r was still
// pending.
func (c *Conn) resolve(r *Request, s RequestState, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolveLocked(r, s, err)
}

func (c *Conn) resolveLocked(r *Request, s RequestState, err error) bool {
	if r.state.terminal() {
		return false
	}

	r.state = s
	r.err = err
	if err != nil {
		r.msgs = nil
	}

	if c.pending[r.seq] == r {
		delete(c.pending, r.seq)
	}
	if r.stop != nil {
		r.stop()
	}
	if r.release != nil {
		r.release()
	}
	close(r.done)

	c.log.Debug().
		Uint32("seq", r.seq).
		Stringer("state", s).
		Err(err).
		Msg("request resolved")

	return true
}

// failAll fails every pending request with err.
func (c *Conn) failAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.pending {
		c.resolveLocked(r, RequestFailed, err)
	}
}

// JoinGroup joins a netlink multicast group by its ID.
func (c *Conn) JoinGroup(group uint32) error {
	gc, ok := c.sock.(groupJoinLeaver)
	if !ok {
		return notSupported("join-group")
	}

	return gc.JoinGroup(group)
}

// LeaveGroup leaves a netlink multicast group by its ID.
func (c *Conn) LeaveGroup(group uint32) error {
	gc, ok := c.sock.(groupJoinLeaver)
	if !ok {
		return notSupported("leave-group")
	}

	return gc.LeaveGroup(group)
}

// SetBPF attaches an assembled BPF program to a Conn.
func (c *Conn) SetBPF(filter []bpf.RawInstruction) error {
	bc, ok := c.sock.(bpfSetter)
	if !ok {
		return notSupported("set-bpf")
	}

	return bc.SetBPF(filter)
}

// RemoveBPF removes a BPF filter from a Conn.
func (c *Conn) RemoveBPF() error {
	bc, ok := c.sock.(bpfSetter)
	if !ok {
		return notSupported("remove-bpf")
	}

	return bc.RemoveBPF()
}

// SetOption enables or disables a netlink socket option for the Conn.
func (c *Conn) SetOption(option ConnOption, enable bool) error {
	oc, ok := c.sock.(optionSetter)
	if !ok {
		return notSupported("set-option")
	}

	return oc.SetOption(option, enable)
}

//go:generate go tool stringer -type=RequestState -trimprefix=Request

// A RequestState is the state of a pending request.
type RequestState int

// Possible RequestState values.  Completed, Failed, TimedOut and Cancelled
// are terminal.
const (
	RequestSent RequestState = iota
	RequestAwaitingMore
	RequestCompleted
	RequestFailed
	RequestTimedOut
	RequestCancelled
)

func (s RequestState) terminal() bool { return s >= RequestCompleted }

// A Request is a request awaiting its reply, created by Conn.Request.
type Request struct {
	c    *Conn
	seq  uint32
	dump bool
	ack  bool
	done chan struct{}

	// Guarded by c.mu.
	state RequestState
	msgs  []Message
	err   error

	stop    func() bool
	release context.CancelFunc
}

// Sequence returns the sequence number assigned to the request.
func (r *Request) Sequence() uint32 { return r.seq }

// State returns the current state of the request.
func (r *Request) State() RequestState {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.state
}

// Done returns a channel which is closed once the request reaches a
// terminal state.
func (r *Request) Done() <-chan struct{} { return r.done }

// Wait blocks until the request completes and returns its replies in
// arrival order.  A dump's terminating message is not included.
//
// A kernel error reply is returned as a *KernelError.
func (r *Request) Wait() ([]Message, error) {
	<-r.done

	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.msgs, r.err
}

// Cancel resolves the request with ErrCancelled.  It has no effect if the
// request already completed.  Replies which arrive later are delivered as
// notifications.
func (r *Request) Cancel() {
	r.c.resolve(r, RequestCancelled, ErrCancelled)
}
