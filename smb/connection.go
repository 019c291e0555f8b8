package smb

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenwick-labs/smb1/smb/netbios"
	"github.com/fenwick-labs/smb1/smb/transport"
	"github.com/jfjallid/golog"
)

// SessionStatus is the Connection's position in the state machine of spec
// §4.6. Values are ordered so comparisons like "status >= LoggedIn" behave
// the way the original tango_session_status_t comparisons did.
type SessionStatus int

const (
	StatusDisconnected SessionStatus = iota
	StatusProtocolNegotiated
	StatusLoggedIn
	StatusConnectedToShare
)

func (s SessionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusProtocolNegotiated:
		return "ProtocolNegotiated"
	case StatusLoggedIn:
		return "LoggedIn"
	case StatusConnectedToShare:
		return "ConnectedToShare"
	default:
		return "Unknown"
	}
}

// defaultPID mirrors the reference implementation's fixed, arbitrary
// nonzero process ID (spec §3: "the reference uses 0x1234").
const defaultPID uint16 = 0x1234

const defaultPort = 445

// Options configures a new Connection. Share must be a UNC of the form
// `\\host\share` or `\\host\share\subpath`; Username/Password may be empty
// for guest/anonymous access.
type Options struct {
	Share    string
	Username string
	Password string
	Domain   string

	// Port defaults to 445 when zero.
	Port int
	// DialTimeout bounds Connect's initial TCP dial; zero means no
	// timeout. The protocol itself has no timeout (spec §5).
	DialTimeout time.Duration

	// Logger defaults to golog.Get("smb") when nil.
	Logger *golog.MyLogger

	// Transport overrides the default TCP/445 transport, e.g. for tests.
	// When set, Port/DialTimeout are ignored by Connect, the host is not
	// resolved by NewConnection, and the supplied Transport is used as-is.
	Transport transport.Transport
}

// Connection is the SMB1 session state machine (spec §3, §4.6). A
// Connection is not safe for concurrent use and uniquely owns its
// transport; closing it invalidates every FileInfo derived from it.
type Connection struct {
	host     string
	port     int
	treePath string // "share" or "share\subpath", without the leading "\\host\"
	share    string // first path segment of treePath, the actual tree name
	username string
	password string
	domain   string

	dialTimeout time.Duration
	presetTrans transport.Transport

	transport transport.Transport
	framer    *netbios.Framer

	pid uint16
	mid uint16
	uid uint16
	tid uint16

	sessionFlags uint16
	status       SessionStatus
	lastError    *Error

	dialectIndex   uint16
	securityMode   uint8
	maxMpxCount    uint16
	maxBufferSize  uint32
	serverTimeZone int16
	challenge      [auth8]byte

	logger *golog.MyLogger
}

// NewConnection parses opts.Share and allocates a Connection in the
// Disconnected state. It does not dial the network; call Connect for that.
// Mirrors tango_create: fails with ErrorParameterInvalid on a malformed UNC
// or unresolvable host.
func NewConnection(opts Options) (*Connection, error) {
	host, treePath, err := parseUNC(opts.Share)
	if err != nil {
		return nil, err
	}

	if opts.Transport == nil {
		if _, err := resolveIPv4(host); err != nil {
			return nil, newError(ErrorParameterInvalid, "cannot resolve host %q: %v", host, err)
		}
	}

	port := opts.Port
	if port == 0 {
		port = defaultPort
	}

	logger := opts.Logger
	if logger == nil {
		logger = golog.Get("smb")
	}

	return &Connection{
		host:        host,
		port:        port,
		treePath:    treePath,
		share:       firstSegment(treePath),
		username:    opts.Username,
		password:    opts.Password,
		domain:      opts.Domain,
		dialTimeout: opts.DialTimeout,
		presetTrans: opts.Transport,
		pid:         defaultPID,
		status:      StatusDisconnected,
		logger:      logger,
	}, nil
}

func (c *Connection) log() *golog.MyLogger { return c.logger }

// parseUNC splits share of the form `\\host\share` or
// `\\host\share\subpath` into the host and the remainder kept as the tree
// path (spec §3, §9 DESIGN NOTES: copy bytes [0, slashIdx) and terminate
// there — trivial in Go since strings carry their own length, so the
// original's off-by-one has no equivalent here).
func parseUNC(share string) (host, treePath string, err error) {
	if !strings.HasPrefix(share, `\\`) || len(share) < 3 {
		return "", "", newError(ErrorParameterInvalid, "not a valid UNC share: %q", share)
	}

	rest := share[2:]
	slashIdx := strings.IndexByte(rest, '\\')
	if slashIdx == -1 {
		// `\\host` with nothing after: no share component.
		return "", "", newError(ErrorParameterInvalid, "UNC %q has no share component", share)
	}
	host = rest[:slashIdx]
	if host == "" {
		return "", "", newError(ErrorParameterInvalid, "UNC %q has no host component", share)
	}

	treePath = strings.TrimSuffix(rest[slashIdx+1:], `\`)
	if treePath == "" {
		return "", "", newError(ErrorParameterInvalid, "UNC %q has no share component", share)
	}

	return host, treePath, nil
}

func firstSegment(treePath string) string {
	if idx := strings.IndexByte(treePath, '\\'); idx != -1 {
		return treePath[:idx]
	}
	return treePath
}

// Connect runs NEGOTIATE, SESSION_SETUP_ANDX and TREE_CONNECT_ANDX in
// sequence. On any failure the Connection's state does not advance past
// the last successful step and the failure is recorded via setError.
func (c *Connection) Connect() error {
	if c.presetTrans != nil {
		c.transport = c.presetTrans
	} else {
		t, err := transport.DialTCP(c.host, c.port, c.dialTimeout)
		if err != nil {
			e := newError(ErrorConnectionProblem, "connect to %s:%d: %v", c.host, c.port, err)
			c.setError(e)
			return e
		}
		c.transport = t
	}
	c.framer = netbios.New(c.transport)

	if err := c.negotiate(); err != nil {
		c.setError(asSMBError(err))
		return err
	}
	if err := c.sessionSetup(); err != nil {
		c.setError(asSMBError(err))
		return err
	}
	if err := c.treeConnect(); err != nil {
		c.setError(asSMBError(err))
		return err
	}
	return nil
}

// Close tears down the session in reverse order — TREE_DISCONNECT if
// connected to a share, LOGOFF if logged in — then closes the transport.
// Every step is best-effort: a failure is logged but does not stop
// teardown, and state still resets. Safe to call more than once.
func (c *Connection) Close() {
	if c.status >= StatusConnectedToShare {
		if err := c.treeDisconnect(); err != nil {
			c.log().Errorln("TREE_DISCONNECT during close:", err)
		}
		c.status = StatusLoggedIn
		c.tid = 0
	}

	if c.status >= StatusLoggedIn {
		if err := c.logoff(); err != nil {
			c.log().Errorln("LOGOFF during close:", err)
		}
		c.status = StatusDisconnected
		c.uid = 0
		c.sessionFlags = 0
	}

	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			c.log().Errorln("closing transport:", err)
		}
		c.transport = nil
		c.framer = nil
	}
	c.status = StatusDisconnected
}

// TestConnection sends an ECHO with count 2 and fill byte 'F' to probe
// liveness, returning nil on success. Returns ErrorGeneralSystemError if
// NEGOTIATE has not yet completed.
func (c *Connection) TestConnection() error {
	if c.status < StatusProtocolNegotiated {
		err := newError(ErrorGeneralSystemError, "test_connection: not connected yet")
		c.setError(err)
		return err
	}
	if err := c.echo(2, 'F'); err != nil {
		c.setError(asSMBError(err))
		return err
	}
	return nil
}

// nextMID returns the MID for the next outgoing request, incrementing the
// per-connection counter. Spec §3/§9: a global counter and a per-connection
// counter both satisfy the protocol; per-connection avoids shared mutable
// state across Connections.
func (c *Connection) nextMID() uint16 {
	mid := c.mid
	c.mid++
	return mid
}

func (c *Connection) newHeader(command byte) Header {
	return newHeader(command, c.pid, c.nextMID(), c.uid, c.tid)
}

// roundTrip sends body (already including its own 32-byte header) and reads
// back exactly one response frame, verifying the response MID matches the
// request's — a mismatch is a fatal protocol error per spec §5 ("Ordering").
func (c *Connection) roundTrip(reqHeader Header, body []byte) (Header, []byte, error) {
	if err := c.framer.WriteFrame(body); err != nil {
		return Header{}, nil, newError(ErrorConnectionProblem, "sending %d: %v", reqHeader.Command, err)
	}

	frame, err := c.framer.ReadFrame()
	if err != nil {
		return Header{}, nil, newError(ErrorConnectionProblem, "receiving response to command %d: %v", reqHeader.Command, err)
	}

	hdr, err := decodeHeader(frame)
	if err != nil {
		return Header{}, nil, err
	}
	if hdr.MID != reqHeader.MID {
		c.status = StatusDisconnected
		return Header{}, nil, newError(ErrorConnectionProblem, "MID mismatch: sent %d, got %d", reqHeader.MID, hdr.MID)
	}

	return hdr, frame[HeaderLen:], nil
}

// checkStatus maps a nonzero NT status to the appropriate Error kind for
// the operation named op. STATUS_NO_MORE_FILES is not handled here since
// FIND_FIRST2 treats it as a normal end-of-search signal, not a failure.
func (c *Connection) checkStatus(hdr Header, op string) error {
	switch hdr.Status {
	case statusSuccess:
		return nil
	case statusAccessDenied, statusLogonFailure:
		return newError(ErrorAccessDenied, "%s: access denied (status 0x%08x)", op, hdr.Status)
	case statusObjectNameNotFound, statusNoSuchFile:
		return newError(ErrorNotFound, "%s: not found (status 0x%08x)", op, hdr.Status)
	default:
		return newError(ErrorProtocolError, "%s: server returned status 0x%08x", op, hdr.Status)
	}
}

func asSMBError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return newError(ErrorGeneralSystemError, "%v", err)
}

// IsAuthenticated reports whether SESSION_SETUP has completed as a
// non-guest user.
func (c *Connection) IsAuthenticated() bool {
	return c.status >= StatusLoggedIn && c.sessionFlags&sessionFlagGuest == 0
}

// Status returns the current session state.
func (c *Connection) Status() SessionStatus { return c.status }

func (c *Connection) String() string {
	return fmt.Sprintf("smb.Connection{%s:%d share=%q status=%s}", c.host, c.port, c.share, c.status)
}
