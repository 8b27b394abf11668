package fprintd

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"
)

// Bus is the subset of a D-Bus connection used to talk to fprintd. Every
// method addresses the fprintd service; callers only pick the object path.
type Bus interface {
	// CallWithContext invokes method synchronously.
	CallWithContext(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call
	// GoWithContext invokes method asynchronously. The completed call is
	// sent on ch, which may be nil when no reply is expected.
	GoWithContext(ctx context.Context, path dbus.ObjectPath, method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	RemoveMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	// Signal registers ch to receive every signal routed to this
	// connection. ch is closed when the connection goes away.
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// Conn is a Bus backed by a real D-Bus connection.
type Conn struct {
	conn      *dbus.Conn
	closeOnce sync.Once
	closeErr  error
}

var _ Bus = (*Conn)(nil)

// Open connects to the bus at address, or to the system bus if address is
// empty.
func Open(ctx context.Context, address string) (*Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if address == "" {
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	} else {
		conn, err = dbus.Connect(address, dbus.WithContext(ctx))
	}
	if err != nil {
		return nil, &SetupError{Stage: StageConnect, Err: xerrors.Errorf("connect to bus: %w", err)}
	}
	return &Conn{conn: conn}, nil
}

func (c *Conn) object(path dbus.ObjectPath) dbus.BusObject {
	return c.conn.Object(ServiceName, path)
}

func (c *Conn) CallWithContext(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	return c.object(path).CallWithContext(ctx, method, 0, args...)
}

func (c *Conn) GoWithContext(ctx context.Context, path dbus.ObjectPath, method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	return c.object(path).GoWithContext(ctx, method, flags, ch, args...)
}

func (c *Conn) AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignalContext(ctx, options...)
}

func (c *Conn) RemoveMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error {
	return c.conn.RemoveMatchSignalContext(ctx, options...)
}

func (c *Conn) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

func (c *Conn) RemoveSignal(ch chan<- *dbus.Signal) {
	c.conn.RemoveSignal(ch)
}

// Close closes the connection. It is safe to call more than once; later
// calls return the result of the first.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
