package utils

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

type CANWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

type CANReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan dial")
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// SocketCANReader delivers received frames on a channel fed by a single
// background receive goroutine, so ReadFrame can honour ctx.
type SocketCANReader struct {
	conn      net.Conn
	frames    chan can.Frame
	err       error // set before frames is closed
	done      chan struct{}
	closeOnce sync.Once
}

func NewSocketCANReader(ctx context.Context, iface string) (*SocketCANReader, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan dial")
	}

	r := newSocketCANReader(conn)
	go r.receive(socketcan.NewReceiver(conn))
	return r, nil
}

func newSocketCANReader(conn net.Conn) *SocketCANReader {
	return &SocketCANReader{
		conn:   conn,
		frames: make(chan can.Frame, 64),
		done:   make(chan struct{}),
	}
}

// frameSource is the subset of socketcan.Receiver the receive loop uses.
type frameSource interface {
	Receive() bool
	HasErrorFrame() bool
	Frame() can.Frame
	Err() error
}

func (r *SocketCANReader) receive(recv frameSource) {
	defer close(r.frames)
	for recv.Receive() {
		if recv.HasErrorFrame() {
			continue
		}
		select {
		case r.frames <- recv.Frame():
		case <-r.done:
			r.err = errors.New("socketcan reader closed")
			return
		}
	}
	err := recv.Err()
	if err == nil {
		err = errors.New("socketcan receiver closed")
	}
	r.err = err
}

// ReadFrame blocks until a frame arrives, the receiver fails, or ctx ends.
func (r *SocketCANReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case f, ok := <-r.frames:
		if !ok {
			return can.Frame{}, r.err
		}
		return f, nil
	}
}

func (r *SocketCANReader) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
