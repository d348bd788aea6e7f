package messaging

import (
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"time"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
)

// Conn wraps one TCP connection with a gob encoder/decoder pair, the direct
// analogue of the teacher's serverConnDock/clientConnDock/dialConn (all
// three are "net.Conn + gob.Encoder + gob.Decoder", just duplicated per
// phase; here it is one reusable type).
type Conn struct {
	raw net.Conn
	enc *gob.Encoder
	dec *gob.Decoder
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{raw: raw, enc: gob.NewEncoder(raw), dec: gob.NewDecoder(raw)}
}

func (c *Conn) Send(e Envelope) error { return c.enc.Encode(e) }

func (c *Conn) Recv() (Envelope, error) {
	var e Envelope
	err := c.dec.Decode(&e)
	return e, err
}

func (c *Conn) Close() error { return c.raw.Close() }

func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Listener wraps net.Listener, handing back a *Conn per accepted connection.
type Listener struct {
	raw net.Listener
}

func Listen(bindAddr string) (*Listener, error) {
	raw, err := net.Listen("tcp4", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("messaging: listen %s: %w", bindAddr, err)
	}
	return &Listener{raw: raw}, nil
}

func (l *Listener) Accept() (*Conn, error) {
	raw, err := l.raw.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(raw), nil
}

func (l *Listener) Close() error { return l.raw.Close() }

func (l *Listener) Addr() net.Addr { return l.raw.Addr() }

const dialTimeout = 5 * time.Second

func dial(addr address.Address) (*Conn, error) {
	raw, err := net.DialTimeout("tcp4", addr.String(), dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("messaging: dial %s: %w", addr, err)
	}
	return NewConn(raw), nil
}

// SendOneWay fires e at addr and does not wait for a reply, grounded on the
// teacher's Messager.sendOneWayMessage (used throughout for
// ADD_TRANSACTION/RECEIVE_SIGNATURE/RECEIVE_SKELETON/ALERT_WALLET gossip).
func SendOneWay(addr address.Address, e Envelope) error {
	conn, err := dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Send(e)
}

// SendTwoWay sends e to addr and blocks for exactly one reply envelope,
// bounded by ctx. Grounded on the teacher's Messager.sendInterestingMessage
// / sendTwoWayMessage, used for QUORUM_READY/RECEIVE_MEMPOOL exchanges.
func SendTwoWay(ctx context.Context, addr address.Address, e Envelope) (*Conn, Envelope, error) {
	conn, err := dial(addr)
	if err != nil {
		return nil, Envelope{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.raw.SetDeadline(deadline)
	}
	if err := conn.Send(e); err != nil {
		conn.Close()
		return nil, Envelope{}, err
	}
	reply, err := conn.Recv()
	if err != nil {
		conn.Close()
		return nil, Envelope{}, err
	}
	return conn, reply, nil
}
