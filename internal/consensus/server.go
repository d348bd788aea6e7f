package consensus

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
)

// Serve accepts connections on ln until ctx is canceled, handing each
// envelope received to Dispatch. One goroutine per connection, the
// teacher's own connections.go accept-loop shape (its acceptConns loop
// spawning a handler per net.Conn), generalized from per-phase dedicated
// listeners to this single multiplexed one.
func (n *Node) Serve(ctx context.Context, ln *messaging.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var netErr net.Error
			if errAs(err, &netErr) && netErr.Timeout() {
				continue
			}
			n.log.WithError(err).Warn("serve: accept failed, listener closing")
			return
		}
		go n.handleConn(ctx, conn)
	}
}

func (n *Node) handleConn(ctx context.Context, conn *messaging.Conn) {
	defer conn.Close()

	env, err := conn.Recv()
	if err != nil {
		n.log.WithError(err).Debug("handleConn: decode failed")
		return
	}

	if err := n.Dispatch(ctx, env); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"kind": env.Kind,
			"from": env.From,
		}).Debug("handleConn: dispatch error")
	}
}

// errAs reports whether err itself implements net.Error and, if so, stores
// it in target. It is a direct type assertion: wrapped errors are not
// unwrapped the way errors.As would.
func errAs(err error, target *net.Error) bool {
	ne, ok := err.(net.Error)
	if !ok {
		return false
	}
	*target = ne
	return true
}
