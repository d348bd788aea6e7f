package messaging

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

func TestKindStringNames(t *testing.T) {
	assert.Equal(t, "QUORUM_READY", KindQuorumReady.String())
	assert.Equal(t, "UNKNOWN", Kind(999).String())
}

func TestConnSendRecvRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	connA := NewConn(a)
	connB := NewConn(b)

	sent := Envelope{
		Kind: KindReceiveMempoolDigests,
		From: address.Address{Host: "127.0.0.1", Port: "7000"},
		Payload: MempoolDigestsPayload{
			Digests: []string{"d1", "d2"},
		},
	}

	done := make(chan error, 1)
	go func() { done <- connA.Send(sent) }()

	got, err := connB.Recv()
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Equal(t, sent.Kind, got.Kind)
	assert.Equal(t, sent.From, got.From)
	assert.Equal(t, sent.Payload, got.Payload)
}

func TestConnRoundTripsTransactionPayload(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	connA := NewConn(a)
	connB := NewConn(b)

	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1"), From: "alice", To: "bob", Amount: 10}
	sent := Envelope{Kind: KindAddTransaction, Payload: tx}

	go func() { _ = connA.Send(sent) }()
	got, err := connB.Recv()
	require.NoError(t, err)

	gotTx, ok := got.Payload.(blockchain.Transaction)
	require.True(t, ok)
	assert.Equal(t, tx.Digest(), gotTx.Digest())
}

func TestListenAndDial(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan Envelope, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		env, err := conn.Recv()
		if err == nil {
			accepted <- env
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	target := address.Address{Host: "127.0.0.1", Port: strconv.Itoa(addr.Port)}

	env := Envelope{Kind: KindPing, From: target}
	require.NoError(t, SendOneWay(target, env))

	select {
	case got := <-accepted:
		assert.Equal(t, KindPing, got.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("listener never received the envelope")
	}
}

func TestSendTwoWayGetsReply(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := conn.Recv(); err != nil {
			return
		}
		_ = conn.Send(Envelope{Kind: KindPing})
	}()

	addr := ln.Addr().(*net.TCPAddr)
	target := address.Address{Host: "127.0.0.1", Port: strconv.Itoa(addr.Port)}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, reply, err := SendTwoWay(ctx, target, Envelope{Kind: KindQuorumReady})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, KindPing, reply.Kind)
}
