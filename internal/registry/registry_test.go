package registry

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := SignHash("deadbeef", kp.Private)
	require.NoError(t, err)

	assert.True(t, VerifySignature("deadbeef", sig, kp.Public))
}

func TestVerifyRejectsWrongDigest(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := SignHash("deadbeef", kp.Private)
	require.NoError(t, err)

	assert.False(t, VerifySignature("not-the-same-digest", sig, kp.Public))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := SignHash("deadbeef", kp1.Private)
	require.NoError(t, err)

	assert.False(t, VerifySignature("deadbeef", sig, kp2.Public))
}

func TestRegistryLookupAndVerify(t *testing.T) {
	reg := New()
	addr := address.Address{Host: "127.0.0.1", Port: "7000"}
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, ok := reg.Lookup(addr)
	assert.False(t, ok)

	reg.WritePublicKey(addr, kp.Public)

	pub, ok := reg.Lookup(addr)
	require.True(t, ok)
	assert.True(t, pub.Equal(kp.Public))

	sig, err := SignHash("cafef00d", kp.Private)
	require.NoError(t, err)
	assert.True(t, reg.VerifyFromRegistry("cafef00d", sig, addr))
}

func TestVerifyFromRegistryUnknownSigner(t *testing.T) {
	reg := New()
	addr := address.Address{Host: "127.0.0.1", Port: "7000"}
	assert.False(t, reg.VerifyFromRegistry("cafef00d", []byte("x"), addr))
}

func TestMarshalUnmarshalPublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	b, err := MarshalPublicKey(kp.Public)
	require.NoError(t, err)

	pub, err := UnmarshalPublicKey(b)
	require.NoError(t, err)
	assert.True(t, pub.Equal(kp.Public))
}

func TestLoadPeerKeysFile(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	b1, err := MarshalPublicKey(kp1.Public)
	require.NoError(t, err)
	b2, err := MarshalPublicKey(kp2.Public)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "peers.conf")
	contents := fmt.Sprintf("# cluster peer keys\n127.0.0.1:7000 %s\n\n127.0.0.1:7001 %s\n", hex.EncodeToString(b1), hex.EncodeToString(b2))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	peers, err := LoadPeerKeysFile(path)
	require.NoError(t, err)
	require.Len(t, peers, 2)

	got1, ok := peers[address.Address{Host: "127.0.0.1", Port: "7000"}]
	require.True(t, ok)
	assert.True(t, got1.Equal(kp1.Public))

	got2, ok := peers[address.Address{Host: "127.0.0.1", Port: "7001"}]
	require.True(t, ok)
	assert.True(t, got2.Equal(kp2.Public))
}

func TestLoadPeerKeysFileRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.conf")
	require.NoError(t, os.WriteFile(path, []byte("not-an-address-or-key\n"), 0o600))

	_, err := LoadPeerKeysFile(path)
	assert.Error(t, err)
}
