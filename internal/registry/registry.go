// Package registry provides the DSA-equivalent key management contract
// spec.md §6 describes: key-pair generation, hash signing/verification, and
// a public-key lookup keyed by node Address. Grounded on the teacher's
// utilities.go/parameters.go, which reach for go.dedis.ch/kyber's BLS
// pairing suite for every signature the node ever produces. The teacher
// additionally layers Shamir secret-sharing (github.com/dedis/kyber/share,
// PriPoly/PubPoly) on top of BLS to recombine a single threshold signature
// from partial shares — that machinery has no home here: spec.md §4.4.8
// tallies a plain majority vote over individually-verified signatures, it
// never recombines them into one threshold signature, so every node instead
// holds one ordinary BLS keypair (see DESIGN.md).
package registry

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
)

var suite = bn256.NewSuite()

// KeyPair is one node's BLS private/public scalar-point pair.
type KeyPair struct {
	Private kyber.Scalar
	Public  kyber.Point
}

// GenerateKeyPair mirrors the teacher's fetchKeyGen/generateDSAKeyPair step
// performed once at node construction.
func GenerateKeyPair() (KeyPair, error) {
	private, public := bls.NewKeyPair(suite, random.New(rand.Reader))
	return KeyPair{Private: private, Public: public}, nil
}

// SignHash signs a hex block digest with a node's BLS private key, the
// direct analogue of the teacher's cryptoSignMsg / original's signHash.
func SignHash(hexDigest string, priv kyber.Scalar) ([]byte, error) {
	return bls.Sign(suite, priv, []byte(hexDigest))
}

// VerifySignature checks sig against hexDigest under pub. Returns false (not
// an error) on a bad signature, matching spec.md §6's
// verify_signature(...) -> bool contract.
func VerifySignature(hexDigest string, sig []byte, pub kyber.Point) bool {
	return bls.Verify(suite, pub, []byte(hexDigest), sig) == nil
}

// Registry is the process-wide public-key directory, injected into the node
// rather than held as a package-scope global (spec.md §9 design note:
// "Inject them rather than using file-scope globals").
type Registry struct {
	mu   sync.RWMutex
	keys map[address.Address]kyber.Point
}

func New() *Registry {
	return &Registry{keys: make(map[address.Address]kyber.Point)}
}

// WritePublicKey registers addr's public key, the equivalent of the
// teacher's writePubKeyToRegistry call in the Node constructor.
func (r *Registry) WritePublicKey(addr address.Address, pub kyber.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[addr] = pub
}

// Lookup retrieves a previously-registered public key.
func (r *Registry) Lookup(addr address.Address) (kyber.Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pub, ok := r.keys[addr]
	return pub, ok
}

// VerifyFromRegistry looks up signer's key and verifies sig against
// hexDigest, the combined step the teacher calls
// verifySignatureFromRegistry throughout tallyQuorumSigs/validateSkeleton.
func (r *Registry) VerifyFromRegistry(hexDigest string, sig []byte, signer address.Address) bool {
	pub, ok := r.Lookup(signer)
	if !ok {
		return false
	}
	return VerifySignature(hexDigest, sig, pub)
}

// MarshalPublicKey / UnmarshalPublicKey let a public key travel over the
// gob-encoded wire (kyber.Point is an interface, so it needs explicit
// (de)serialization at the messaging boundary).
func MarshalPublicKey(pub kyber.Point) ([]byte, error) {
	return pub.MarshalBinary()
}

func UnmarshalPublicKey(b []byte) (kyber.Point, error) {
	p := suite.G2().Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("registry: unmarshal public key: %w", err)
	}
	return p, nil
}

// LoadPeerKeysFile reads a cluster's pre-distributed public keys, grounded
// on the teacher's parseClusterCrypto (loadconf.go), which reads a
// crypto_<id>.conf file of hex-encoded keys at startup rather than
// exchanging them over the wire. The format here is one "host:port
// hex-encoded-public-key" pair per line (blank lines and "#" comments
// ignored), addressed by Address instead of the teacher's positional
// server index, since this registry is keyed by Address throughout.
//
// A real deployment generates this file out of band (the same trust
// assumption the teacher's crypto.conf makes) and distributes it to every
// node before the cluster starts; it is not negotiated at runtime.
func LoadPeerKeysFile(path string) (map[address.Address]kyber.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open peer keys file %s: %w", path, err)
	}
	defer f.Close()

	peers := make(map[address.Address]kyber.Point)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("registry: malformed peer key line %q", line)
		}
		host, port, ok := strings.Cut(fields[0], ":")
		if !ok {
			return nil, fmt.Errorf("registry: malformed peer address %q", fields[0])
		}
		raw, err := hex.DecodeString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("registry: decode public key for %s: %w", fields[0], err)
		}
		pub, err := UnmarshalPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		peers[address.Address{Host: host, Port: port}] = pub
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("registry: scan peer keys file: %w", err)
	}
	return peers, nil
}
