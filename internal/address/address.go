// Package address defines the peer identity used throughout the node.
package address

import "fmt"

// Address identifies a peer by host and port. Equality is structural, so it
// is safe to use directly as a map key, matching spec.md's "Equality is
// structural" requirement for Address.
type Address struct {
	Host string
	Port string
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Contains reports whether addr appears in peers. Grounded on the teacher's
// Utils.containsAddress helper used throughout consensus.go/handlers.go.
func Contains(peers []Address, addr Address) bool {
	for _, p := range peers {
		if p == addr {
			return true
		}
	}
	return false
}

// Remove returns peers with addr removed, preserving order.
func Remove(peers []Address, addr Address) []Address {
	out := make([]Address, 0, len(peers))
	for _, p := range peers {
		if p != addr {
			out = append(out, p)
		}
	}
	return out
}
