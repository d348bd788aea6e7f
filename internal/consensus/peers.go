package consensus

import "github.com/kjstanding/BlueChain-for-ML/internal/address"

// AddPeer registers addr as a known local peer if there is room, the
// original's addToServerList / markNodeAsConnected.
func (n *Node) AddPeer(addr address.Address) bool {
	return n.peers.add(addr)
}

func (n *Node) RemovePeer(addr address.Address) {
	n.peers.remove(addr)
}

func (n *Node) Peers() []address.Address {
	return n.peers.snapshot()
}

func (n *Node) PeerCount() int {
	return n.peers.len()
}

// Bootstrap connects to up to cfg.InitialConnections peers drawn from the
// global peer list, the original's bootstrap connection phase run once at
// startup before the node starts accepting rounds.
func (n *Node) Bootstrap() {
	count := 0
	for _, p := range n.globalPeers {
		if p == n.self {
			continue
		}
		if count >= n.cfg.InitialConnections {
			break
		}
		if n.AddPeer(p) {
			count++
		}
	}
}
