// Package peer implements a marketplace participant. Every peer is a buyer
// or a seller; a peer listed in the current trader set additionally serves
// trades against its inventory cache. The package contains the ring election
// and coordinator broadcast that choose the trader set, the heartbeat-driven
// failover between a pair of traders, trade handling with cache-update
// multicast, and the periodic buyer and seller activity.
//
// Peers talk to each other only through the Remote interface obtained from a
// Directory. LocalDirectory wires peers of one process together; the node
// package provides a gRPC-backed directory.
package peer
