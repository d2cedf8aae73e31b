// Package distgraph builds a graph whose nodes are partitioned across the
// ranks of a communicator.
//
// A Builder starts Open. Each rank claims the nodes it believes it owns and
// the edges it knows about, then every rank calls Finalize together. Finalize
// reconciles the claims, asks a partition.Partitioner for the final owner of
// every node, moves adjacency to the owners, and mirrors remote neighbors of
// owned nodes as read-only ghosts. On success the builder is Finalized and
// exposes an immutable Graph; on failure every rank returns an error wrapping
// the same sentinel and the builder is left exactly as it was.
//
// Local indices are assigned at finalize: owned nodes first in ascending id
// order, then ghosts in ascending id order.
//
// Errors:
//
//	ErrFinalized           - an Open-only call on a finalized builder.
//	ErrUnfinalized         - a Finalized-only query on an open builder.
//	ErrNoLocalNodes        - Finalize on a rank that claimed nothing.
//	ErrNodeClaimMismatch   - two ranks disagree about a node's owner.
//	adjacency.ErrNodeMissing - an edge references a node nobody claimed.
//	partition.Err*         - the partitioner failed or returned a bad assignment.
package distgraph
