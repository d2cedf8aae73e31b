package distgraph

import (
	"fmt"
	"slices"

	"github.com/ritzau/distgraph/pkg/adjacency"
)

// exchangeGhosts mirrors the remote neighbors of owned nodes.
//
// Requests are batched into one message per owner rank. The request round
// is fully drained on every rank before any response is sent.
func (f *finalizer[T]) exchangeGhosts() error {
	wanted := make([]map[T]struct{}, f.size)
	for _, nbrs := range f.owned {
		for n, owner := range nbrs {
			if owner == f.rank {
				continue
			}
			if wanted[owner] == nil {
				wanted[owner] = make(map[T]struct{})
			}
			wanted[owner][n] = struct{}{}
		}
	}

	out := make([][]byte, f.size)
	for p := range out {
		ids := sortedKeys(wanted[p])
		reqs := make([]GhostRequest[T], len(ids))
		for i, id := range ids {
			reqs[i] = GhostRequest[T]{ID: id, RequestingRank: f.rank}
		}
		out[p] = EncodeGhostRequests(f.codec, reqs)
	}
	in, err := f.exchange(tagGhostRequest, out)
	if err != nil {
		return err
	}

	var local error
	responses := make([][]byte, f.size)
	for src, payload := range in {
		reqs, decErr := DecodeGhostRequests(f.codec, payload)
		if decErr != nil {
			joinErr(&local, fmt.Errorf("ghost requests from rank %d: %w", src, decErr))
		}
		resps := make([]GhostResponse[T], len(reqs))
		for i, req := range reqs {
			resps[i] = GhostResponse[T]{ID: req.ID}
			if nbrs, ok := f.owned[req.ID]; ok {
				resps[i].Found = true
				resps[i].Neighbors = sortedKeys(nbrs)
			}
		}
		responses[src] = EncodeGhostResponses(f.codec, resps)
	}
	in, err = f.exchange(tagGhostResponse, responses)
	if err != nil {
		return err
	}

	f.ghosts = make(map[T][]T)
	f.ghostOwner = make(map[T]int)
	for p, w := range wanted {
		for id := range w {
			f.ghostOwner[id] = p
		}
	}
	isLocal := func(id T) bool {
		if _, ok := f.owned[id]; ok {
			return true
		}
		_, ok := f.ghostOwner[id]
		return ok
	}

	var missing []T
	for src, payload := range in {
		resps, decErr := DecodeGhostResponses(f.codec, payload)
		if decErr == nil && len(resps) != len(wanted[src]) {
			decErr = fmt.Errorf("%d ghost responses for %d requests", len(resps), len(wanted[src]))
		}
		if decErr != nil {
			joinErr(&local, fmt.Errorf("ghost responses from rank %d: %w", src, decErr))
			continue
		}
		for _, resp := range resps {
			if !resp.Found {
				missing = append(missing, resp.ID)
				continue
			}
			kept := make([]T, 0, len(resp.Neighbors))
			for _, n := range resp.Neighbors {
				if isLocal(n) {
					kept = append(kept, n)
				}
			}
			f.ghosts[resp.ID] = kept
		}
	}
	if local == nil && len(missing) > 0 {
		slices.Sort(missing)
		local = fmt.Errorf("%w: owners do not hold ghost candidates %v", adjacency.ErrNodeMissing, missing)
	}
	return f.vote(missing, local)
}

// commit builds the compressed local graph: owned nodes first, then ghosts,
// each in ascending id order.
func (f *finalizer[T]) commit() error {
	var opts []adjacency.Option
	if !f.b.directed {
		opts = append(opts, adjacency.Undirected())
	}
	d := adjacency.NewDynamic[T](opts...)

	ownedIDs := sortedKeys(f.owned)
	ghostIDs := sortedKeys(f.ghosts)
	owners := make([]int, 0, len(ownedIDs)+len(ghostIDs))
	for _, id := range ownedIDs {
		_ = d.AddNode(id)
		owners = append(owners, f.rank)
	}
	for _, id := range ghostIDs {
		_ = d.AddNode(id)
		owners = append(owners, f.ghostOwner[id])
	}

	link := func(from, to T) error {
		if d.HasEdge(from, to) {
			return nil
		}
		return d.AddEdge(from, to)
	}
	var local error
	for _, id := range ownedIDs {
		for _, n := range sortedKeys(f.owned[id]) {
			joinErr(&local, link(id, n))
		}
	}
	for _, id := range ghostIDs {
		for _, n := range f.ghosts[id] {
			joinErr(&local, link(id, n))
		}
	}
	if local == nil && d.NodeCount() != len(owners) {
		local = fmt.Errorf("%w: %d local nodes, %d known owners", ErrPeerFailed, d.NodeCount(), len(owners))
	}
	if local == nil {
		f.graph = newGraph(f.rank, f.size, d.ToCompressed(), len(ownedIDs), owners)
	}
	return f.vote(nil, local)
}
