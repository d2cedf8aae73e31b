package distgraph

import (
	"fmt"
	"slices"

	"github.com/ritzau/distgraph/pkg/adjacency"
	"github.com/ritzau/distgraph/pkg/partition"
	"github.com/ritzau/distgraph/pkg/wire"
)

// byHome groups owner records by the home rank of their id and encodes one
// batch per rank.
func (f *finalizer[T]) byHome(ids []T, ownerOf func(T) int) [][]byte {
	groups := make([][]ownerRecord[T], f.size)
	for _, id := range ids {
		h := home(f.codec, id, f.size)
		groups[h] = append(groups[h], ownerRecord[T]{ID: id, Owner: ownerOf(id)})
	}
	out := make([][]byte, f.size)
	for p, g := range groups {
		out[p] = encodeOwners(f.codec, g)
	}
	return out
}

// collectOwners merges owner records received at this home rank. Ids that
// arrive with more than one distinct owner are returned in ascending order.
func (f *finalizer[T]) collectOwners(in [][]byte) (map[T]int, []T, error) {
	owners := make(map[T]int)
	conflict := make(map[T]struct{})
	var err error
	for src, payload := range in {
		recs, decErr := decodeOwners(f.codec, payload)
		if decErr != nil {
			joinErr(&err, fmt.Errorf("owner records from rank %d: %w", src, decErr))
			continue
		}
		for _, rec := range recs {
			if prev, ok := owners[rec.ID]; ok && prev != rec.Owner {
				conflict[rec.ID] = struct{}{}
				continue
			}
			owners[rec.ID] = rec.Owner
		}
	}
	return owners, sortedKeys(conflict), err
}

// reconcile sends every claim to the id's home rank, which checks that all
// claimants requested the same owner.
func (f *finalizer[T]) reconcile() error {
	in, err := f.exchange(tagClaims, f.byHome(f.claimed, func(id T) int { return f.b.claims[id] }))
	if err != nil {
		return err
	}

	_, conflict, err := f.collectOwners(in)
	if err == nil && len(conflict) > 0 {
		err = fmt.Errorf("%w: conflicting requested owners for %v", ErrNodeClaimMismatch, conflict)
	}
	return f.vote(conflict, err)
}

// partition runs the configured partitioner over this rank's claims.
func (f *finalizer[T]) partition() error {
	s := &partition.Summary[T]{
		Nodes:     f.claimed,
		Claims:    make([]int, len(f.claimed)),
		Neighbors: make([][]T, len(f.claimed)),
		Parts:     f.b.parts,
		Codec:     f.codec,
	}
	for i, id := range f.claimed {
		s.Claims[i] = f.b.claims[id]
		nbrs, err := f.b.store.Neighbors(id)
		if err != nil {
			return f.abort(err)
		}
		slices.Sort(nbrs)
		s.Neighbors[i] = nbrs
	}
	if len(f.b.weights) > 0 {
		s.Weights = make([]float64, len(f.claimed))
		for i, id := range f.claimed {
			s.Weights[i] = f.b.weights[id]
		}
	}

	assign, err := f.b.partitioner.Partition(f.ctx, f.c, s)
	var bad []T
	if err == nil {
		bad, err = partition.Validate(s, assign)
	} else {
		err = fmt.Errorf("%s: %w", f.b.partitioner.Name(), err)
	}
	if err == nil {
		f.assign = make(map[T]int, len(f.claimed))
		for i, id := range f.claimed {
			f.assign[id] = assign[i]
		}
	}
	return f.vote(bad, err)
}

// directory publishes the assignment at every home rank and then resolves
// the owner of every id this rank stores, including edge targets it never
// claimed.
func (f *finalizer[T]) directory() error {
	in, err := f.exchange(tagPublish, f.byHome(f.claimed, func(id T) int { return f.assign[id] }))
	if err != nil {
		return err
	}
	dir, conflict, err := f.collectOwners(in)
	if err == nil && len(conflict) > 0 {
		err = fmt.Errorf("%w: partitioner assigned different ranks to %v", ErrNodeClaimMismatch, conflict)
	}
	if err := f.vote(conflict, err); err != nil {
		return err
	}
	f.dir = dir

	stored := f.b.store.Nodes()
	slices.Sort(stored)
	queries := make([][]T, f.size)
	for _, id := range stored {
		h := home(f.codec, id, f.size)
		queries[h] = append(queries[h], id)
	}
	out := make([][]byte, f.size)
	for p, q := range queries {
		out[p] = wire.EncodeIDs(f.codec, q)
	}
	in, err = f.exchange(tagQuery, out)
	if err != nil {
		return err
	}

	// Replies are sent even if a query fails to decode so that the reply
	// round stays matched on every rank.
	var local error
	replies := make([][]byte, f.size)
	for src, payload := range in {
		ids, decErr := wire.DecodeIDs(f.codec, payload)
		if decErr != nil {
			joinErr(&local, fmt.Errorf("owner query from rank %d: %w", src, decErr))
		}
		recs := make([]ownerRecord[T], len(ids))
		for i, id := range ids {
			owner, ok := f.dir[id]
			if !ok {
				owner = -1
			}
			recs[i] = ownerRecord[T]{ID: id, Owner: owner}
		}
		replies[src] = encodeOwners(f.codec, recs)
	}
	in, err = f.exchange(tagReply, replies)
	if err != nil {
		return err
	}

	f.owner = make(map[T]int, len(stored))
	var missing []T
	for src, payload := range in {
		recs, decErr := decodeOwners(f.codec, payload)
		if decErr == nil && len(recs) != len(queries[src]) {
			decErr = fmt.Errorf("%d replies for %d queries", len(recs), len(queries[src]))
		}
		if decErr != nil {
			joinErr(&local, fmt.Errorf("owner reply from rank %d: %w", src, decErr))
			continue
		}
		for _, rec := range recs {
			if rec.Owner < 0 {
				missing = append(missing, rec.ID)
				continue
			}
			f.owner[rec.ID] = rec.Owner
		}
	}
	if local == nil && len(missing) > 0 {
		slices.Sort(missing)
		local = fmt.Errorf("%w: edges reference unclaimed nodes %v", adjacency.ErrNodeMissing, missing)
	}
	return f.vote(missing, local)
}

// redistribute ships every stored node's out-neighbors, tagged with their
// owners, to the node's owner.
func (f *finalizer[T]) redistribute() error {
	groups := make([][]nodeRecord[T], f.size)
	for _, id := range sortedKeys(f.owner) {
		nbrs, err := f.b.store.Neighbors(id)
		if err != nil {
			return f.abort(err)
		}
		rec := nodeRecord[T]{ID: id, Neighbors: make([]ownerRecord[T], len(nbrs))}
		for i, n := range nbrs {
			rec.Neighbors[i] = ownerRecord[T]{ID: n, Owner: f.owner[n]}
		}
		groups[f.owner[id]] = append(groups[f.owner[id]], rec)
	}
	out := make([][]byte, f.size)
	for p, g := range groups {
		out[p] = encodeNodes(f.codec, g)
	}

	in, err := f.exchange(tagRedistribute, out)
	if err != nil {
		return err
	}

	var local error
	f.owned = make(map[T]map[T]int)
	for src, payload := range in {
		recs, decErr := decodeNodes(f.codec, payload)
		if decErr != nil {
			joinErr(&local, fmt.Errorf("node records from rank %d: %w", src, decErr))
			continue
		}
		for _, rec := range recs {
			nbrs, ok := f.owned[rec.ID]
			if !ok {
				nbrs = make(map[T]int, len(rec.Neighbors))
				f.owned[rec.ID] = nbrs
			}
			for _, n := range rec.Neighbors {
				nbrs[n.ID] = n.Owner
			}
		}
	}
	return f.vote(nil, local)
}
