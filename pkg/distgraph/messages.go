package distgraph

import (
	"cmp"
	"hash/fnv"
	"slices"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/wire"
)

// Message tags. Partitioners use partition.TagBase and above.
const (
	tagVote comm.Tag = iota + 1
	tagClaims
	tagPublish
	tagQuery
	tagReply
	tagRedistribute
	tagGhostRequest
	tagGhostResponse
)

// home returns the rank that arbitrates id during reconciliation and
// ownership lookup. It depends only on the encoded id and the world size.
func home[T any](codec wire.Codec[T], id T, size int) int {
	h := fnv.New32a()
	_, _ = h.Write(codec.Append(nil, id))
	return int(h.Sum32() % uint32(size))
}

// ownerRecord pairs a node with a rank. It carries claims, published
// assignments and the owners of redistributed neighbors.
type ownerRecord[T any] struct {
	ID    T
	Owner int
}

func encodeOwners[T any](codec wire.Codec[T], recs []ownerRecord[T]) []byte {
	w := wire.NewWriter(1 + 3*len(recs))
	w.Count(len(recs))
	for _, rec := range recs {
		wire.Put(w, codec, rec.ID)
		w.Int(rec.Owner)
	}
	return w.Bytes()
}

func readOwners[T any](r *wire.Reader, codec wire.Codec[T]) ([]ownerRecord[T], error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	recs := make([]ownerRecord[T], 0, n)
	for i := 0; i < n; i++ {
		id, err := wire.Get(r, codec)
		if err != nil {
			return nil, err
		}
		owner, err := r.Int()
		if err != nil {
			return nil, err
		}
		recs = append(recs, ownerRecord[T]{ID: id, Owner: owner})
	}
	return recs, nil
}

func decodeOwners[T any](codec wire.Codec[T], b []byte) ([]ownerRecord[T], error) {
	r := wire.NewReader(b)
	recs, err := readOwners(r, codec)
	if err != nil {
		return nil, err
	}
	return recs, r.Done()
}

// nodeRecord carries one node's out-neighbors, with their owners, to the
// node's owner.
type nodeRecord[T any] struct {
	ID        T
	Neighbors []ownerRecord[T]
}

func encodeNodes[T any](codec wire.Codec[T], recs []nodeRecord[T]) []byte {
	w := wire.NewWriter(1 + 4*len(recs))
	w.Count(len(recs))
	for _, rec := range recs {
		wire.Put(w, codec, rec.ID)
		w.Count(len(rec.Neighbors))
		for _, n := range rec.Neighbors {
			wire.Put(w, codec, n.ID)
			w.Int(n.Owner)
		}
	}
	return w.Bytes()
}

func decodeNodes[T any](codec wire.Codec[T], b []byte) ([]nodeRecord[T], error) {
	r := wire.NewReader(b)
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	recs := make([]nodeRecord[T], 0, n)
	for i := 0; i < n; i++ {
		id, err := wire.Get(r, codec)
		if err != nil {
			return nil, err
		}
		nbrs, err := readOwners(r, codec)
		if err != nil {
			return nil, err
		}
		recs = append(recs, nodeRecord[T]{ID: id, Neighbors: nbrs})
	}
	return recs, r.Done()
}

// GhostRequest asks the owner of ID for the data needed to mirror it on
// RequestingRank.
type GhostRequest[T any] struct {
	ID             T
	RequestingRank int
}

// GhostResponse answers a GhostRequest. Found is false when the receiver
// does not own ID.
type GhostResponse[T any] struct {
	ID        T
	Found     bool
	Neighbors []T
}

// EncodeGhostRequests encodes a count-prefixed batch of requests.
func EncodeGhostRequests[T any](codec wire.Codec[T], reqs []GhostRequest[T]) []byte {
	w := wire.NewWriter(1 + 3*len(reqs))
	w.Count(len(reqs))
	for _, req := range reqs {
		wire.Put(w, codec, req.ID)
		w.Int(req.RequestingRank)
	}
	return w.Bytes()
}

// DecodeGhostRequests decodes a batch produced by EncodeGhostRequests.
func DecodeGhostRequests[T any](codec wire.Codec[T], b []byte) ([]GhostRequest[T], error) {
	recs, err := decodeOwners(codec, b)
	if err != nil {
		return nil, err
	}
	reqs := make([]GhostRequest[T], len(recs))
	for i, rec := range recs {
		reqs[i] = GhostRequest[T]{ID: rec.ID, RequestingRank: rec.Owner}
	}
	return reqs, nil
}

// EncodeGhostResponses encodes a count-prefixed batch of responses.
func EncodeGhostResponses[T any](codec wire.Codec[T], resps []GhostResponse[T]) []byte {
	w := wire.NewWriter(1 + 4*len(resps))
	w.Count(len(resps))
	for _, resp := range resps {
		wire.Put(w, codec, resp.ID)
		w.Bool(resp.Found)
		wire.PutSlice(w, codec, resp.Neighbors)
	}
	return w.Bytes()
}

// DecodeGhostResponses decodes a batch produced by EncodeGhostResponses.
func DecodeGhostResponses[T any](codec wire.Codec[T], b []byte) ([]GhostResponse[T], error) {
	r := wire.NewReader(b)
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	resps := make([]GhostResponse[T], 0, n)
	for i := 0; i < n; i++ {
		id, err := wire.Get(r, codec)
		if err != nil {
			return nil, err
		}
		found, err := r.Bool()
		if err != nil {
			return nil, err
		}
		nbrs, err := wire.GetSlice(r, codec)
		if err != nil {
			return nil, err
		}
		resps = append(resps, GhostResponse[T]{ID: id, Found: found, Neighbors: nbrs})
	}
	return resps, r.Done()
}

func sortedKeys[T cmp.Ordered, V any](m map[T]V) []T {
	keys := make([]T, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
