// Package edgelist reads per-rank graph fragments from a plain text file.
//
// Format, one directive per line:
//
//	# comment
//	rank R             start the fragment of rank R
//	node ID OWNER [W]  claim node ID for rank OWNER, optionally with weight W
//	edge FROM TO       claim the edge FROM->TO
//
// node and edge lines belong to the most recent rank line.
package edgelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ritzau/distgraph/pkg/model"
)

// ErrSyntax indicates a malformed line.
var ErrSyntax = errors.New("edgelist: syntax error")

// MaxRanks bounds the rank numbers a file may name. Every rank below the
// highest one gets a fragment.
const MaxRanks = 1 << 16

// ParseFile parses the fragment file at path.
func ParseFile(path string) (*model.Input, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	in, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	in.Source = path
	return in, nil
}

// Parse reads fragments from r.
func Parse(r io.Reader) (*model.Input, error) {
	byRank := make(map[int]*model.Fragment)
	maxRank := -1
	var cur *model.Fragment

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		syntax := func(format string, args ...any) error {
			return fmt.Errorf("%w: line %d: %s", ErrSyntax, lineNo, fmt.Sprintf(format, args...))
		}

		switch fields[0] {
		case "rank":
			if len(fields) != 2 {
				return nil, syntax("want 'rank R'")
			}
			rank, err := strconv.Atoi(fields[1])
			if err != nil || rank < 0 {
				return nil, syntax("bad rank %q", fields[1])
			}
			if rank >= MaxRanks {
				return nil, syntax("rank %d exceeds limit %d", rank, MaxRanks-1)
			}
			f, ok := byRank[rank]
			if !ok {
				f = model.NewFragment(rank)
				byRank[rank] = f
			}
			cur = f
			maxRank = max(maxRank, rank)

		case "node":
			if cur == nil {
				return nil, syntax("node before any rank line")
			}
			if len(fields) != 3 && len(fields) != 4 {
				return nil, syntax("want 'node ID OWNER [WEIGHT]'")
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, syntax("bad node id %q", fields[1])
			}
			owner, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, syntax("bad owner %q", fields[2])
			}
			claim := model.NodeClaim{ID: id, Owner: owner}
			if len(fields) == 4 {
				w, err := strconv.ParseFloat(fields[3], 64)
				if err != nil || w <= 0 {
					return nil, syntax("bad weight %q", fields[3])
				}
				claim.Weight = w
			}
			cur.Nodes = append(cur.Nodes, claim)

		case "edge":
			if cur == nil {
				return nil, syntax("edge before any rank line")
			}
			if len(fields) != 3 {
				return nil, syntax("want 'edge FROM TO'")
			}
			from, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, syntax("bad edge source %q", fields[1])
			}
			to, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, syntax("bad edge target %q", fields[2])
			}
			cur.AddEdge(from, to)

		default:
			return nil, syntax("unknown directive %q", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if maxRank < 0 {
		return nil, fmt.Errorf("%w: no rank lines", ErrSyntax)
	}

	in := &model.Input{Fragments: make([]*model.Fragment, maxRank+1)}
	for r := range in.Fragments {
		if f, ok := byRank[r]; ok {
			in.Fragments[r] = f
		} else {
			in.Fragments[r] = model.NewFragment(r)
		}
	}
	return in, nil
}

// Write renders in in the format read by Parse.
func Write(w io.Writer, in *model.Input) error {
	bw := bufio.NewWriter(w)
	for _, f := range in.Fragments {
		fmt.Fprintf(bw, "rank %d\n", f.Rank)
		for _, n := range f.Nodes {
			if n.Weight > 0 {
				fmt.Fprintf(bw, "node %d %d %g\n", n.ID, n.Owner, n.Weight)
			} else {
				fmt.Fprintf(bw, "node %d %d\n", n.ID, n.Owner)
			}
		}
		for _, e := range f.Edges {
			fmt.Fprintf(bw, "edge %d %d\n", e.From, e.To)
		}
	}
	return bw.Flush()
}
