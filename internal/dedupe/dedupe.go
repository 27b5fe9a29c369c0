// Package dedupe groups near-duplicate establishment records into canonical
// entities. Blocking keys limit comparisons to plausible candidate pairs,
// a string-similarity score is computed per pair, and pairs above the match
// threshold are clustered with a union-find. The output is deterministic for
// a fixed input order, regardless of how many workers score the pairs.
package dedupe

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// entityIDPrefix namespaces entity identifiers in the output.
const entityIDPrefix = "lbd-establishment/"

// Options configures a matching run.
type Options struct {
	// Threshold is the minimum similarity for two records to be grouped.
	Threshold float64

	// Workers is the number of goroutines scoring candidate pairs.
	// Zero means GOMAXPROCS.
	Workers int
}

// Result annotates one input record with its assigned entity.
type Result struct {
	// ID is the surrogate row key, the 0-based position in the output.
	ID int

	// EntityID is shared by every record judged to be the same establishment.
	EntityID string

	// Confidence is the best above-threshold similarity to another member
	// of the group, or 1.0 for singletons.
	Confidence float64
}

// Deduper runs the blocking, scoring, and clustering passes.
type Deduper struct {
	opts Options
}

// New creates a Deduper. A non-positive threshold falls back to 0.5.
func New(opts Options) *Deduper {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.5
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Deduper{opts: opts}
}

// Run groups the records and returns one Result per input record, in input
// order. Two runs over identical input produce identical groupings, scores,
// and entity IDs.
func (d *Deduper) Run(ctx context.Context, records []Record) ([]Result, error) {
	log := zap.L().With(zap.String("component", "dedupe"))
	start := time.Now()

	pairs := CandidatePairs(records)
	log.Info("blocking complete",
		zap.Int("records", len(records)),
		zap.Int("candidate_pairs", len(pairs)),
	)

	scores, err := d.scorePairs(ctx, records, pairs)
	if err != nil {
		return nil, err
	}

	// Cluster above-threshold pairs. Pairs are in canonical order and the
	// union-find keeps the smallest index as root, so worker count cannot
	// change the outcome.
	uf := newUnionFind(len(records))
	confidence := make([]float64, len(records))
	matched := 0
	for i, p := range pairs {
		s := scores[i]
		if s < d.opts.Threshold {
			continue
		}
		uf.union(p.A, p.B)
		matched++
		if s > confidence[p.A] {
			confidence[p.A] = s
		}
		if s > confidence[p.B] {
			confidence[p.B] = s
		}
	}

	results := make([]Result, len(records))
	entityIDs := make(map[int]string)
	clusters := 0
	for i := range records {
		root := uf.find(i)
		eid, ok := entityIDs[root]
		if !ok {
			eid = entityID(records[root].Fields.CaseID, root)
			entityIDs[root] = eid
			clusters++
		}

		// Any record that joined a cluster did so through an
		// above-threshold edge, so zero confidence means singleton:
		// it trivially matches itself with maximal confidence.
		conf := confidence[i]
		if conf == 0 {
			conf = 1.0
		}

		results[i] = Result{ID: i, EntityID: eid, Confidence: conf}
	}

	log.Info("clustering complete",
		zap.Int("matched_pairs", matched),
		zap.Int("entities", clusters),
		zap.Duration("elapsed", time.Since(start)),
	)

	return results, nil
}

// scorePairs computes similarity for every candidate pair, fanning the work
// out across contiguous chunks. Each worker writes into its own slice range,
// so the result is position-stable and lock-free.
func (d *Deduper) scorePairs(ctx context.Context, records []Record, pairs []Pair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	if len(pairs) == 0 {
		return scores, nil
	}

	workers := d.opts.Workers
	if workers > len(pairs) {
		workers = len(pairs)
	}
	chunk := (len(pairs) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(pairs) {
			hi = len(pairs)
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return eris.Wrap(ctx.Err(), "dedupe: scoring cancelled")
				}
				p := pairs[i]
				scores[i] = Similarity(records[p.A].Fields, records[p.B].Fields)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scores, nil
}

// entityID derives a stable identifier for a cluster from its root member.
// UUIDv5 over the root's case id and index gives the same id on every run
// over the same input.
func entityID(caseID string, root int) string {
	name := fmt.Sprintf("%s#%d", caseID, root)
	return entityIDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
