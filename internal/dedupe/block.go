package dedupe

import (
	"sort"
	"strings"
)

// namePrefixLen is the number of leading characters of the normalized name
// used in the zip blocking key.
const namePrefixLen = 4

// BlockKeys returns the coarse grouping keys for a record. Records sharing
// at least one key are candidate pairs; records sharing none are never
// compared. Two predicates:
//
//	z:<zip5>:<name prefix>       — same ZIP, similar name start
//	c:<state>:<city>:<house no.> — same city, same leading street token
func BlockKeys(f Fields) []string {
	var keys []string

	name := f.Trade
	if name == "" {
		name = f.Legal
	}

	if f.Zip != "" && name != "" {
		zip := f.Zip
		if len(zip) > 5 {
			zip = zip[:5]
		}
		prefix := strings.ReplaceAll(name, " ", "")
		if len(prefix) > namePrefixLen {
			prefix = prefix[:namePrefixLen]
		}
		keys = append(keys, "z:"+zip+":"+prefix)
	}

	if f.State != "" && f.City != "" {
		if toks := tokens(f.Street); len(toks) > 0 {
			keys = append(keys, "c:"+f.State+":"+f.City+":"+toks[0])
		}
	}

	return keys
}

// Pair is an unordered candidate pair of record indices, A < B.
type Pair struct {
	A, B int
}

// CandidatePairs applies blocking to all records and returns the union of
// within-block pairs, each pair exactly once, in canonical (A, B) order.
// The ordering is deterministic for a fixed input order.
func CandidatePairs(records []Record) []Pair {
	blocks := make(map[string][]int)
	for i, rec := range records {
		for _, key := range BlockKeys(rec.Fields) {
			blocks[key] = append(blocks[key], i)
		}
	}

	seen := make(map[Pair]struct{})
	var pairs []Pair
	for _, members := range blocks {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				p := Pair{A: members[i], B: members[j]}
				if p.A > p.B {
					p.A, p.B = p.B, p.A
				}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				pairs = append(pairs, p)
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	return pairs
}
