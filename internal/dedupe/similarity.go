package dedupe

import (
	"github.com/agext/levenshtein"
)

// Field weights for the composite score. Names dominate because address
// fields in the raw data are sparser and noisier.
const (
	nameWeight = 0.6
	addrWeight = 0.4

	// Records in different states are almost never the same establishment;
	// a mismatch scales the whole score down instead of zeroing it so a
	// data-entry error in st_cd still surfaces as a low-confidence match.
	stateMismatchPenalty = 0.5
)

// stringSim scores two folded strings in [0,1] as the better of edit-distance
// similarity and token-set overlap. The token component catches word
// reorderings ("j & b cleaners" vs "cleaners j and b") that edit distance
// punishes hard.
func stringSim(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	lev := levenshtein.Similarity(a, b, nil)
	jac := jaccard(tokens(a), tokens(b))
	if jac > lev {
		return jac
	}
	return lev
}

// jaccard computes token-set overlap |a ∩ b| / |a ∪ b|.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	union := len(set)
	inter := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			inter++
			delete(set, t) // count duplicates in b once
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// nameSim cross-compares trade and legal names and keeps the best score,
// since one source's trade name is often another's legal name.
func nameSim(a, b Fields) float64 {
	best := 0.0
	for _, an := range []string{a.Trade, a.Legal} {
		if an == "" {
			continue
		}
		for _, bn := range []string{b.Trade, b.Legal} {
			if bn == "" {
				continue
			}
			if s := stringSim(an, bn); s > best {
				best = s
			}
		}
	}
	return best
}

// Similarity scores two records in [0,1], monotonic in match strength.
func Similarity(a, b Fields) float64 {
	name := nameSim(a, b)
	addr := stringSim(a.Street+" "+a.City, b.Street+" "+b.City)

	score := nameWeight*name + addrWeight*addr

	if a.State != "" && b.State != "" && a.State != b.State {
		score *= stateMismatchPenalty
	}

	return score
}
