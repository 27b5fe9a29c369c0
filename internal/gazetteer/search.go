package gazetteer

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/dedupe"
)

// Query is one messy record to match against the gazetteer.
type Query struct {
	Name   string // trade or establishment name
	Legal  string
	Street string
	City   string
	State  string
	Zip    string
	NAICS  string
}

// Match is one canonical establishment matched to a query, best canonical
// record per entity.
type Match struct {
	EntityID    string  `json:"entity_id"`
	CanonicalID int64   `json:"canonical_id"`
	Score       float64 `json:"score"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	NAICS       string  `json:"naics,omitempty"`
	NAICSTitle  string  `json:"naics_title,omitempty"`
}

// Searcher matches messy records against an assembled store using the same
// blocking keys and similarity scoring as the deduplication pass.
type Searcher struct {
	store      Store
	threshold  float64
	maxMatches int
}

// NewSearcher creates a Searcher. threshold <= 0 falls back to 0.5 and
// maxMatches <= 0 to 5.
func NewSearcher(store Store, threshold float64, maxMatches int) *Searcher {
	if threshold <= 0 {
		threshold = 0.5
	}
	if maxMatches <= 0 {
		maxMatches = 5
	}
	return &Searcher{store: store, threshold: threshold, maxMatches: maxMatches}
}

// Search blocks the query against the canonical table, scores every
// candidate, and returns at most maxMatches results above the threshold,
// one per entity, best score first.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Match, error) {
	rec := dedupe.FromFields("", q.Name, q.Legal, q.Street, q.City, q.State, q.Zip, q.NAICS)
	keys := dedupe.BlockKeys(rec.Fields)

	candidates, err := s.store.Candidates(ctx, keys)
	if err != nil {
		return nil, err
	}

	// One result per entity: keep the best-scoring canonical record.
	best := make(map[string]Match)
	for _, c := range candidates {
		cf := dedupe.FromFields(c.CaseID, c.Trade, c.Legal, c.Street, c.City, c.State, c.Zip, c.NAICS).Fields
		score := dedupe.Similarity(rec.Fields, cf)
		if score < s.threshold {
			continue
		}
		m, ok := best[c.EntityID]
		if ok && m.Score >= score {
			continue
		}
		best[c.EntityID] = Match{
			EntityID:    c.EntityID,
			CanonicalID: c.ID,
			Score:       score,
			Name:        c.Trade,
			City:        c.City,
			State:       c.State,
			NAICS:       c.NAICS,
		}
	}

	matches := make([]Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].CanonicalID < matches[j].CanonicalID
	})
	if len(matches) > s.maxMatches {
		matches = matches[:s.maxMatches]
	}

	for i := range matches {
		if matches[i].NAICS == "" {
			continue
		}
		title, err := s.store.NAICSTitle(ctx, matches[i].NAICS)
		if err != nil {
			return nil, err
		}
		matches[i].NAICSTitle = title
	}

	return matches, nil
}

// linkAliases maps matcher columns to the upstream names they may carry in
// messy inputs, so the OSHA inspection artifact links without reshaping.
var linkAliases = map[string][]string{
	"trade_nm":          {"trade_nm", "estab_name"},
	"legal_name":        {"legal_name"},
	"street_addr_1_txt": {"street_addr_1_txt", "site_address"},
	"cty_nm":            {"cty_nm", "site_city"},
	"st_cd":             {"st_cd", "site_state"},
	"zip_cd":            {"zip_cd", "site_zip"},
	"naic_cd":           {"naic_cd", "naics_code"},
}

// LinkCSV matches every record of a messy CSV against the gazetteer and
// writes identifier, establishment_identifier, confidence rows: one output
// row per matched entity, nothing for records with no match. identifier
// names the messy input's key column (e.g. "activity_nr").
func (s *Searcher) LinkCSV(ctx context.Context, r io.Reader, w io.Writer, identifier string) (int64, error) {
	log := zap.L().With(zap.String("component", "gazetteer.link"))

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, eris.New("gazetteer: link input is empty")
	}
	if err != nil {
		return 0, eris.Wrap(err, "gazetteer: read link header")
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	idIdx, ok := colIdx[identifier]
	if !ok {
		return 0, eris.Errorf("gazetteer: link input missing identifier column %q", identifier)
	}
	resolve := func(matcherCol string) int {
		for _, alias := range linkAliases[matcherCol] {
			if i, ok := colIdx[alias]; ok {
				return i
			}
		}
		return -1
	}
	fieldIdx := map[string]int{}
	for col := range linkAliases {
		fieldIdx[col] = resolve(col)
	}
	if fieldIdx["trade_nm"] < 0 {
		return 0, eris.New("gazetteer: link input has no establishment name column")
	}

	get := func(row []string, col string) string {
		i := fieldIdx[col]
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{identifier, "establishment_identifier", "confidence"}); err != nil {
		return 0, eris.Wrap(err, "gazetteer: write link header")
	}

	var written int64
	var rowNum int
	for {
		select {
		case <-ctx.Done():
			return written, eris.Wrap(ctx.Err(), "gazetteer: link cancelled")
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, eris.Wrapf(err, "gazetteer: read link row %d", rowNum+2)
		}
		rowNum++

		matches, err := s.Search(ctx, Query{
			Name:   get(row, "trade_nm"),
			Legal:  get(row, "legal_name"),
			Street: get(row, "street_addr_1_txt"),
			City:   get(row, "cty_nm"),
			State:  get(row, "st_cd"),
			Zip:    get(row, "zip_cd"),
			NAICS:  get(row, "naic_cd"),
		})
		if err != nil {
			return written, err
		}

		id := ""
		if idIdx < len(row) {
			id = row[idIdx]
		}
		for _, m := range matches {
			if err := out.Write([]string{id, m.EntityID, strconv.FormatFloat(m.Score, 'f', 6, 64)}); err != nil {
				return written, eris.Wrap(err, "gazetteer: write link row")
			}
			written++
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return written, eris.Wrap(err, "gazetteer: flush link output")
	}

	log.Info("link complete", zap.Int("records", rowNum), zap.Int64("matches", written))
	return written, nil
}
