package gazetteer

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/lbd-works/gazetteer-cli/internal/config"
)

// Candidate is one canonical establishment pulled out of the store during
// search, joined with its entity mapping.
type Candidate struct {
	ID         int64
	EntityID   string
	Confidence float64 // stored clustering confidence from entity_map
	CaseID     string
	Trade      string
	Legal      string
	Street     string
	City       string
	State      string
	Zip        string
	NAICS      string
}

// NAICSCode is one row of the industry-code lookup table.
type NAICSCode struct {
	Code  string
	Title string
}

// Stats summarizes the assembled store for status reporting.
type Stats struct {
	Assembled  bool
	Canonical  int64
	EntityMap  int64
	Entities   int64
	BlockKeys  int64
	NAICSCodes int64
}

// Store is the persistence interface for the assembled gazetteer.
type Store interface {
	// Assemble rebuilds the canonical, entity_map, and indexed_records
	// tables from the projection. Constraints are enforced after the bulk
	// load, and the linkage is validated before the method returns.
	Assemble(ctx context.Context, p *Projection) error

	// LoadNAICS replaces the industry-code lookup table.
	LoadNAICS(ctx context.Context, codes []NAICSCode) error

	// Candidates returns the canonical records sharing at least one of the
	// given blocking keys, each joined with its entity mapping.
	Candidates(ctx context.Context, blockKeys []string) ([]Candidate, error)

	// NAICSTitle resolves an industry code to its title. Returns "" without
	// error when the code is unknown.
	NAICSTitle(ctx context.Context, code string) (string, error)

	// Stats reports table counts, with Assembled false when the gazetteer
	// has not been built yet.
	Stats(ctx context.Context) (*Stats, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open returns the store selected by the configuration: modernc SQLite by
// default, Postgres when store.driver is "postgres".
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Store.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("gazetteer: unknown store driver %q", cfg.Store.Driver)
	}
}

// ReadNAICSCSV parses the naics.csv artifact (naics_code, naics_title).
func ReadNAICSCSV(r io.Reader) ([]NAICSCode, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("gazetteer: naics artifact is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: read naics header")
	}
	if len(header) < 2 || strings.ToLower(header[0]) != "naics_code" {
		return nil, eris.Errorf("gazetteer: unexpected naics header %v", header)
	}

	var codes []NAICSCode
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "gazetteer: read naics row %d", len(codes)+2)
		}
		if len(row) < 2 || row[0] == "" {
			continue
		}
		codes = append(codes, NAICSCode{Code: row[0], Title: row[1]})
	}
	return codes, nil
}
