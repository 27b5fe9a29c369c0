package gazetteer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	if connString == "" {
		return nil, eris.New("postgres: store.database_url is not set")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) Assemble(ctx context.Context, p *Projection) error {
	log := zap.L().With(zap.String("component", "gazetteer.postgres"))

	idIdx := -1
	for i, col := range p.CanonicalHeader {
		if col == "id" {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return eris.New("postgres: projection has no id column")
	}

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS indexed_records",
		"DROP TABLE IF EXISTS entity_map",
		"DROP TABLE IF EXISTS canonical",
		canonicalDDLPostgres(p.CanonicalHeader),
		`CREATE TABLE entity_map (
			id BIGINT NOT NULL REFERENCES canonical(id),
			entity_id TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE indexed_records (
			block_key TEXT NOT NULL,
			record_id BIGINT NOT NULL
		)`,
		// The lookup table must exist even when no NAICS artifact is loaded.
		"CREATE TABLE IF NOT EXISTS naics (code TEXT PRIMARY KEY, title TEXT NOT NULL)",
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: exec %.40q", stmt)
		}
	}

	canonicalRows, err := canonicalValues(p, idIdx)
	if err != nil {
		return err
	}
	if _, err := db.CopyFrom(ctx, s.pool, "canonical", p.CanonicalHeader, canonicalRows); err != nil {
		return err
	}

	mapRows := make([][]any, len(p.EntityMap))
	for i, row := range p.EntityMap {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "postgres: entity_map row %d id", i)
		}
		conf, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return eris.Wrapf(err, "postgres: entity_map row %d confidence", i)
		}
		mapRows[i] = []any{id, row[1], conf}
	}
	if _, err := db.CopyFrom(ctx, s.pool, "entity_map", EntityMapColumns, mapRows); err != nil {
		return err
	}

	var keyRows [][]any
	for i, keys := range p.BlockKeys {
		id, err := strconv.ParseInt(p.Canonical[i][idIdx], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "postgres: canonical row %d id", i)
		}
		for _, key := range keys {
			keyRows = append(keyRows, []any{key, id})
		}
	}
	if _, err := db.CopyFrom(ctx, s.pool, "indexed_records", []string{"block_key", "record_id"}, keyRows); err != nil {
		return err
	}

	for _, stmt := range []string{
		"CREATE UNIQUE INDEX idx_entity_map_id ON entity_map(id)",
		"CREATE INDEX idx_entity_map_entity_id ON entity_map(entity_id)",
		"CREATE UNIQUE INDEX idx_indexed_records ON indexed_records(block_key, record_id)",
		"ANALYZE canonical",
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: exec %.40q", stmt)
		}
	}

	var orphans int64
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM entity_map e LEFT JOIN canonical c ON c.id = e.id WHERE c.id IS NULL`,
	).Scan(&orphans)
	if err != nil {
		return eris.Wrap(err, "postgres: validate linkage")
	}
	if orphans > 0 {
		return eris.Errorf("postgres: %d entity_map rows reference no canonical row", orphans)
	}

	log.Info("gazetteer assembled",
		zap.Int("canonical", len(p.Canonical)),
		zap.Int("entity_map", len(p.EntityMap)),
		zap.Int("block_keys", len(keyRows)),
	)
	return nil
}

func (s *PostgresStore) LoadNAICS(ctx context.Context, codes []NAICSCode) error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS naics",
		"CREATE TABLE naics (code TEXT PRIMARY KEY, title TEXT NOT NULL)",
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: exec %.40q", stmt)
		}
	}

	rows := make([][]any, len(codes))
	for i, c := range codes {
		rows[i] = []any{c.Code, c.Title}
	}
	_, err := db.CopyFrom(ctx, s.pool, "naics", []string{"code", "title"}, rows)
	return err
}

func (s *PostgresStore) Candidates(ctx context.Context, blockKeys []string) ([]Candidate, error) {
	if len(blockKeys) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT
			c.id, e.entity_id, e.confidence_score,
			c.case_id, c.trade_nm, c.legal_name, c.street_addr_1_txt,
			c.cty_nm, c.st_cd, c.zip_cd, c.naic_cd
		FROM indexed_records b
		JOIN canonical c ON c.id = b.record_id
		JOIN entity_map e ON e.id = c.id
		WHERE b.block_key = ANY($1)`, blockKeys)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query candidates")
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.EntityID, &c.Confidence,
			&c.CaseID, &c.Trade, &c.Legal, &c.Street,
			&c.City, &c.State, &c.Zip, &c.NAICS); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate candidates")
}

func (s *PostgresStore) NAICSTitle(ctx context.Context, code string) (string, error) {
	var title string
	err := s.pool.QueryRow(ctx, "SELECT title FROM naics WHERE code = $1", code).Scan(&title)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: lookup naics")
	}
	return title, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var reg *string
	err := s.pool.QueryRow(ctx, "SELECT to_regclass('canonical')::text").Scan(&reg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: check tables")
	}
	if reg == nil {
		return &Stats{}, nil
	}

	st := &Stats{Assembled: true}
	counts := []struct {
		dest  *int64
		query string
	}{
		{&st.Canonical, "SELECT COUNT(*) FROM canonical"},
		{&st.EntityMap, "SELECT COUNT(*) FROM entity_map"},
		{&st.Entities, "SELECT COUNT(DISTINCT entity_id) FROM entity_map"},
		{&st.BlockKeys, "SELECT COUNT(*) FROM indexed_records"},
	}
	for _, c := range counts {
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %.30q", c.query)
		}
	}

	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM naics").Scan(&st.NAICSCodes); err != nil {
		st.NAICSCodes = 0
	}
	return st, nil
}

func canonicalDDLPostgres(header []string) string {
	cols := make([]string, len(header))
	for i, col := range header {
		if col == "id" {
			cols[i] = `"id" BIGINT PRIMARY KEY`
			continue
		}
		cols[i] = fmt.Sprintf("%q TEXT", col)
	}
	return fmt.Sprintf("CREATE TABLE canonical (%s)", strings.Join(cols, ", "))
}

// canonicalValues converts the string projection rows to typed values, with
// the surrogate id parsed to an integer.
func canonicalValues(p *Projection, idIdx int) ([][]any, error) {
	rows := make([][]any, len(p.Canonical))
	for i, row := range p.Canonical {
		vals := make([]any, len(row))
		for j, v := range row {
			if j == idIdx {
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return nil, eris.Wrapf(err, "postgres: canonical row %d id", i)
				}
				vals[j] = id
				continue
			}
			vals[j] = v
		}
		rows[i] = vals
	}
	return rows, nil
}
