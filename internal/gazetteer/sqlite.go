package gazetteer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Assemble(ctx context.Context, p *Projection) error {
	log := zap.L().With(zap.String("component", "gazetteer.sqlite"))

	idIdx := -1
	for i, col := range p.CanonicalHeader {
		if col == "id" {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return eris.New("sqlite: projection has no id column")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() // no-op after commit

	// Rebuild from scratch: the gazetteer has no incremental path.
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS indexed_records",
		"DROP TABLE IF EXISTS entity_map",
		"DROP TABLE IF EXISTS canonical",
		canonicalDDL(p.CanonicalHeader),
		`CREATE TABLE entity_map (
			id INTEGER NOT NULL REFERENCES canonical(id),
			entity_id TEXT NOT NULL,
			confidence_score REAL NOT NULL
		)`,
		`CREATE TABLE indexed_records (
			block_key TEXT NOT NULL,
			record_id INTEGER NOT NULL
		)`,
		// The lookup table must exist even when no NAICS artifact is loaded,
		// so title lookups on a freshly assembled store resolve to "unknown".
		"CREATE TABLE IF NOT EXISTS naics (code TEXT PRIMARY KEY, title TEXT NOT NULL)",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: exec %.40q", stmt)
		}
	}

	if err := insertRows(ctx, tx, "canonical", p.CanonicalHeader, p.Canonical); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, "entity_map", EntityMapColumns, p.EntityMap); err != nil {
		return err
	}

	keyStmt, err := tx.PrepareContext(ctx, "INSERT INTO indexed_records (block_key, record_id) VALUES (?, ?)")
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare index insert")
	}
	defer keyStmt.Close()
	var keyCount int64
	for i, keys := range p.BlockKeys {
		id := p.Canonical[i][idIdx]
		for _, key := range keys {
			if _, err := keyStmt.ExecContext(ctx, key, id); err != nil {
				return eris.Wrapf(err, "sqlite: index row %d", i)
			}
			keyCount++
		}
	}

	// Constraints go on after the bulk load.
	for _, stmt := range []string{
		"CREATE UNIQUE INDEX idx_entity_map_id ON entity_map(id)",
		"CREATE INDEX idx_entity_map_entity_id ON entity_map(entity_id)",
		"CREATE UNIQUE INDEX idx_indexed_records ON indexed_records(block_key, record_id)",
		"ANALYZE",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: exec %.40q", stmt)
		}
	}

	// Referential validation: every mapping row must land on a canonical row.
	var orphans int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entity_map e LEFT JOIN canonical c ON c.id = e.id WHERE c.id IS NULL`,
	).Scan(&orphans)
	if err != nil {
		return eris.Wrap(err, "sqlite: validate linkage")
	}
	if orphans > 0 {
		return eris.Errorf("sqlite: %d entity_map rows reference no canonical row", orphans)
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}

	log.Info("gazetteer assembled",
		zap.Int("canonical", len(p.Canonical)),
		zap.Int("entity_map", len(p.EntityMap)),
		zap.Int64("block_keys", keyCount),
	)
	return nil
}

func (s *SQLiteStore) LoadNAICS(ctx context.Context, codes []NAICSCode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS naics",
		"CREATE TABLE naics (code TEXT PRIMARY KEY, title TEXT NOT NULL)",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: exec %.40q", stmt)
		}
	}

	ins, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO naics (code, title) VALUES (?, ?)")
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare naics insert")
	}
	defer ins.Close()
	for _, c := range codes {
		if _, err := ins.ExecContext(ctx, c.Code, c.Title); err != nil {
			return eris.Wrapf(err, "sqlite: insert naics %s", c.Code)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit naics")
}

func (s *SQLiteStore) Candidates(ctx context.Context, blockKeys []string) ([]Candidate, error) {
	if len(blockKeys) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(blockKeys)), ",")
	query := fmt.Sprintf(`
		SELECT DISTINCT
			c.id, e.entity_id, e.confidence_score,
			c.case_id, c.trade_nm, c.legal_name, c.street_addr_1_txt,
			c.cty_nm, c.st_cd, c.zip_cd, c.naic_cd
		FROM indexed_records b
		JOIN canonical c ON c.id = b.record_id
		JOIN entity_map e ON e.id = c.id
		WHERE b.block_key IN (%s)`, placeholders)

	args := make([]any, len(blockKeys))
	for i, k := range blockKeys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query candidates")
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.EntityID, &c.Confidence,
			&c.CaseID, &c.Trade, &c.Legal, &c.Street,
			&c.City, &c.State, &c.Zip, &c.NAICS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate candidates")
}

func (s *SQLiteStore) NAICSTitle(ctx context.Context, code string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, "SELECT title FROM naics WHERE code = ?", code).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: lookup naics")
	}
	return title, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'canonical'`,
	).Scan(&exists)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: check tables")
	}
	if exists == 0 {
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
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %.30q", c.query)
		}
	}

	// The lookup table is optional.
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM naics").Scan(&st.NAICSCodes); err != nil {
		st.NAICSCodes = 0
	}
	return st, nil
}

func canonicalDDL(header []string) string {
	cols := make([]string, len(header))
	for i, col := range header {
		if col == "id" {
			cols[i] = `"id" INTEGER PRIMARY KEY`
			continue
		}
		cols[i] = fmt.Sprintf("%q TEXT", col)
	}
	return fmt.Sprintf("CREATE TABLE canonical (%s)", strings.Join(cols, ", "))
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, header []string, rows [][]string) error {
	cols := make([]string, len(header))
	for i, col := range header {
		cols[i] = fmt.Sprintf("%q", col)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare %s insert", table)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(header) {
			return eris.Errorf("sqlite: %s row %d has %d fields, want %d", table, i, len(row), len(header))
		}
		args := make([]any, len(row))
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s row %d", table, i)
		}
	}
	return nil
}
