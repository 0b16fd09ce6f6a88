package tariff

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/haulcraft/invoicemill/constants"
)

// LoadFromDB reads a tariff table (hts_code, material, declaration_required)
// into an in-memory Lookup. The table is read once; the returned Lookup never
// touches the database again.
func LoadFromDB(db *sql.DB, table string, logger *slog.Logger) (*Lookup, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = "tariff_232"
	}

	rows, err := db.Query(fmt.Sprintf("SELECT hts_code, material, declaration_required FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("query tariff table %q: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	skipped := 0
	for rows.Next() {
		var htsCode, material, declaration sql.NullString
		if err := rows.Scan(&htsCode, &material, &declaration); err != nil {
			return nil, fmt.Errorf("scan tariff row: %w", err)
		}
		m, ok := constants.Canonicalize(material.String)
		if !ok {
			skipped++
			continue
		}
		records = append(records, Record{
			HTSCode:         htsCode.String,
			Material:        m,
			DeclarationCode: parseDeclarationCode(declaration.String),
			SmeltFlag:       constants.SmeltDeclarationRequired(m),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tariff table: %w", err)
	}

	logger.Info("tariff table loaded", "table", table, "codes", len(records), "skipped", skipped)
	return NewLookup(records), nil
}

// OpenDB opens the SQLite database holding tariff and parts-master tables.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tariff database: %w", err)
	}
	return db, nil
}
