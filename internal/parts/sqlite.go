package parts

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/haulcraft/invoicemill/constants"
)

// SQLiteRepository serves ratio profiles from a parts_master table. Rows are
// loaded once and cached; lookups after that are pure map reads, so the
// repository is safe for concurrent use across document pipelines.
type SQLiteRepository struct {
	logger *slog.Logger

	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewSQLiteRepository loads the parts master from db. The expected columns
// mirror the master schema: part_number, hts_code, qty_unit, the six ratio
// columns, and the three country-of-origin columns.
func NewSQLiteRepository(db *sql.DB, table string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = "parts_master"
	}

	query := fmt.Sprintf(`SELECT part_number, hts_code, qty_unit,
		steel_ratio, aluminum_ratio, copper_ratio, wood_ratio, auto_ratio, non_steel_ratio,
		country_of_melt, country_of_cast, country_of_smelt
		FROM %s`, table)

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query parts table %q: %w", table, err)
	}
	defer rows.Close()

	profiles := make(map[string]Profile)
	for rows.Next() {
		var part, hts, unit, melt, cast, smelt sql.NullString
		var steel, aluminum, copper, wood, auto, nonSteel sql.NullFloat64
		if err := rows.Scan(&part, &hts, &unit,
			&steel, &aluminum, &copper, &wood, &auto, &nonSteel,
			&melt, &cast, &smelt); err != nil {
			return nil, fmt.Errorf("scan parts row: %w", err)
		}
		key := normalizePart(part.String)
		if key == "" {
			continue
		}
		p := Profile{
			PartNumber:     strings.TrimSpace(part.String),
			HTSCode:        strings.TrimSpace(hts.String),
			QtyUnit:        strings.TrimSpace(unit.String),
			Ratios:         map[constants.Material]float64{},
			CountryOfMelt:  strings.TrimSpace(melt.String),
			CountryOfCast:  strings.TrimSpace(cast.String),
			CountryOfSmelt: strings.TrimSpace(smelt.String),
			Found:          true,
		}
		setRatio(p.Ratios, constants.Steel, steel)
		setRatio(p.Ratios, constants.Aluminum, aluminum)
		setRatio(p.Ratios, constants.Copper, copper)
		setRatio(p.Ratios, constants.Wood, wood)
		setRatio(p.Ratios, constants.Automotive, auto)
		setRatio(p.Ratios, constants.NonQualifying, nonSteel)
		profiles[key] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts table: %w", err)
	}

	logger.Info("parts master loaded", "table", table, "parts", len(profiles))
	return &SQLiteRepository{logger: logger, profiles: profiles}, nil
}

// LookupProfile returns the profile for a part number, or the 100%
// non-qualifying default when the part is not in the master.
func (r *SQLiteRepository) LookupProfile(partNumber string) Profile {
	r.mu.RLock()
	p, ok := r.profiles[normalizePart(partNumber)]
	r.mu.RUnlock()
	if !ok {
		return DefaultProfile(partNumber)
	}
	return p
}

// Put inserts or replaces a cached profile. Used by callers that apply manual
// corrections without reloading the whole master.
func (r *SQLiteRepository) Put(p Profile) {
	key := normalizePart(p.PartNumber)
	if key == "" {
		return
	}
	p.Found = true
	r.mu.Lock()
	r.profiles[key] = p
	r.mu.Unlock()
}

func (r *SQLiteRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

func normalizePart(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func setRatio(ratios map[constants.Material]float64, m constants.Material, v sql.NullFloat64) {
	if v.Valid && v.Float64 > 0 {
		ratios[m] = v.Float64
	}
}
