package dataset

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// snapshotColTypes gives the typed columns their SQLite affinity; everything
// else is TEXT.
var snapshotColTypes = map[string]string{
	ColYear:     "INTEGER",
	ColMonth:    "INTEGER",
	ColHour:     "INTEGER",
	ColShooting: "INTEGER",
	ColLat:      "REAL",
	ColLong:     "REAL",
}

// WriteSnapshot persists the canonical table to a fresh SQLite file at path.
// The file is rewritten wholesale, mirroring the table's own lifecycle.
func WriteSnapshot(path string, t *Table) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	cols := t.Columns()
	var defs []string
	for _, c := range cols {
		typ := snapshotColTypes[c]
		if typ == "" {
			typ = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("%q %s", c, typ))
	}
	if _, err := db.Exec(`DROP TABLE IF EXISTS "incidents"`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE "incidents" (` + strings.Join(defs, ",") + `)`); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	var qCols []string
	for _, c := range cols {
		qCols = append(qCols, fmt.Sprintf("%q", c))
	}
	stmt, err := db.Prepare(`INSERT INTO "incidents" (` + strings.Join(qCols, ",") + `) VALUES (` + ph + `)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range t.records {
		args := snapshotArgs(&t.records[i], t.extraCols)
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_incidents_year ON incidents("YEAR")`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_district ON incidents("DISTRICT")`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_offense ON incidents("OFFENSE_DESCRIPTION")`,
	} {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

// snapshotArgs renders one record as insert arguments, nil pointers as SQL
// NULL.
func snapshotArgs(r *Record, extraCols []string) []any {
	args := make([]any, 0, 9+len(extraCols))
	if r.OccurredAt == nil {
		args = append(args, nil)
	} else {
		args = append(args, r.OccurredAt.UTC().Format(timestampLayout))
	}
	args = append(args, intArg(r.Year), intArg(r.Month), intArg(r.Hour))
	args = append(args, r.Offense, r.District, r.Shooting)
	args = append(args, floatArg(r.Lat), floatArg(r.Long))
	for _, col := range extraCols {
		args = append(args, r.Extra[col])
	}
	return args
}

func intArg(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func floatArg(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
