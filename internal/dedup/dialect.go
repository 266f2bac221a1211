package dedup

import (
	"fmt"
	"regexp"

	"github.com/pressly/goose/v3"
)

// Driver names accepted by DialectFor.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialect holds the DDL fragments that differ between database engines.
type Dialect struct {
	Name      string
	Serial    string // auto-increment primary key column
	Timestamp string
	UUID      string
	JSON      string
	Decimal   string
	Float     string
	Goose     goose.Dialect

	// Positional marks engines bound with "?" instead of "$N". Queries in
	// this package number their placeholders in order, each used once.
	Positional bool
}

// Postgres is the production dialect.
var Postgres = Dialect{
	Name:      DriverPostgres,
	Serial:    "BIGSERIAL PRIMARY KEY",
	Timestamp: "TIMESTAMPTZ",
	UUID:      "UUID",
	JSON:      "JSONB",
	Decimal:   "NUMERIC(18,6)",
	Float:     "DOUBLE PRECISION",
	Goose:     goose.DialectPostgres,
}

// SQLite is the embedded dialect used for local runs and tests.
// TIMESTAMP and DATE column types let the driver scan values back into time.Time.
var SQLite = Dialect{
	Name:      DriverSQLite,
	Serial:    "INTEGER PRIMARY KEY AUTOINCREMENT",
	Timestamp: "TIMESTAMP",
	UUID:      "TEXT",
	JSON:      "TEXT",
	Decimal:   "NUMERIC(18,6)",
	Float:     "REAL",
	Goose:     goose.DialectSQLite3,

	Positional: true,
}

var numbered = regexp.MustCompile(`\$[0-9]+`)

// Rebind rewrites "$N" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Positional {
		return query
	}
	return numbered.ReplaceAllLiteralString(query, "?")
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres:
		return Postgres, nil
	case DriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
