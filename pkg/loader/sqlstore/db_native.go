//go:build !cgo_sqlite

package sqlstore

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite"

func openDB(dataSource string) (*sql.DB, error) {
	return sql.Open(DriverName, dataSource)
}
