//go:build cgo_sqlite

package sqlstore

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite3"

func openDB(dataSource string) (*sql.DB, error) {
	return sql.Open(DriverName, dataSource)
}
