package sqlite

import (
	"database/sql"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver with sqlite-vec compiled in.
const DriverName = "sqlite3_vec"

func init() {
	// Registers sqlite-vec as an auto extension for every new connection.
	sqlitevec.Auto()

	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
			return err
		},
	})
}
