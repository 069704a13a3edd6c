package relica

import (
	"database/sql"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
)

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "cargo_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *cargoqueue.Repositories {
	return NewRepositoriesWithPrefix(db, driverName, cargoqueue.DefaultTablePrefix)
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *cargoqueue.Repositories {
	return &cargoqueue.Repositories{
		Queue:   NewQueueRepositoryWithPrefix(db, driverName, prefix),
		Message: NewMessageRepositoryWithPrefix(db, driverName, prefix),
		Topic:   NewTopicRepositoryWithPrefix(db, driverName, prefix),
	}
}
