// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package implements the three cargoqueue repository interfaces over MySQL,
// PostgreSQL and SQLite:
//   - QueueRepository
//   - MessageRepository (including the compare-and-set claim)
//   - TopicRepository (topics plus their topic_queue links)
//
// Times are written in UTC. MySQL connections need parseTime=true.
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    cargoqueue "github.com/dayemsiddiqui/cargo-queue"
//	    "github.com/dayemsiddiqui/cargo-queue/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/cargo?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// driverName should be "mysql", "postgres", or "sqlite3"
//	repos := relica.NewRepositories(db, "mysql")
//
//	queues, err := cargoqueue.NewQueueService(
//	    cargoqueue.WithRepositories(repos.Queue, repos.Message),
//	    cargoqueue.WithLogger(logger),
//	)
package relica
