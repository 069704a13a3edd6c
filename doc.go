// Package cargoqueue provides a lightweight message queue with topic fan-out,
// usable as an embedded library or as the standalone cargoq-server.
//
// Clients create named queues, send message bodies, poll for the oldest unprocessed
// message, acknowledge processed messages, and publish to topics that copy a message
// into every target queue. A per-queue retention period expires messages automatically.
//
// # Quick Start
//
// # Option 1: As Embedded Library
//
// Apply the embedded migrations and build the services over the Relica adapters:
//
//	import (
//	    "database/sql"
//	    cargoqueue "github.com/dayemsiddiqui/cargo-queue"
//	    "github.com/dayemsiddiqui/cargo-queue/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, _ := sql.Open("sqlite3", "cargo.db")
//	if err := cargoqueue.ApplyMigrations(ctx, db, "sqlite3"); err != nil {
//	    log.Fatal(err)
//	}
//
//	repos := relica.NewRepositories(db, "sqlite3")
//
//	queues, _ := cargoqueue.NewQueueService(
//	    cargoqueue.WithRepositories(repos.Queue, repos.Message),
//	    cargoqueue.WithLogger(logger),
//	)
//	topics, _ := cargoqueue.NewTopicService(
//	    cargoqueue.WithTopicRepositories(repos.Topic, queues),
//	    cargoqueue.WithTopicLogger(logger),
//	)
//
// Send, poll and acknowledge:
//
//	q, _ := queues.CreateQueue(ctx, "Orders", nil)
//	queues.SendMessage(ctx, q.Slug, "first")
//	msg, _ := queues.PollMessage(ctx, "orders") // nil when the queue is empty
//	queues.AcknowledgeMessage(ctx, msg.ID)
//
// For development and tests, adapters/memory provides the same repositories in-process.
//
// # Option 2: As Standalone Service
//
//	cargoq-server migrate
//	cargoq-server serve
//
//	curl -X POST http://localhost:8080/queues -d '{"name":"Orders","retentionPeriod":3600}'
//	curl -X POST http://localhost:8080/queues/orders/messages -d '{"message":"hello"}'
//	curl http://localhost:8080/queues/orders/messages
//
// # Delivery Semantics
//
// Messages of one queue are returned oldest first (created_at, then id). Poll does not
// hide the message it returns: two consumers polling the same queue before either
// acknowledges will both receive it. ClaimMessage is the atomic alternative; it hides
// the message for a visibility window with a single compare-and-set.
//
// Acknowledge flips processed to true once and never back. Topic publish writes to
// every target concurrently; a failed target fails the publish without removing the
// copies already written elsewhere.
//
// # Expiry
//
// A queue's retention period stamps each new message with expires_at = now + period.
// Changing the period rewrites expires_at of every message in the queue. Expired
// messages are removed by the ExpirySweeper, not at read time.
//
// # Database Schema
//
//	cargo_queue        - Queues (unique name and slug)
//	cargo_message      - Messages with processing state and expiry
//	cargo_topic        - Topics
//	cargo_topic_queue  - Topic target queues
//
// Supports MySQL, PostgreSQL, and SQLite via Relica adapters.
package cargoqueue
