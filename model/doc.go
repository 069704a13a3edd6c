// Package model contains the domain models of the queue system: queues, messages
// and fan-out topics, together with the business rules that govern them.
package model

// tablePrefix is the default prefix of every table created by the embedded migrations.
const tablePrefix = "cargo_"
