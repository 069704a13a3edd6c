// Package memory provides in-process implementations of the cargoqueue repositories.
//
// Each repository guards its own state with one mutex and never calls into another
// component while holding it, so every operation is atomic with respect to the others
// on the same repository. Data is lost when the process exits.
//
// Use it for development (DB_DRIVER=memory) and as the store behind service tests:
//
//	repos := memory.NewRepositories(memory.WithNowFunc(clock.Now))
//	queues, _ := cargoqueue.NewQueueService(
//	    cargoqueue.WithRepositories(repos.Queue, repos.Message),
//	    cargoqueue.WithLogger(&cargoqueue.NoopLogger{}),
//	    cargoqueue.WithClock(clock.Now),
//	)
package memory
