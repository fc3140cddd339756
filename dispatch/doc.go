// Package dispatch implements the background worker that delivers asynchronous
// events for tidings handlers.
//
// Design decisions:
//   - Explicit instance: a Dispatcher is constructed with New and injected into
//     handlers; running a single one per process is left to the application
//   - Lazy start: the worker goroutine starts on the first Register and stops on Stop
//   - Single writer: only the worker goroutine mutates the set of active subscribers;
//     registrations land in a separate pending buffer that the worker merges between passes
//   - Coalescing wake-up: producers signal a channel of capacity one, so any number of
//     wake-ups before the next pass collapse into one pass
//   - Fault isolation: a panicking subscriber is recovered, logged and counted, it never
//     takes the worker down
//   - Bounded shutdown: Stop waits a grace period, cancels the subscriber context, waits a
//     second shorter period and then abandons the worker, reporting ErrWorkerAbandoned
//
// Run loop:
//
//	for {
//	    for each active subscriber: ForwardEvents   // stop flag checked between subscribers
//	    merge pending registrations into the active set
//	    wait for wake-up | stop | optional idle interval
//	}
//
// Example usage:
//
//	d := dispatch.New(dispatch.WithLogger(logger))
//	defer d.Stop(context.Background())
//
//	h := tidings.HandleFunc(d, func(ctx context.Context, sender any, n int) error {
//	    fmt.Println(n)
//	    return nil
//	})
package dispatch
