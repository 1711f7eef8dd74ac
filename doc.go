// Package chronote is the composition root for the chronote demo.
//
// A chronote is a tiny note taking component that saves its whole collection
// of notes after every addition. The save is simulated CPU-bound work, and the
// interesting part is how it is scheduled on a single-threaded event loop:
//
//   - sync: the work blocks the current task.
//   - setTimeout / setTimeoutByParts: the work moves to new macrotasks, whole
//     or chunked so other tasks run in between.
//   - awaitedPromise: the work runs as a microtask and is awaited.
//   - unawaited*: the work is started but not awaited, so the measured latency
//     misses it.
//   - instant: no work at all.
//
// Every save reports a timing measurement and a trace of its milestones on an
// event bus, so the strategies can be compared from the CLI, the TUI or a
// websocket client.
//
// Usage:
//
//	app, err := chronote.New(
//		chronote.WithStore(chronote.KindSetTimeoutByParts),
//		chronote.WithParts(4),
//	)
//	app.Start(ctx)
//	err = app.Submit("buy milk").Wait(ctx)
package chronote
