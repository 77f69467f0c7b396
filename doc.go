// Package taper is an embeddable structured logging engine with batched
// file persistence, size and date based rotation, and correlation id
// propagation.
//
// Records are leveled, timestamped JSON objects with flat metadata. Every
// record is dispatched twice: rendered for the console when interactive,
// and queued for the daily log file, where batches are appended
// asynchronously and the active file rotates into a numbered backup chain
// as it grows.
//
// # Features
//
//   - Six ordered levels (error, warn, info, http, debug, trace)
//   - NDJSON file persistence with batched, asynchronous appends
//   - Daily file naming plus size-triggered numbered rotation
//   - Age-based retention sweeps and optional gzip compression
//   - Correlation ids carried through context.Context (see the correlation
//     subpackage) with an HTTP middleware adapter
//   - Child loggers with hierarchical context tags
//   - Styled console output that degrades cleanly without a terminal
//   - Aggregation, filtering, and export of persisted logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Engine]
// serializes configuration changes behind a mutex, the [BufferedWriter]
// swaps its queue atomically per flush, and [Logger] handles are immutable.
//
// # Basic Usage
//
// Construct the engine once at the composition root:
//
//	engine, err := taper.New(taper.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	engine.Info("server started", "port", 8080)
//	engine.Error("request failed", "error", err.Error())
//
// Code that cannot reach the composition root can use the process engine
// through [Default] or the package-level helpers, which construct it with
// defaults on first use. Only one engine exists per process; a second [New]
// fails with [ErrAlreadyConstructed] until [Reset] tears the first down.
//
// # Configuration
//
// Reconfigure at runtime with a [Patch]; nil fields keep their current
// values and invalid values are skipped per key:
//
//	level := taper.LevelDebug
//	pretty := true
//	engine.Configure(taper.Patch{
//	    Level: &level,
//	    File:  &taper.FilePatch{PrettyPrint: &pretty},
//	})
//
// # Correlation
//
// Bind an id for the extent of an operation and log with the Context
// variants:
//
//	err := correlation.Run(ctx, correlation.NewID(), func(ctx context.Context) error {
//	    engine.InfoContext(ctx, "payment accepted", "amount", 1200)
//	    return process(ctx)
//	})
//
// Child loggers tag a subsystem and may fix an id outright:
//
//	api := engine.Child("api")
//	auth := api.Child("auth")                  // records carry context "api:auth"
//	job := engine.Child("jobs", taper.WithCorrelationID(correlation.NewID()))
//
// # Rotation
//
// The active file is {prefix}-{YYYY-MM-DD}.log under the configured
// directory. Crossing midnight switches to the new day's file. When a write
// would push the active file past rotation.MaxSize, backups shift up
// (.1 becomes .2, and so on), the active file becomes .1, and files older
// than rotation.MaxAge are swept. With rotation.Compress set, backups are
// gzipped in the background.
//
// # Shutdown
//
// Close drains the queue synchronously, so the usual defer suffices. For
// processes that may be signalled or panic, install the extra hooks:
//
//	engine.HandleSignals()        // SIGINT, SIGTERM: drain, then exit 128+N
//	defer engine.ExitOnPanic()    // log the panic, drain, exit 1
//
// # Inspecting Logs
//
// The taper command reads the files this package writes: "taper view"
// filters and pretty-prints, "taper tail" follows the active file across
// rotations, "taper export" converts to JSON, text, or CSV, and
// "taper sweep" applies the retention policy on demand.
package taper
