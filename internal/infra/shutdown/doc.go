// Package shutdown coordinates signal handling and cleanup for a run.
//
// SIGINT and SIGTERM cancel the run context; the registered hooks (closing
// sinks, removing scratch space) then run once, in reverse order, under a
// timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	ctx, stop := h.Context(context.Background())
//	defer stop()
//	h.OnShutdown(func(ctx context.Context) error { return sink.Close() })
//	defer h.Shutdown()
package shutdown
