// Package shutdown runs named cleanup hooks in reverse registration order
// when the process receives SIGINT or SIGTERM, or when shutdown is
// triggered programmatically (for example by a failed listener).
//
// Usage:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("redis listener", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
