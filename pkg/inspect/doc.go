// Package inspect provides a live debugging view of a reactive runtime.
//
// A Recorder observes the runtime, counting events and buffering the most
// recent ones. A Hub streams each recorded event to WebSocket clients as
// JSON, and a Server exposes both over HTTP together with engine counters
// and Prometheus metrics.
//
//	hub := inspect.NewHub(0, nil)
//	rec := inspect.NewRecorder(0, hub)
//	rt := reactive.NewRuntime(reactive.WithObserver(rec))
//
//	go hub.Run(ctx)
//	srv := inspect.NewServer(rec, hub)
//	err := srv.ListenAndServe(ctx, "127.0.0.1:7070")
//
// The runtime itself is single-goroutine. Everything in this package is safe
// to use from the HTTP goroutines while the runtime's goroutine records.
package inspect
