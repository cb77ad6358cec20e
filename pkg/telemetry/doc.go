// Package telemetry exports reactive engine activity to Prometheus and
// OpenTelemetry.
//
// Both exporters are reactive.Observer implementations and are attached with
// reactive.WithObserver:
//
//	rt := reactive.NewRuntime(
//	    reactive.WithObserver(telemetry.NewMetrics()),
//	    reactive.WithObserver(telemetry.NewTracer()),
//	)
//
// Observers run synchronously on the engine's goroutine, so both keep their
// per-event work small.
package telemetry
