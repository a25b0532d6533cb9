// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for
// token acquisition.
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-service",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//		MetricReader:   reader, // any go.opentelemetry.io/otel/sdk/metric Reader
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// Applications that already run their own providers pass them in through
// MeterProvider and TracerProvider instead; those providers are never shut
// down by this package. With Enabled false every instrument is a no-op.
//
// # Available Metrics
//
//   - fic.acquire.total{path, result, cache} - Token acquisitions
//   - fic.stage.calls.total{stage, status} - Requests to a token endpoint or the callback issuer
//   - fic.stage.duration{stage} - Request duration in milliseconds
//   - fic.chain.aborted.total{stage} - Exchange chains that stopped at a stage
//   - fic.retry.total{stage, status} - Retries after a throttled or unavailable answer
//   - fic.cache.entries - Tokens currently cached (observable gauge)
//
// # Traces
//
// One span is created per acquisition ("fic.acquire") and one per request to an
// issuer ("fic.stage.t1", "fic.stage.t2", "fic.stage.user", "fic.callback").
// Spans carry metadata only. Access tokens, assertions and secrets are never
// recorded, and subjects appear only as hashes.
package instrumentation
