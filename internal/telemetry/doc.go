// Package telemetry exports coolify-mcp traces and metrics over OTLP.
//
// Export is off by default. When TELEMETRY_ENABLED is set, New installs an
// SDK TracerProvider and MeterProvider as the otel globals, so the spans and
// instruments recorded by the tool dispatcher reach the configured collector:
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Both grpc and http/protobuf are supported. Plaintext export is only
// permitted to loopback endpoints.
//
// Exporter failures do not stop the adapter. The instance is marked degraded
// and the no-op providers stay in place.
//
// Tests use NewTestTelemetry, which records spans in memory and exposes a
// manual metric reader.
package telemetry
