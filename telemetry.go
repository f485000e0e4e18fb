package deltaskip

import (
	"context"
	"sync"
)

// skipRatioEmitter is the shape of a skip-ratio telemetry sink: called once
// per Apply with the file counts kept and seen. Mirrors the teacher
// repo's telemetryEmitter hook, specialized to this package's one metric.
type skipRatioEmitter func(ctx context.Context, kept, total int)

var (
	teleMu   sync.Mutex
	teleImpl skipRatioEmitter = func(ctx context.Context, kept, total int) {}
)

// RegisterTelemetryEmitter installs a custom skip-ratio sink (an OTel
// exporter, a test spy, ...). The default emitter is a no-op, so embedding
// this package never pulls in a metrics SDK unless the caller asks for one.
func RegisterTelemetryEmitter(fn func(ctx context.Context, kept, total int)) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, kept, total int) {}
		return
	}
	teleImpl = fn
}

// EmitSkipRatio reports how many of total files Apply kept. Called once per
// Apply call, after the selection vector is complete. A panic in the
// registered emitter is not recovered here and propagates to Apply's caller.
func EmitSkipRatio(ctx context.Context, kept, total int) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(ctx, kept, total)
}
