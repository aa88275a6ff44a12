// Package mem implements an in-memory case engine, used for testing purposes.
/*
mem provides a full implementation of the [engine.Engine] interface.

Create an Engine

Since testing must be deterministic, a mem engine is created with a disabled job executor, not running a goroutine.
If a job executor is needed, it can be configured via [mem.Options].Common.JobExecutorEnabled.

	e, err := mem.New(func(o *mem.Options) {
		o.Common.EngineId = "my-mem-engine"
	})
	if err != nil {
		log.Fatalf("failed to create mem engine: %v", err)
	}

	defer e.Shutdown()

Commands are serialized by a lock. A listener must not call the engine, which notifies it, since the call would
block forever.
*/
package mem
