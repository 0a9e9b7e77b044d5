// Package envmgr attaches goroutines to a managed runtime on demand, and
// detaches them again once they are no longer needed.
//
// # Overview
//
// A managed runtime (see [Runtime]) only accepts calls from threads that have
// been attached to it. [Manager.Env] is the accessor native code calls before
// touching the runtime: it returns the existing environment if the calling
// goroutine is already attached, otherwise it attaches the goroutine and
// arranges for it to be detached automatically when the goroutine exits.
//
// Go has no thread-local destructors, so exit detection is performed by a
// reaper, started at most once per [Manager], which periodically compares the
// tracked goroutines against the set of goroutines that still exist (see
// [Manager.Sweep]). Goroutine ids are never reused, which makes the
// comparison exact.
//
// Code that wants deterministic teardown uses [Manager.Attach], which returns a
// scoped [Guard], or [Manager.Go], which runs a function on a dedicated,
// OS-thread locked goroutine that is attached for exactly the lifetime of the
// function.
//
// # Thread Safety
//
// All [Manager] methods are safe for concurrent use. A [Guard] belongs to the
// goroutine that created it.
package envmgr
