// Package managed models an attachable, garbage-collected host runtime: the
// side of the bridge that owns the native data-channel object.
//
// A [VM] only services goroutines that have been attached to it, each of
// which receives an [Env]. An Env is bound to its goroutine, and becomes
// stale once detached. Native methods are looked up once, by name and exact
// signature (see [Resolve]), and may only be invoked through a valid Env (see
// [Method.Bind]).
//
// [VM] implements [envmgr.Runtime], so attachment is normally driven by an
// [envmgr.Manager].
package managed
