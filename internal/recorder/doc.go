// Package recorder fans every polled device snapshot out to the enabled
// recording backends.
//
// # Backends
//
// A backend type is described by a Kind: its name (which is also its
// configuration section), a Register function adding its defaults to the
// configuration store, and an Open function constructing it from its
// merged settings. The set of enabled kinds is decided once at startup
// from the Base.backends list; names are matched case-sensitively and an
// unknown name fails with *UnknownBackendError.
//
// # Dispatch
//
//	Dispatch(tick, snap)
//	   ├── go: lock(Console) → Log → unlock
//	   ├── go: lock(Csv)     → Log → unlock
//	   └── go: lock(MQTT)    → Log → unlock
//
// Dispatch does not wait. Each backend is guarded by its own mutex so a slow
// backend serialises its own ticks while the others proceed. A failing or
// panicking backend is reported through the error handler as a
// *BackendError and affects nothing else.
package recorder
