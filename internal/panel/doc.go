// Package panel serves the Web backend's live dashboard.
//
// The dashboard is a single static page embedded into the binary with
// go:embed. It connects to /ws and renders every snapshot as a table, so
// it needs no build step and no external assets. Handler can serve a
// directory instead, for editing the page without recompiling.
package panel
