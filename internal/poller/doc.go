// Package poller drives the recorder: it logs into the gateway once and then
// fetches and dispatches the device list on a fixed interval.
//
// # States
//
//	Authenticating ──ok──▶ Polling ──tick──▶ Polling ...
//	      │
//	      └──error──▶ Run returns (fatal)
//
// The first tick fires immediately after login. A failed fetch is reported
// through the error handler and the next tick proceeds with the same session
// id; the session is never refreshed. Run returns nil once its context is
// cancelled.
package poller
