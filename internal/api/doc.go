// Package api implements the HTTP REST API and WebSocket server of the
// Web backend.
//
// This package provides:
//   - REST endpoints returning the most recent device list
//   - WebSocket hub pushing every new device list to connected clients
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Routes
//
//	GET /api/v1/health          server status and last tick
//	GET /api/v1/devices         latest snapshot
//	GET /api/v1/devices/{id}    one device by identifier (URL-escaped)
//	GET /ws                     WebSocket, one "snapshot" message per tick
//	GET /dashboard/             live HTML table fed by /ws
//
// Until the first tick has been published the device endpoints answer
// 503 Service Unavailable.
//
// The server never talks to the gateway itself. Snapshots are handed to it
// with Publish by the recorder.
package api
