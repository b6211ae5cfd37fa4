// Package aha is the client for the gateway's home automation HTTP
// interface (AHA).
//
// It covers the two calls the recorder needs:
//
//   - Authenticate: the challenge-response login on /login_sid.lua
//   - DeviceList: getdevicelistinfos on /webservices/homeautoswitch.lua
//
// # Login protocol
//
//	GET /login_sid.lua                       → SessionInfo{SID=0000000000000000, Challenge=C}
//	response = C + "-" + md5(UTF-16LE(C + "-" + password))
//	GET /login_sid.lua?username=U&response=R → SessionInfo{SID=<session>, Rights=...}
//
// If the first answer already carries a session id it is returned as is.
// A session without the HomeAuto right is rejected.
//
// The client performs no retries and caches nothing; every Authenticate
// call is a fresh handshake.
package aha
