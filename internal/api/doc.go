// Package api handles incoming HTTP requests: request decoding and
// validation, response formatting and the mapping of service errors to
// status codes. Realtime WebSocket traffic is served by internal/realtime.
package api
