// Package realtime implements the authenticated WebSocket broadcast channel.
//
// A Handler upgrades the HTTP request and runs one Session per connection on
// the request goroutine. The Session authenticates the bearer token, records
// the Connection in the Registry and then reads frames until the transport
// fails. All outbound traffic goes through the Broadcaster, whose dispatcher
// goroutine fans each request out to recipients concurrently and evicts any
// peer whose write fails.
//
// Wire format (JSON text frames):
//
//	inbound:  {"message": "<text>"}
//	outbound: welcome | user_status | message | error | message_sent
//
// Close codes: 4001 authentication failed, 4002 session replaced,
// 1011 internal error during authentication, 1001 server shutdown.
package realtime
