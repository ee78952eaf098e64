// Package websocket streams analysis events to browser clients.
//
// A Hub owns the set of connected clients and fans every published
// events.Event out to all of them. Each Client runs a read pump, which only
// watches for disconnects and heartbeats, and a write pump, which delivers
// queued messages and pings. Slow clients whose queue fills up are dropped.
package websocket
