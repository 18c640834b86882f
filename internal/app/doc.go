// Package app provides the hub's use cases.
//
// Dispatcher interprets inbound messages (client updates and admin commands). Sweeper
// evicts stale connections and Publisher fans out per-room aggregates, each on its own
// clock-driven loop. Depends on narrow interfaces over the registry and broadcast engine.
package app
