// Package feed consumes the live market event relay. Events arrive as
// zlib-compressed JSON envelopes over a websocket; only commodity schema
// events are consumed. Each accepted event invalidates the station's
// cache entry, and optionally writes the event's snapshot back with
// feed-source priority.
package feed
