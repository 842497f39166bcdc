// Package edsm provides the rate-limited client for the EDSM data provider.
//
// Endpoints used:
//   - /api-v1/systems           batch coordinate lookup (<=100 names/call)
//   - /api-v1/sphere-systems    systems within a sphere (name or coordinates)
//   - /api-v1/cube-systems      systems within a cube
//   - /api-system-v1/stations   station list for a system
//   - /api-system-v1/stations/market  market data for one station
//   - /api-system-v1/traffic    traffic report
//   - /api-system-v1/bodies     celestial bodies
//
// Every request goes through the throttling wrapper: rate-limit headers
// drive pacing sleeps after success, Retry-After plus a preroll of request
// intervals drives the 429 path, and other transient failures use jittered
// exponential backoff within a bounded attempt budget.
package edsm
