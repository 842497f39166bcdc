// Package model defines shared data types used across galmarket.
//
// Conventions:
//   - Prices: integer credits per unit
//   - Jump distances: light years; in-system distances: light seconds
//   - Timestamps: time.Time in UTC
//   - Commodity names: lowercase provider identifiers; display names kept
//     separately as Readable
package model
