package model

import (
	"fmt"
	"math"
	"time"
)

// -----------------------------------------------------------------------------
// Spatial Types
// -----------------------------------------------------------------------------

// Coords is a position in the galaxy, in light years.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the straight-line distance to another position.
func (c Coords) DistanceTo(o Coords) float64 {
	dx := c.X - o.X
	dy := c.Y - o.Y
	dz := c.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// System is a star system as returned by the data provider.
// Immutable once fetched.
type System struct {
	Name     string  `json:"name"`     // Unique system name
	Coords   Coords  `json:"coords"`   // Galactic coordinates
	Distance float64 `json:"distance"` // Distance from the query origin (Ly)
}

// Station is a dockable market point inside a system.
type Station struct {
	Name              string    `json:"name"`              // Unique within its system
	Type              string    `json:"type"`              // e.g. "Coriolis Starport", "Fleet Carrier"
	DistanceToArrival float64   `json:"distanceToArrival"` // Supercruise distance (Ls)
	MarketUpdatedAt   time.Time `json:"marketUpdatedAt"`   // Last market update reported by the provider
}

// -----------------------------------------------------------------------------
// Market Types
// -----------------------------------------------------------------------------

// Source tags where a snapshot came from. Feed data wins conflicts against
// bulk dumps unless the dump is strictly newer.
type Source string

const (
	SourceFeed     Source = "feed"
	SourceBulkDump Source = "bulk-dump"
)

// Key identifies a market: one station in one system.
type Key struct {
	System  string `json:"system"`
	Station string `json:"station"`
}

// String renders the key for logging and storage.
func (k Key) String() string {
	return fmt.Sprintf("%s\x1f%s", k.System, k.Station)
}

// Commodity is one line of a station's market.
type Commodity struct {
	Name      string `json:"name"`               // Provider identifier (lowercase)
	Readable  string `json:"readable,omitempty"` // Display name, when the provider gives one
	BuyPrice  int64  `json:"buyPrice"`
	SellPrice int64  `json:"sellPrice"`
	Stock     int64  `json:"stock"`
	Demand    int64  `json:"demand"`
}

// MarketSnapshot is the canonical shape for a station's market data.
// Every ingest path normalizes to this at the cache-write boundary.
type MarketSnapshot struct {
	Key               Key         `json:"key"`
	MarketID          int64       `json:"marketId,omitempty"`
	StationType       string      `json:"stationType"`
	DistanceToArrival float64     `json:"distanceToArrival"`
	UpdatedAt         time.Time   `json:"updatedAt"`
	Source            Source      `json:"source"`
	Commodities       []Commodity `json:"commodities"`
}

// Age returns how stale the snapshot is relative to now.
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}

// -----------------------------------------------------------------------------
// Sale Types
// -----------------------------------------------------------------------------

// CargoManifest maps commodity display names to quantities.
type CargoManifest map[string]int

// Validate rejects manifests with non-positive quantities or empty names.
func (m CargoManifest) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("manifest is empty")
	}
	for name, qty := range m {
		if name == "" {
			return fmt.Errorf("manifest has an empty commodity name")
		}
		if qty <= 0 {
			return fmt.Errorf("manifest quantity for %q must be positive, got %d", name, qty)
		}
	}
	return nil
}

// MatchedCommodity is one manifest line priced against a snapshot.
type MatchedCommodity struct {
	Name      string `json:"name"`
	SellPrice int64  `json:"sellPrice"`
	Demand    int64  `json:"demand"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"` // SellPrice * Quantity
}

// SaleCandidate is a ranked station with its hypothetical sale breakdown.
// Computed on demand, never persisted.
type SaleCandidate struct {
	System              string             `json:"system"`
	Station             string             `json:"station"`
	StationType         string             `json:"stationType"`
	JumpDistance        float64            `json:"jumpDistance"`        // Ly from the query origin
	SupercruiseDistance float64            `json:"supercruiseDistance"` // Ls to the station
	SnapshotAge         time.Duration      `json:"snapshotAge"`
	Revenue             int64              `json:"revenue"`
	Matched             []MatchedCommodity `json:"matched"`
	Missing             []string           `json:"missing"`
}
