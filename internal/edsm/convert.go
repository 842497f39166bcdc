package edsm

import (
	"time"

	"github.com/skelsey/galmarket/internal/model"
)

// providerTimeLayout is how EDSM renders timestamps, always UTC.
const providerTimeLayout = "2006-01-02 15:04:05"

// ParseProviderTime parses an EDSM timestamp. Returns the zero time for
// empty or malformed input.
func ParseProviderTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(providerTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func toSystem(w sphereSystem) model.System {
	return model.System{
		Name:     w.Name,
		Coords:   w.Coords,
		Distance: w.Distance,
	}
}

func toStation(w wireStation) model.Station {
	return model.Station{
		Name:              w.Name,
		Type:              w.Type,
		DistanceToArrival: w.DistanceToArrival,
		MarketUpdatedAt:   ParseProviderTime(w.UpdateTime.Market),
	}
}

// toSnapshot normalizes a market response into the one canonical snapshot
// shape. The station provides type, distance, and update time; commodity
// lines keep both the provider id and the display name.
func toSnapshot(system string, st model.Station, w marketResponse) model.MarketSnapshot {
	commodities := make([]model.Commodity, 0, len(w.Commodities))
	for _, c := range w.Commodities {
		commodities = append(commodities, model.Commodity{
			Name:      c.ID,
			Readable:  c.Name,
			BuyPrice:  c.BuyPrice,
			SellPrice: c.SellPrice,
			Stock:     c.Stock,
			Demand:    c.Demand,
		})
	}

	return model.MarketSnapshot{
		Key:               model.Key{System: system, Station: st.Name},
		MarketID:          w.MarketID,
		StationType:       st.Type,
		DistanceToArrival: st.DistanceToArrival,
		UpdatedAt:         st.MarketUpdatedAt,
		Source:            model.SourceBulkDump,
		Commodities:       commodities,
	}
}
