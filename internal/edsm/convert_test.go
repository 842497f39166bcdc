package edsm

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/skelsey/galmarket/internal/model"
)

func TestParseProviderTime(t *testing.T) {
	t.Run("valid timestamp", func(t *testing.T) {
		got := ParseProviderTime("2026-02-01 09:30:00")
		want := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ParseProviderTime = %v, want %v", got, want)
		}
	})

	t.Run("empty and malformed return zero", func(t *testing.T) {
		if !ParseProviderTime("").IsZero() {
			t.Error("empty string should parse to zero time")
		}
		if !ParseProviderTime("yesterday").IsZero() {
			t.Error("malformed string should parse to zero time")
		}
	})
}

func TestStationsEndpoint(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-system-v1/stations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": 27,
			"name": "Sol",
			"stations": [
				{
					"id": 1, "marketId": 128023552, "name": "Abraham Lincoln",
					"type": "Orbis Starport", "distanceToArrival": 496.5,
					"haveMarket": true,
					"updateTime": {"information": "2026-02-01 08:00:00", "market": "2026-02-01 09:30:00"}
				},
				{
					"id": 2, "marketId": 0, "name": "W41-BFQ",
					"type": "Fleet Carrier", "distanceToArrival": 500.1,
					"haveMarket": true,
					"updateTime": {"market": ""}
				}
			]
		}`))
	}))

	stations, err := c.Stations(context.Background(), "Sol")
	if err != nil {
		t.Fatalf("Stations: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("len(stations) = %d, want 2", len(stations))
	}

	got := stations[0]
	if got.Name != "Abraham Lincoln" || got.Type != "Orbis Starport" {
		t.Errorf("stations[0] = %+v", got)
	}
	if got.DistanceToArrival != 496.5 {
		t.Errorf("DistanceToArrival = %v", got.DistanceToArrival)
	}
	want := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	if !got.MarketUpdatedAt.Equal(want) {
		t.Errorf("MarketUpdatedAt = %v, want %v", got.MarketUpdatedAt, want)
	}
	if !stations[1].MarketUpdatedAt.IsZero() {
		t.Error("missing market update time should be zero")
	}
}

func TestStationMarketNormalization(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-system-v1/stations/market" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("systemName") != "Sol" || q.Get("stationName") != "Abraham Lincoln" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{
			"id": 1, "marketId": 128023552, "name": "Abraham Lincoln",
			"commodities": [
				{"id": "gold", "name": "Gold", "buyPrice": 0, "sellPrice": 9401, "stock": 0, "demand": 1208},
				{"id": "silver", "name": "Silver", "buyPrice": 4500, "sellPrice": 4887, "stock": 312, "demand": 0}
			]
		}`))
	}))

	station := model.Station{
		Name:              "Abraham Lincoln",
		Type:              "Orbis Starport",
		DistanceToArrival: 496.5,
		MarketUpdatedAt:   time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
	}

	snap, err := c.StationMarket(context.Background(), "Sol", station)
	if err != nil {
		t.Fatalf("StationMarket: %v", err)
	}

	if snap.Key != (model.Key{System: "Sol", Station: "Abraham Lincoln"}) {
		t.Errorf("Key = %+v", snap.Key)
	}
	if snap.Source != model.SourceBulkDump {
		t.Errorf("Source = %s, want bulk-dump", snap.Source)
	}
	if snap.MarketID != 128023552 || snap.StationType != "Orbis Starport" {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.UpdatedAt.Equal(station.MarketUpdatedAt) {
		t.Errorf("UpdatedAt = %v, want station market time", snap.UpdatedAt)
	}
	if len(snap.Commodities) != 2 {
		t.Fatalf("len(Commodities) = %d, want 2", len(snap.Commodities))
	}
	gold := snap.Commodities[0]
	if gold.Name != "gold" || gold.Readable != "Gold" || gold.SellPrice != 9401 || gold.Demand != 1208 {
		t.Errorf("gold = %+v", gold)
	}
}

func TestSystemTrafficAndBodies(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api-system-v1/traffic":
			w.Write([]byte(`{"id": 27, "name": "Sol", "traffic": {"total": 514276, "week": 1041, "day": 120}}`))
		case "/api-system-v1/bodies":
			w.Write([]byte(`{"id": 27, "name": "Sol", "bodies": [
				{"id": 1, "name": "Sol", "type": "Star", "subType": "G (White-Yellow) Star", "distanceToArrival": 0, "isMainStar": true},
				{"id": 2, "name": "Earth", "type": "Planet", "subType": "Earth-like world", "distanceToArrival": 501}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()

	traffic, err := c.SystemTraffic(ctx, "Sol")
	if err != nil {
		t.Fatalf("SystemTraffic: %v", err)
	}
	if traffic.Total != 514276 || traffic.Day != 120 {
		t.Errorf("traffic = %+v", traffic)
	}

	bodies, err := c.SystemBodies(ctx, "Sol")
	if err != nil {
		t.Fatalf("SystemBodies: %v", err)
	}
	if len(bodies) != 2 || !bodies[0].IsMainStar || bodies[1].Name != "Earth" {
		t.Errorf("bodies = %+v", bodies)
	}
}
