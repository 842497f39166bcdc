package edsm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/skelsey/galmarket/internal/model"
)

// Stations fetches the station list for a system. Type filtering is left
// to callers; the populator applies the configured disallowed set.
func (c *Client) Stations(ctx context.Context, system string) ([]model.Station, error) {
	query := url.Values{}
	query.Set("systemName", system)

	var resp stationsResponse
	if err := c.get(ctx, "/api-system-v1/stations", query, &resp); err != nil {
		return nil, fmt.Errorf("get stations %s: %w", system, err)
	}

	stations := make([]model.Station, 0, len(resp.Stations))
	for _, w := range resp.Stations {
		stations = append(stations, toStation(w))
	}
	return stations, nil
}

// StationMarket fetches one station's market and normalizes it into the
// canonical snapshot shape, tagged bulk-dump.
func (c *Client) StationMarket(ctx context.Context, system string, station model.Station) (model.MarketSnapshot, error) {
	query := url.Values{}
	query.Set("systemName", system)
	query.Set("stationName", station.Name)

	var resp marketResponse
	if err := c.get(ctx, "/api-system-v1/stations/market", query, &resp); err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("get market %s/%s: %w", system, station.Name, err)
	}

	return toSnapshot(system, station, resp), nil
}

// SystemTraffic fetches the ship traffic report for a system.
func (c *Client) SystemTraffic(ctx context.Context, system string) (*Traffic, error) {
	query := url.Values{}
	query.Set("systemName", system)

	var resp trafficResponse
	if err := c.get(ctx, "/api-system-v1/traffic", query, &resp); err != nil {
		return nil, fmt.Errorf("get traffic %s: %w", system, err)
	}
	return &resp.Traffic, nil
}

// SystemBodies fetches the celestial bodies of a system.
func (c *Client) SystemBodies(ctx context.Context, system string) ([]Body, error) {
	query := url.Values{}
	query.Set("systemName", system)

	var resp bodiesResponse
	if err := c.get(ctx, "/api-system-v1/bodies", query, &resp); err != nil {
		return nil, fmt.Errorf("get bodies %s: %w", system, err)
	}
	return resp.Bodies, nil
}
