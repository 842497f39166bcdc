package edsm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/skelsey/galmarket/internal/model"
)

// coordinateBatchSize is the provider's cap on names per lookup call.
const coordinateBatchSize = 100

// SystemCoordinates resolves coordinates for a list of system names,
// splitting into provider-sized batches.
func (c *Client) SystemCoordinates(ctx context.Context, names []string) ([]model.System, error) {
	var out []model.System

	for start := 0; start < len(names); start += coordinateBatchSize {
		end := start + coordinateBatchSize
		if end > len(names) {
			end = len(names)
		}

		query := url.Values{}
		query.Set("showCoordinates", "1")
		for _, name := range names[start:end] {
			query.Add("systemName[]", name)
		}

		var resp []coordSystem
		if err := c.get(ctx, "/api-v1/systems", query, &resp); err != nil {
			return nil, fmt.Errorf("get system coordinates: %w", err)
		}

		for _, w := range resp {
			out = append(out, model.System{Name: w.Name, Coords: w.Coords})
		}
	}

	return out, nil
}

// SystemsInSphere returns systems within radius of a named system, with
// distances from it. Results are memoized briefly; repeated scans of the
// same region hit the provider once.
func (c *Client) SystemsInSphere(ctx context.Context, origin string, radius, minRadius float64) ([]model.System, error) {
	cacheKey := fmt.Sprintf("name|%s|%g|%g", origin, radius, minRadius)
	if cached, ok := c.sphereCache.Get(cacheKey); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("systemName", origin)
	query.Set("radius", formatFloat(radius))
	query.Set("minRadius", formatFloat(minRadius))
	query.Set("showCoordinates", "1")

	systems, err := c.fetchSphere(ctx, "/api-v1/sphere-systems", query)
	if err != nil {
		return nil, err
	}
	c.sphereCache.Add(cacheKey, systems)
	return systems, nil
}

// SystemsInSphereAt is SystemsInSphere anchored at raw coordinates.
func (c *Client) SystemsInSphereAt(ctx context.Context, center model.Coords, radius float64) ([]model.System, error) {
	cacheKey := fmt.Sprintf("coords|%g|%g|%g|%g", center.X, center.Y, center.Z, radius)
	if cached, ok := c.sphereCache.Get(cacheKey); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("x", formatFloat(center.X))
	query.Set("y", formatFloat(center.Y))
	query.Set("z", formatFloat(center.Z))
	query.Set("radius", formatFloat(radius))
	query.Set("showCoordinates", "1")

	systems, err := c.fetchSphere(ctx, "/api-v1/sphere-systems", query)
	if err != nil {
		return nil, err
	}
	c.sphereCache.Add(cacheKey, systems)
	return systems, nil
}

// SystemsInCube returns systems inside a cube of the given edge length
// centered on the coordinates.
func (c *Client) SystemsInCube(ctx context.Context, center model.Coords, size float64) ([]model.System, error) {
	query := url.Values{}
	query.Set("x", formatFloat(center.X))
	query.Set("y", formatFloat(center.Y))
	query.Set("z", formatFloat(center.Z))
	query.Set("size", formatFloat(size))
	query.Set("showCoordinates", "1")

	return c.fetchSphere(ctx, "/api-v1/cube-systems", query)
}

func (c *Client) fetchSphere(ctx context.Context, path string, query url.Values) ([]model.System, error) {
	var resp []sphereSystem
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get systems: %w", err)
	}

	systems := make([]model.System, 0, len(resp))
	for _, w := range resp {
		systems = append(systems, toSystem(w))
	}
	return systems, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
