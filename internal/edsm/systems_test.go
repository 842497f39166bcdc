package edsm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/skelsey/galmarket/internal/model"
)

func TestSystemCoordinatesBatching(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api-v1/systems" {
			t.Errorf("path = %s", r.URL.Path)
		}
		names := r.URL.Query()["systemName[]"]
		if len(names) > 100 {
			t.Errorf("batch size = %d, want <= 100", len(names))
		}

		out := make([]map[string]any, len(names))
		for i, n := range names {
			out[i] = map[string]any{
				"name":   n,
				"coords": map[string]float64{"x": float64(i), "y": 0, "z": 0},
			}
		}
		json.NewEncoder(w).Encode(out)
	}))

	names := make([]string, 250)
	for i := range names {
		names[i] = fmt.Sprintf("System %d", i)
	}

	systems, err := c.SystemCoordinates(context.Background(), names)
	if err != nil {
		t.Fatalf("SystemCoordinates: %v", err)
	}
	if len(systems) != 250 {
		t.Errorf("len(systems) = %d, want 250", len(systems))
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 batches", calls.Load())
	}
	if systems[0].Name != "System 0" {
		t.Errorf("systems[0].Name = %q", systems[0].Name)
	}
}

func TestSystemsInSphere(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("systemName") != "Sol" {
			t.Errorf("query = %v", q)
		}
		// The first call carries radius 50; the later radius-30 query below
		// exercises a separate memoization key.
		if calls.Load() == 1 && q.Get("radius") != "50" {
			t.Errorf("query = %v", q)
		}
		if calls.Load() == 2 && q.Get("radius") != "30" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`[
			{"name": "Sol", "distance": 0, "coords": {"x": 0, "y": 0, "z": 0}},
			{"name": "Alpha Centauri", "distance": 4.38, "coords": {"x": 3.03, "y": -0.09, "z": 3.15}}
		]`))
	}))

	ctx := context.Background()
	systems, err := c.SystemsInSphere(ctx, "Sol", 50, 0)
	if err != nil {
		t.Fatalf("SystemsInSphere: %v", err)
	}
	if len(systems) != 2 {
		t.Fatalf("len(systems) = %d, want 2", len(systems))
	}
	if systems[1].Name != "Alpha Centauri" || systems[1].Distance != 4.38 {
		t.Errorf("systems[1] = %+v", systems[1])
	}

	// Second identical query is memoized.
	if _, err := c.SystemsInSphere(ctx, "Sol", 50, 0); err != nil {
		t.Fatalf("SystemsInSphere (cached): %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (memoized)", calls.Load())
	}

	// A different radius is a different region.
	if _, err := c.SystemsInSphere(ctx, "Sol", 30, 0); err != nil {
		t.Fatalf("SystemsInSphere (new radius): %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSystemsInCube(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-v1/cube-systems" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("size") != "20" || q.Get("x") != "1.5" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`[{"name": "Barnard's Star", "distance": 5.95, "coords": {"x": -3.03, "y": 1.63, "z": 4.06}}]`))
	}))

	systems, err := c.SystemsInCube(context.Background(), model.Coords{X: 1.5}, 20)
	if err != nil {
		t.Fatalf("SystemsInCube: %v", err)
	}
	if len(systems) != 1 || systems[0].Name != "Barnard's Star" {
		t.Errorf("systems = %+v", systems)
	}
}
