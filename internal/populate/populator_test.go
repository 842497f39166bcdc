package populate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/model"
)

// fakeSource serves canned stations and markets, and can fail selectively.
type fakeSource struct {
	mu          sync.Mutex
	stations    map[string][]model.Station
	failMarkets map[string]error // "system/station" -> error
	listErr     map[string]error
	fetched     []string
}

func (f *fakeSource) Stations(_ context.Context, system string) ([]model.Station, error) {
	if err := f.listErr[system]; err != nil {
		return nil, err
	}
	return f.stations[system], nil
}

func (f *fakeSource) StationMarket(_ context.Context, system string, st model.Station) (model.MarketSnapshot, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, system+"/"+st.Name)
	f.mu.Unlock()

	if err := f.failMarkets[system+"/"+st.Name]; err != nil {
		return model.MarketSnapshot{}, err
	}
	return model.MarketSnapshot{
		Key:         model.Key{System: system, Station: st.Name},
		StationType: st.Type,
		UpdatedAt:   st.MarketUpdatedAt,
		Source:      model.SourceBulkDump,
		Commodities: []model.Commodity{{Name: "gold", SellPrice: 9000, Demand: 100}},
	}, nil
}

type recordingArchiver struct {
	mu    sync.Mutex
	snaps []model.MarketSnapshot
}

func (a *recordingArchiver) Record(snap model.MarketSnapshot) {
	a.mu.Lock()
	a.snaps = append(a.snaps, snap)
	a.mu.Unlock()
}

func station(name, typ string) model.Station {
	return model.Station{Name: name, Type: typ, MarketUpdatedAt: time.Now().UTC()}
}

func TestPopulateSystems(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		stations: map[string][]model.Station{
			"Lave": {
				station("Lave Station", "Coriolis Starport"),
				station("Warinus", "Ocellus Starport"),
				station("H9T-F0X", "Fleet Carrier"),
				station("Castellan Keep", "Odyssey Settlement"),
			},
		},
	}
	store := cache.NewMemoryStore()
	archiver := &recordingArchiver{}
	p := New(DefaultConfig(), source, store, archiver, nil)

	outcomes, err := p.PopulateSystems(ctx, []string{"Lave"})
	if err != nil {
		t.Fatalf("PopulateSystems: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("len(outcomes) = %d, want 1", len(outcomes))
	}

	got := outcomes[0]
	if got.Stations != 2 || got.Succeeded != 2 || len(got.Failures) != 0 {
		t.Errorf("outcome = %+v, want 2 eligible succeeded", got)
	}

	// Disallowed station types are never fetched.
	for _, f := range source.fetched {
		if f == "Lave/H9T-F0X" || f == "Lave/Castellan Keep" {
			t.Errorf("disallowed station fetched: %s", f)
		}
	}

	// Snapshots landed Clean and the aggregate cleared.
	state, _ := store.State(ctx, model.Key{System: "Lave", Station: "Lave Station"})
	if state != cache.Clean {
		t.Errorf("key state = %v, want Clean", state)
	}
	sys, _ := store.SystemState(ctx, "Lave")
	if sys != cache.Clean {
		t.Errorf("system state = %v, want Clean", sys)
	}

	if len(archiver.snaps) != 2 {
		t.Errorf("archived %d snapshots, want 2", len(archiver.snaps))
	}
}

func TestPopulateSystemsPartialFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		stations: map[string][]model.Station{
			"Diso": {
				station("Shifnalport", "Planetary Port"),
				station("Anderton", "Outpost"),
			},
		},
		failMarkets: map[string]error{
			"Diso/Anderton": errors.New("edsm upstream error 503"),
		},
	}
	store := cache.NewMemoryStore()
	p := New(DefaultConfig(), source, store, nil, nil)

	outcomes, err := p.PopulateSystems(ctx, []string{"Diso"})
	if err != nil {
		t.Fatalf("PopulateSystems: %v", err)
	}

	got := outcomes[0]
	if got.Succeeded != 1 || len(got.Failures) != 1 {
		t.Fatalf("outcome = %+v, want 1 success 1 failure", got)
	}
	if got.Failures[0].Station != "Anderton" {
		t.Errorf("failure station = %q", got.Failures[0].Station)
	}
	if got.Complete() {
		t.Error("outcome with failures should not be Complete")
	}

	// The good station landed; the aggregate stays un-cleared.
	state, _ := store.State(ctx, model.Key{System: "Diso", Station: "Shifnalport"})
	if state != cache.Clean {
		t.Errorf("Shifnalport state = %v, want Clean", state)
	}
	if state, _ := store.State(ctx, model.Key{System: "Diso", Station: "Anderton"}); state != cache.Unknown {
		t.Errorf("Anderton state = %v, want Unknown", state)
	}
	if sys, _ := store.SystemState(ctx, "Diso"); sys == cache.Clean {
		t.Error("system aggregate should not be Clean after a partial pass")
	}
}

func TestPopulateSystemsStationListFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		stations: map[string][]model.Station{
			"Leesti": {station("George Lucas", "Coriolis Starport")},
		},
		listErr: map[string]error{
			"Riedquat": errors.New("edsm upstream error 500"),
		},
	}
	store := cache.NewMemoryStore()
	p := New(DefaultConfig(), source, store, nil, nil)

	outcomes, err := p.PopulateSystems(ctx, []string{"Riedquat", "Leesti"})
	if err != nil {
		t.Fatalf("PopulateSystems: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2: one failure must not abort the batch", len(outcomes))
	}
	if outcomes[0].Complete() {
		t.Error("Riedquat outcome should record the list failure")
	}
	if !outcomes[1].Complete() || outcomes[1].Succeeded != 1 {
		t.Errorf("Leesti outcome = %+v", outcomes[1])
	}
}

func TestPopulateSystemsRespectsSourcePriority(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	key := model.Key{System: "Lave", Station: "Lave Station"}

	// Fresher feed data is already cached.
	feedTime := time.Now().UTC().Add(time.Hour)
	store.Put(ctx, model.MarketSnapshot{
		Key: key, Source: model.SourceFeed, UpdatedAt: feedTime,
	})

	source := &fakeSource{
		stations: map[string][]model.Station{
			"Lave": {station("Lave Station", "Coriolis Starport")},
		},
	}
	archiver := &recordingArchiver{}
	p := New(DefaultConfig(), source, store, archiver, nil)

	outcomes, _ := p.PopulateSystems(ctx, []string{"Lave"})
	got := outcomes[0]
	if got.Rejected != 1 || !got.Complete() {
		t.Errorf("outcome = %+v, want 1 rejected, complete", got)
	}

	// Rejected writes are not archived, and the feed snapshot survives.
	if len(archiver.snaps) != 0 {
		t.Errorf("archived %d snapshots, want 0", len(archiver.snaps))
	}
	snap, _, _ := store.Get(ctx, key)
	if snap.Source != model.SourceFeed {
		t.Errorf("cached source = %s, want feed", snap.Source)
	}
}

func TestPopulateSystemsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(DefaultConfig(), &fakeSource{}, cache.NewMemoryStore(), nil, nil)
	_, err := p.PopulateSystems(ctx, []string{"Lave"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
