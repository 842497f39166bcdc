// sellrank ranks nearby stations by the revenue of selling a cargo
// manifest, using cached market data.
//
// The manifest file has one "Name Quantity" line per commodity:
//
//	Gold 120
//	Low Temperature Diamonds 64
//
// Usage: sellrank --origin Sol --radius 40 --manifest cargo.txt
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/config"
	"github.com/skelsey/galmarket/internal/edsm"
	"github.com/skelsey/galmarket/internal/model"
	"github.com/skelsey/galmarket/internal/rank"
)

func main() {
	origin := flag.String("origin", "", "origin system name")
	radius := flag.Float64("radius", 40, "search radius in Ly")
	manifestPath := flag.String("manifest", "", "path to cargo manifest file")
	redisAddr := flag.String("redis", "localhost:6379", "redis cache address")
	providerURL := flag.String("provider", config.DefaultProviderURL, "bulk data provider URL")
	minPrice := flag.Int64("min-price", 0, "minimum sell price per unit")
	minDemand := flag.Int64("min-demand", 0, "minimum demand")
	maxAge := flag.Duration("max-age", config.DefaultMaxUpdateAge, "maximum snapshot age")
	topK := flag.Int("top", config.DefaultTopK, "number of results")
	asJSON := flag.Bool("json", false, "emit JSON instead of a table")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	if *origin == "" || *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "both --origin and --manifest are required")
		flag.Usage()
		os.Exit(2)
	}

	manifest, err := readManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read manifest: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := cache.NewRedisStore(ctx, *redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	provider := edsm.NewClient(*providerURL, edsm.WithLogger(logger))

	systems, err := provider.SystemsInSphere(ctx, *origin, *radius, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sphere lookup: %v\n", err)
		os.Exit(1)
	}

	source, err := rank.FromCache(ctx, store, systems)
	if err != nil {
		fmt.Fprintf(os.Stderr, "collect snapshots: %v\n", err)
		os.Exit(1)
	}

	candidates, err := rank.NewRanker(logger).Rank(ctx, manifest, source, rank.Filters{
		MinPrice:     *minPrice,
		MinDemand:    *minDemand,
		MaxUpdateAge: *maxAge,
		TopK:         *topK,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rank: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(candidates); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printTable(candidates)
}

// readManifest parses "Name Quantity" lines. Names may contain spaces;
// the last field is the quantity. Blank lines and '#' comments are
// skipped.
func readManifest(path string) (model.CargoManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	manifest := make(model.CargoManifest)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want \"Name Quantity\", got %q", lineNo, line)
		}

		qty, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad quantity %q", lineNo, fields[len(fields)-1])
		}
		name := strings.Join(fields[:len(fields)-1], " ")
		manifest[name] += qty
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func printTable(candidates []model.SaleCandidate) {
	if len(candidates) == 0 {
		fmt.Println("no matching stations")
		return
	}

	fmt.Printf("%-4s %-24s %-28s %10s %8s %9s %8s\n",
		"#", "SYSTEM", "STATION", "REVENUE", "JUMP", "CRUISE", "AGE")
	for i, c := range candidates {
		fmt.Printf("%-4d %-24s %-28s %10d %7.1fly %8.0fls %8s\n",
			i+1,
			c.System,
			c.Station,
			c.Revenue,
			c.JumpDistance,
			c.SupercruiseDistance,
			formatAge(c.SnapshotAge),
		)
		if len(c.Missing) > 0 {
			fmt.Printf("     missing: %s\n", strings.Join(c.Missing, ", "))
		}
	}
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
