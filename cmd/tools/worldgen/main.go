package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

func main() {
	var (
		command     = flag.String("cmd", "generate", "Command: generate, inspect, list, delete")
		size        = flag.Int("size", 64, "World edge length in voxels")
		mode        = flag.String("mode", world.ModeLandscape, "Generation mode: flat, random, landscape, perlin")
		seed        = flag.Int64("seed", 0, "Generator seed (0 = random)")
		seaLevel    = flag.Int("sea", 0, "Sea level (0 = size/2)")
		magnitude   = flag.Float64("magnitude", 32, "Terrain magnitude")
		fillRatio   = flag.Float64("fill", 0.1, "Fill ratio for random mode")
		flatLevel   = flag.Int("flat", 0, "Ground level for flat mode (0 = size/4)")
		perlinScale = flag.Float64("scale", 0.05, "Noise scale for perlin mode")
		blocksFile  = flag.String("blocks", "", "YAML file with extra block definitions")
		output      = flag.String("out", "debug.npy", "Output .npy file (file backend)")
		dataDir     = flag.String("badger", "", "BadgerDB directory; when set, worlds are stored there")
		name        = flag.String("name", "debug", "World name inside BadgerDB")
	)
	flag.Parse()

	if *command == "generate" || *command == "inspect" {
		if err := validateSize(*size); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	registry, err := block.NewDefaultRegistry()
	if err != nil {
		log.Fatalf("❌ Registry failed: %v", err)
	}
	if *blocksFile != "" {
		if err := registry.LoadDefinitions(*blocksFile); err != nil {
			log.Fatalf("❌ Block definitions failed: %v", err)
		}
	}

	switch *command {
	case "generate":
		params := world.DefaultGenerationParams(*size)
		params.Mode = *mode
		params.Magnitude = *magnitude
		params.FillRatio = *fillRatio
		params.PerlinScale = *perlinScale
		if *seaLevel != 0 {
			params.SeaLevel = *seaLevel
		}
		if *flatLevel != 0 {
			params.FlatLevel = *flatLevel
		}

		store, err := openStore(*dataDir, *name, *output)
		if err != nil {
			log.Fatalf("❌ Storage failed: %v", err)
		}
		defer store.Close()

		if err := generate(store, registry, *size, *seed, params); err != nil {
			log.Fatalf("❌ Generate failed: %v", err)
		}

	case "inspect":
		store, err := openStore(*dataDir, *name, *output)
		if err != nil {
			log.Fatalf("❌ Storage failed: %v", err)
		}
		defer store.Close()

		if err := inspect(store, registry, *size); err != nil {
			log.Fatalf("❌ Inspect failed: %v", err)
		}

	case "list":
		if err := listWorlds(*dataDir); err != nil {
			log.Fatalf("❌ List failed: %v", err)
		}

	case "delete":
		if err := deleteWorld(*dataDir, *name); err != nil {
			log.Fatalf("❌ Delete failed: %v", err)
		}

	default:
		log.Fatalf("❌ Unknown command: %s", *command)
	}
}

// validateSize проверяет ребро мира до выделения буфера size^3
func validateSize(size int) error {
	if size <= 0 || size > config.MaxWorldSize {
		return fmt.Errorf("-size must be in (0, %d], got %d", config.MaxWorldSize, size)
	}
	return nil
}

func openStore(dataDir, name, output string) (storage.WorldStore, error) {
	if dataDir == "" {
		return storage.NewFileStore(output), nil
	}
	ws, err := storage.NewWorldStorage(dataDir)
	if err != nil {
		return nil, err
	}
	return ws.Store(name), nil
}

func generate(store storage.WorldStore, registry *block.Registry, size int, seed int64, params world.GenerationParams) error {
	generator := world.NewWorldGenerator(size, registry, seed)

	start := time.Now()
	grid, err := generator.Generate(context.Background(), params)
	if err != nil {
		return err
	}
	if err := store.Save(grid); err != nil {
		return err
	}

	fmt.Printf("🌍 Generated %s world %d^3 (seed %d) in %v\n", params.Mode, size, generator.Seed, time.Since(start).Round(time.Millisecond))
	fmt.Printf("💾 Saved to %s\n", store.Location())
	printHistogram(grid, registry)
	return nil
}

func inspect(store storage.WorldStore, registry *block.Registry, size int) error {
	grid, err := store.Load(size, registry)
	if err != nil {
		return err
	}

	fmt.Printf("📦 %s: %d^3, %d voxels\n", store.Location(), grid.Size(), grid.Len())
	printHistogram(grid, registry)
	return nil
}

func listWorlds(dataDir string) error {
	if dataDir == "" {
		return fmt.Errorf("-badger directory is required")
	}
	ws, err := storage.NewWorldStorage(dataDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	worlds, err := ws.ListWorlds()
	if err != nil {
		return err
	}
	if len(worlds) == 0 {
		fmt.Println("No worlds stored")
		return nil
	}

	fmt.Printf("%-36s  %-32s  %6s  %10s  %s\n", "ID", "NAME", "SIZE", "SOLID", "UPDATED")
	for _, meta := range worlds {
		label := meta.Name
		if storage.IsQuarantined(meta.Name) {
			label += " ⚠️"
		}
		fmt.Printf("%-36s  %-32s  %6d  %10d  %s\n",
			meta.ID, label, meta.Size, meta.Solid, meta.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func deleteWorld(dataDir, name string) error {
	if dataDir == "" {
		return fmt.Errorf("-badger directory is required")
	}
	ws, err := storage.NewWorldStorage(dataDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.DeleteWorld(name); err != nil {
		return err
	}
	fmt.Printf("🗑️  Deleted %s\n", name)
	return nil
}

func printHistogram(grid *world.Grid, registry *block.Registry) {
	hist := grid.Histogram()
	ids := make([]block.BlockID, 0, len(hist))
	for id := range hist {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := float64(grid.Len())
	for _, id := range ids {
		name, ok := registry.Name(id)
		if !ok {
			name = "unknown"
		}
		share := float64(hist[id]) / total
		bar := strings.Repeat("█", int(share*40))
		fmt.Printf("  %3d %-14s %9d %6.2f%% %s\n", id, name, hist[id], share*100, bar)
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: worldgen -cmd <generate|inspect|list|delete> [flags]\n\n")
		flag.PrintDefaults()
	}
}
