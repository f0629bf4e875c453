package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/seaisle/internal/config"
	"github.com/udisondev/seaisle/internal/db"
	"github.com/udisondev/seaisle/internal/game/island"
)

const ConfigPath = "config/islandtool.yaml"

const usage = `usage: islandtool <command> [args]

commands:
  build                      load every configured island and report its maps
  route <sx> <sz> <dx> <dz>  print the next waypoint of a ship moving src -> dst
  depth <x> <z>              print the sea floor height at a point
  graph <island>             print an island's navigation graph as GeoJSON
  stored                     list depth maps kept in the database`

var errUsage = errors.New(usage)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cfgPath := ConfigPath
	if p := os.Getenv("SEAISLE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadIslandTool(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr so command output on stdout stays machine readable.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	loader := &island.Loader{
		Root:     cfg.ResourceDir,
		GridSize: cfg.DepthMapSize,
	}

	var repo *db.DepthMapRepository
	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN(), cfg.Workers)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		repo = database.DepthMaps()
		loader.Store = repo
		slog.Info("depth map store enabled", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "build":
		_, err := loadIslands(ctx, cfg, loader)
		return err
	case "route":
		return runRoute(ctx, cfg, loader, rest)
	case "depth":
		return runDepth(ctx, cfg, loader, rest)
	case "graph":
		return runGraph(ctx, cfg, loader, rest)
	case "stored":
		return runStored(ctx, repo)
	default:
		return errUsage
	}
}

// loadIslands loads every configured island on a bounded worker pool and
// keeps the configured order.
func loadIslands(ctx context.Context, cfg config.IslandTool, loader *island.Loader) ([]*island.Island, error) {
	islands := make([]*island.Island, len(cfg.Islands))

	var mu sync.Mutex
	var uniform, pooled int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	start := time.Now()
	for i, entry := range cfg.Islands {
		g.Go(func() error {
			isl, err := loader.Load(gctx, specOf(entry))
			if err != nil {
				return fmt.Errorf("loading island %s: %w", entry.Name, err)
			}
			islands[i] = isl

			m := isl.DepthMap()
			slog.Debug("depth map stats",
				"island", isl.Name(),
				"uniform_blocks", m.UniformBlocks(),
				"encoded_bytes", m.EncodedSize())

			mu.Lock()
			uniform += m.UniformBlocks()
			pooled += m.PoolBlocks()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("islands loaded",
		"count", len(islands),
		"uniform_blocks", uniform,
		"pool_blocks", pooled,
		"elapsed", time.Since(start))
	return islands, nil
}

func specOf(e config.IslandEntry) island.Spec {
	return island.Spec{
		Name:   e.Name,
		Dir:    e.ResourceDirOf(),
		Center: orb.Point{e.Center[0], e.Center[1]},
		Size:   orb.Point{e.Size[0], e.Size[1]},
	}
}

func plannerConfig(p config.Planner) island.PlannerConfig {
	return island.PlannerConfig{
		Candidates:          p.Candidates,
		MinWaypointDistance: p.MinWaypointDistance,
		TraceHeight:         p.TraceHeight,
	}
}

func archipelago(ctx context.Context, cfg config.IslandTool, loader *island.Loader) (*island.Archipelago, error) {
	islands, err := loadIslands(ctx, cfg, loader)
	if err != nil {
		return nil, err
	}
	return island.NewArchipelago(island.ArchipelagoConfig{
		Planner: plannerConfig(cfg.Planner),
		Draft:   cfg.Tracer.Draft,
	}, islands...)
}

func runRoute(ctx context.Context, cfg config.IslandTool, loader *island.Loader, args []string) error {
	v, err := parseFloats(args, 4)
	if err != nil {
		return err
	}
	a, err := archipelago(ctx, cfg, loader)
	if err != nil {
		return err
	}

	src := island.Vec3{X: v[0], Z: v[1]}
	dst := island.Vec3{X: v[2], Z: v[3]}
	rerouted, wp := a.GetMovePoint(src, dst)
	fmt.Printf("%t %.3f %.3f\n", rerouted, wp.X, wp.Z)
	return nil
}

func runDepth(ctx context.Context, cfg config.IslandTool, loader *island.Loader, args []string) error {
	v, err := parseFloats(args, 2)
	if err != nil {
		return err
	}
	a, err := archipelago(ctx, cfg, loader)
	if err != nil {
		return err
	}

	h, inside := a.Depth(v[0], v[1])
	name := "-"
	if isl, ok := a.IslandAt(v[0], v[1]); ok {
		name = isl.Name()
	}
	fmt.Printf("%s %t %.3f\n", name, inside, h)
	return nil
}

func runGraph(ctx context.Context, cfg config.IslandTool, loader *island.Loader, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	for _, entry := range cfg.Islands {
		if entry.Name != args[0] {
			continue
		}
		isl, err := loader.Load(ctx, specOf(entry))
		if err != nil {
			return fmt.Errorf("loading island %s: %w", entry.Name, err)
		}
		data, err := isl.Graph().GeoJSON()
		if err != nil {
			return fmt.Errorf("encoding graph of %s: %w", entry.Name, err)
		}
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return fmt.Errorf("island %q is not configured", args[0])
}

func runStored(ctx context.Context, repo *db.DepthMapRepository) error {
	if repo == nil {
		return errors.New("database is disabled in config")
	}
	infos, err := repo.ListDepthMaps(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%s\t%d\t%d\t%d\n", info.Island, info.Size, info.PoolBlocks, info.Bytes)
	}
	return nil
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, errUsage
	}
	v := make([]float64, n)
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		v[i] = f
	}
	return v, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
