package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/peterstace/spatialjoin/internal/dataset"
	"github.com/peterstace/spatialjoin/internal/viz"
)

type config struct {
	dataDir  string
	cacheDir string
	limit    int
	capacity int
	port     int
	seed     uint64
	build    bool
	watch    time.Duration
}

func main() {
	var cfg config
	flag.StringVar(&cfg.dataDir, "data", "data", "directory holding "+dataset.TowersFile+" and "+dataset.CitiesFile)
	flag.StringVar(&cfg.cacheDir, "cache", filepath.Join("visualization_site", ".cache"), "directory for cached artifacts")
	flag.IntVar(&cfg.limit, "limit", 0, "limit number of points loaded (0 for no limit)")
	flag.IntVar(&cfg.capacity, "capacity", viz.DefaultCapacity, "maximum children per node")
	flag.IntVar(&cfg.port, "port", 8000, "port for the server")
	flag.Uint64Var(&cfg.seed, "seed", 1, "seed for tower radii")
	flag.BoolVar(&cfg.build, "build", false, "build the artifacts and exit without serving")
	flag.DurationVar(&cfg.watch, "watch", time.Second, "how often to check the data files for changes (0 disables)")
	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func (cfg config) paths() []string {
	return []string{
		filepath.Join(cfg.dataDir, dataset.TowersFile),
		filepath.Join(cfg.dataDir, dataset.CitiesFile),
	}
}

func (cfg config) key() (string, error) {
	return viz.Key(cfg.paths(), cfg.limit, cfg.capacity, cfg.seed)
}

// buildSite loads the site for the current data files from the cache, or
// builds and caches it.
func buildSite(cfg config) (*viz.Site, error) {
	key, err := cfg.key()
	if err != nil {
		return nil, err
	}
	cache := viz.Cache{Dir: cfg.cacheDir}
	site, ok, err := cache.Load(key)
	if err != nil {
		log.Printf("cache load failed, rebuilding: %v", err)
	}
	if ok {
		log.Printf("loaded visualization artifacts from cache")
		return site, nil
	}

	towers, cities, err := dataset.LoadBoth(cfg.dataDir, cfg.limit, rand.NewPCG(cfg.seed, cfg.seed))
	if err != nil {
		return nil, err
	}
	site, err = viz.Build(towers, cities, cfg.capacity)
	if err != nil {
		return nil, err
	}
	if err := cache.Store(key, site); err != nil {
		log.Printf("failed to write cache: %v", err)
	}
	return site, nil
}

func run(cfg config) error {
	// The watcher only looks at the data files, not the build parameters.
	watchKey, err := viz.Key(cfg.paths())
	if err != nil {
		return err
	}
	site, err := buildSite(cfg)
	if err != nil {
		return err
	}
	log.Printf("build complete: %d towers, %d cities, %d leaves", len(site.Towers), len(site.Cities), len(site.LeafMBRs))
	if cfg.build {
		return nil
	}

	srv, err := viz.NewServer(site)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.watch > 0 {
		go viz.Watch(ctx, cfg.paths(), cfg.watch, watchKey, func(string) error {
			log.Printf("change detected: rebuilding artifacts")
			site, err := buildSite(cfg)
			if err != nil {
				return err
			}
			if err := srv.SetSite(site); err != nil {
				return err
			}
			log.Printf("artifacts updated: build %s", site.BuildID)
			return nil
		}, func(err error) {
			log.Printf("rebuild failed: %v", err)
		})
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.port),
		Handler: srv.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("serving visualization at http://localhost:%d/", cfg.port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
