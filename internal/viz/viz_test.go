package viz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peterstace/spatialjoin/rtree"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testTowers = []rtree.Circle{{X: 0, Y: 0, Radius: 0.1}, {X: 1, Y: 1, Radius: 0.1}, {X: 5, Y: 5, Radius: 0.2}}
	testCities = []rtree.Circle{{X: 2, Y: 3, Radius: 0.5}, {X: -4, Y: 8, Radius: 0.3}}
)

func buildTestSite(t *testing.T, capacity int) *Site {
	t.Helper()
	site, err := Build(testTowers, testCities, capacity)
	if err != nil {
		t.Fatal(err)
	}
	return site
}

func TestBuild(t *testing.T) {
	site := buildTestSite(t, 2)
	if site.BuildID == "" {
		t.Error("missing build id")
	}
	if len(site.Towers) != 3 || len(site.Cities) != 2 {
		t.Fatalf("got %d towers %d cities", len(site.Towers), len(site.Cities))
	}
	if want := [4]float64{-4, 0, 5, 8}; site.BBox != want {
		t.Errorf("bbox: got %v want %v", site.BBox, want)
	}
	var total int
	for _, leaf := range site.LeafMBRs {
		if leaf.Count < 1 || leaf.Count > 2 {
			t.Errorf("leaf count %d outside capacity", leaf.Count)
		}
		if leaf.X1 > leaf.X2 || leaf.Y1 > leaf.Y2 {
			t.Errorf("inverted leaf box %+v", leaf)
		}
		total += leaf.Count
	}
	if total != 5 {
		t.Errorf("leaves hold %d points, want 5", total)
	}
	if lat, lon := site.Center(); lat != 4 || lon != 0.5 {
		t.Errorf("center: got (%v, %v)", lat, lon)
	}
}

func TestBuildEmpty(t *testing.T) {
	site, err := Build(nil, nil, DefaultCapacity)
	if err != nil {
		t.Fatal(err)
	}
	if want := [4]float64{-180, -90, 180, 90}; site.BBox != want {
		t.Errorf("bbox: got %v", site.BBox)
	}
	if len(site.LeafMBRs) != 0 {
		t.Errorf("expected no leaves, got %v", site.LeafMBRs)
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(nil, nil, 1); err == nil {
		t.Error("expected capacity error")
	}
	if _, err := Build([]rtree.Circle{{Radius: -1}}, nil, 4); err == nil {
		t.Error("expected circle error")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := Cache{Dir: filepath.Join(t.TempDir(), "cache")}
	site := buildTestSite(t, 4)

	if _, ok, err := cache.Load("abc"); err != nil || ok {
		t.Fatalf("load of missing entry: ok=%t err=%v", ok, err)
	}
	if err := cache.Store("abc", site); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Load("abc")
	if err != nil || !ok {
		t.Fatalf("load: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, site) {
		t.Errorf("got %+v want %+v", got, site)
	}

	if err := os.WriteFile(cache.path("bad"), []byte("not snappy"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cache.Load("bad"); err == nil {
		t.Error("expected error for corrupt entry")
	}
}

func TestKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(path, []byte("1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	k1, err := Key([]string{path, filepath.Join(dir, "missing")}, 10)
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := Key([]string{path, filepath.Join(dir, "missing")}, 10)
	k3, _ := Key([]string{path, filepath.Join(dir, "missing")}, 11)
	if k1 != k2 {
		t.Error("key is not deterministic")
	}
	if k1 == k3 {
		t.Error("key ignores params")
	}
	if err := os.WriteFile(path, []byte("1,2,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if k4, _ := Key([]string{path, filepath.Join(dir, "missing")}, 10); k4 == k1 {
		t.Error("key ignores file contents")
	}
}

func TestServer(t *testing.T) {
	srv, err := NewServer(buildTestSite(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	rec := get("/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "setView([4, 0.5]") {
		t.Errorf("index: code=%d", rec.Code)
	}

	rec = get("/api/data.json")
	var site Site
	if err := json.Unmarshal(rec.Body.Bytes(), &site); err != nil {
		t.Fatal(err)
	}
	if len(site.Towers) != 3 || len(site.Cities) != 2 {
		t.Errorf("data: got %d towers %d cities", len(site.Towers), len(site.Cities))
	}

	rec = get("/api/query?x1=-1&y1=-1&x2=1.5&y2=1.5")
	var query struct {
		Count  int     `json:"count"`
		Points []Point `json:"points"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &query); err != nil {
		t.Fatal(err)
	}
	if query.Count != 2 {
		t.Errorf("query: got %d points %v", query.Count, query.Points)
	}

	for _, url := range []string{
		"/api/query?x1=a&y1=0&x2=1&y2=1",
		"/api/query?x1=0&y1=0&x2=1",
		"/api/query?x1=2&y1=0&x2=1&y2=1",
	} {
		if rec := get(url); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: code %d", url, rec.Code)
		}
	}

	rec = get("/api/leaves")
	var leaves struct {
		Build    string    `json:"build"`
		LeafMBRs []LeafBox `json:"leaf_mbrs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &leaves); err != nil {
		t.Fatal(err)
	}
	if leaves.Build != site.BuildID || len(leaves.LeafMBRs) == 0 {
		t.Errorf("leaves: %+v", leaves)
	}

	replacement, err := Build(nil, nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.SetSite(replacement); err != nil {
		t.Fatal(err)
	}
	if rec := get("/api/query?x1=-10&y1=-10&x2=10&y2=10"); !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Errorf("after replacement: %s", rec.Body.String())
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	var (
		mu   sync.Mutex
		keys []string
	)
	rebuilt := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, []string{path}, 5*time.Millisecond, "", func(key string) error {
			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
			rebuilt <- struct{}{}
			return nil
		}, func(err error) {
			t.Error(err)
		})
	}()

	waitFor := func() {
		select {
		case <-rebuilt:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for rebuild")
		}
	}
	waitFor()
	// Replace the file atomically so a poll never sees a partial write.
	tmp := filepath.Join(dir, "data.tmp")
	if err := os.WriteFile(tmp, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitFor()
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 || keys[0] == keys[1] {
		t.Errorf("keys: %v", keys)
	}
}
