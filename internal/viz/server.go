package viz

import (
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/peterstace/spatialjoin/rtree"
)

//go:embed index.html
var indexHTML string

// Server serves a Site over HTTP. The site can be replaced while serving.
type Server struct {
	mu    sync.RWMutex
	site  *Site
	index *rtree.RTree
	page  string
}

// NewServer creates a Server for site.
func NewServer(site *Site) (*Server, error) {
	s := &Server{}
	if err := s.SetSite(site); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSite replaces the site being served. The circles of the site are bulk
// loaded into a new index for answering queries.
func (s *Server) SetSite(site *Site) error {
	index, err := rtree.New(DefaultCapacity)
	if err != nil {
		return err
	}
	if err := index.BulkLoad(site.Circles()); err != nil {
		return err
	}
	lat, lon := site.Center()
	page := strings.NewReplacer(
		"CENTER_LAT", strconv.FormatFloat(lat, 'f', -1, 64),
		"CENTER_LON", strconv.FormatFloat(lon, 'f', -1, 64),
	).Replace(indexHTML)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.site, s.index, s.page = site, index, page
	return nil
}

func (s *Server) current() (*Site, *rtree.RTree, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.site, s.index, s.page
}

// Handler gives the gin engine serving the site.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		_, _, page := s.current()
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})
	r.GET("/api/data.json", func(c *gin.Context) {
		site, _, _ := s.current()
		c.JSON(http.StatusOK, site)
	})
	r.GET("/api/leaves", func(c *gin.Context) {
		site, _, _ := s.current()
		c.JSON(http.StatusOK, gin.H{
			"build":     site.BuildID,
			"leaf_mbrs": site.LeafMBRs,
		})
	})
	r.GET("/api/query", func(c *gin.Context) {
		bb, err := boxFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_, index, _ := s.current()
		found := index.RangeQuery(bb)
		ps := make([]Point, len(found))
		for i, f := range found {
			ps[i] = Point{f.X, f.Y, f.Radius}
		}
		c.JSON(http.StatusOK, gin.H{
			"count":  len(ps),
			"points": ps,
		})
	})
	return r
}

func boxFromQuery(c *gin.Context) (rtree.BBox, error) {
	var vals [4]float64
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil {
			return rtree.BBox{}, fmt.Errorf("invalid %s parameter", name)
		}
		vals[i] = v
	}
	bb := rtree.BBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if err := bb.Validate(); err != nil {
		return rtree.BBox{}, err
	}
	return bb, nil
}
