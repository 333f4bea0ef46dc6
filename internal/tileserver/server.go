package tileserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"markermap/internal/markers"
	"markermap/pkg/tiles"
)

// MarkerProvider exposes the current marker set for the /markers endpoint.
type MarkerProvider interface {
	Markers() []markers.Marker
}

// Server provides HTTP endpoints for tiles and markers.
type Server struct {
	cache    *TileCache
	provider MarkerProvider
	port     int
	server   *http.Server
}

// NewServer creates a tile server. provider may be nil, in which case
// /markers serves an empty collection.
func NewServer(cache *TileCache, provider MarkerProvider, port int) *Server {
	return &Server{
		cache:    cache,
		provider: provider,
		port:     port,
	}
}

// Handler returns the server's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tile/", s.handleTile)
	mux.HandleFunc("/prefetch", s.handlePrefetch)
	mux.HandleFunc("/markers", s.handleMarkers)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the tile server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	fmt.Printf("Tile server starting on port %d\n", s.port)
	return s.server.ListenAndServe()
}

// Stop stops the tile server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// handleTile serves tile requests: /tile/{zoom}/{x}/{y}
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tile/")
	parts := strings.Split(path, "/")

	if len(parts) != 3 {
		http.Error(w, "Invalid tile path", http.StatusBadRequest)
		return
	}

	zoom, err := strconv.Atoi(parts[0])
	if err != nil {
		http.Error(w, "Invalid zoom", http.StatusBadRequest)
		return
	}

	x, err := strconv.Atoi(parts[1])
	if err != nil {
		http.Error(w, "Invalid x", http.StatusBadRequest)
		return
	}

	y, err := strconv.Atoi(strings.TrimSuffix(parts[2], ".png"))
	if err != nil {
		http.Error(w, "Invalid y", http.StatusBadRequest)
		return
	}

	coord := tiles.TileCoord{X: x, Y: y, Zoom: zoom}
	data, err := s.cache.GetTile(coord)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get tile: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=86400") // Cache for 24 hours
	w.Write(data)
}

// PrefetchRequest represents a prefetch request
type PrefetchRequest struct {
	CenterLat      float64 `json:"centerLat"`
	CenterLon      float64 `json:"centerLon"`
	Zoom           int     `json:"zoom"`
	ViewportWidth  int     `json:"viewportWidth"`
	ViewportHeight int     `json:"viewportHeight"`
}

// handlePrefetch queues a viewport area for background fetching.
func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	go s.cache.PrefetchArea(req.CenterLat, req.CenterLon, req.Zoom, req.ViewportWidth, req.ViewportHeight)

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"prefetching"}`))
}

// handleMarkers serves the current marker set as a GeoJSON FeatureCollection.
func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	fc := geojson.NewFeatureCollection()

	if s.provider != nil {
		for _, m := range s.provider.Markers() {
			f := geojson.NewFeature(m.Location)
			f.Properties = geojson.Properties{
				"name": m.Name,
				"icon": m.Icon,
			}
			fc.Append(f)
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode markers: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
