// Package httpserver exposes a local read-only JSON view of the
// dashboard. It serves published snapshots only and never touches
// aggregation state.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/antdash/antdash/internal/dashboard"
)

// SnapshotSource is the narrow contract required by the API.
type SnapshotSource interface {
	Snapshot() *dashboard.Snapshot
	DroppedTicks() uint64
}

// Server provides the read-only status API.
type Server struct {
	addr      string
	source    SnapshotSource
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates the API server. It does not listen until Start.
func NewServer(addr string, source SnapshotSource) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		source: source,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := s.router()

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound listen address. Valid after Start, which
// matters when the configured address uses port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/nodes", s.handleNodes)
	// Node ids are file paths, so they travel as a query parameter
	// rather than a path segment.
	r.GET("/api/node", s.handleNode)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.source.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(s.startTime).String(),
		"nodes":         len(snap.Rows),
		"dropped_ticks": s.source.DroppedTicks(),
		"snapshot_at":   snap.TakenAt,
	})
}

func (s *Server) handleNodes(c *gin.Context) {
	snap := s.source.Snapshot()
	rows := make([]gin.H, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		rows = append(rows, rowJSON(row))
	}
	c.JSON(http.StatusOK, gin.H{
		"sort_column":    snap.SortColumn,
		"sort_ascending": snap.SortAscending,
		"selected":       snap.Selected,
		"nodes":          rows,
	})
}

func (s *Server) handleNode(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}
	snap := s.source.Snapshot()
	for _, row := range snap.Rows {
		if row.ID == id {
			body := rowJSON(row)
			if snap.Detail != nil && snap.Detail.ID == id {
				body["peer_id"] = snap.Detail.PeerID
				body["last_entry_at"] = snap.Detail.LastEntryAt
			}
			c.JSON(http.StatusOK, body)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown node id"})
}

func rowJSON(row dashboard.SummaryRow) gin.H {
	return gin.H{
		"id":           row.ID,
		"status":       row.Status.String(),
		"connection":   row.Conn.String(),
		"inactive":     row.Inactive,
		"version":      row.Version,
		"pid":          row.PID,
		"restarts":     row.Restarts,
		"metrics":      row.Values,
		"used_space":   row.UsedSpace,
		"max_capacity": row.MaxCapacity,
	}
}
