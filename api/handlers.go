package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"crimelens/dataset"
	"crimelens/pipeline"
)

// Server holds API dependencies.
type Server struct {
	cache         *pipeline.Cache
	log           *logrus.Logger
	exportMaxRows int

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.RWMutex
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server over the pipeline cache.
func NewServer(cache *pipeline.Cache, log *logrus.Logger, exportMaxRows int) *Server {
	return &Server{
		cache:         cache,
		log:           log,
		exportMaxRows: exportMaxRows,
		wsClients:     make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetupRoutes configures all API routes.
func (s *Server) SetupRoutes(r *gin.Engine) {
	r.GET("/health", s.Health)
	r.GET("/incidents", s.GetIncidents)
	r.GET("/summary", s.GetSummary)
	r.GET("/stats/timeseries", s.GetTimeseries)
	r.GET("/stats/heatmap", s.GetHeatmap)
	r.GET("/stats/offenses", s.GetTopOffenses)
	r.GET("/stats/districts", s.GetDistricts)
	r.GET("/export.csv", s.ExportCSV)
	r.POST("/refresh", s.Refresh)
	r.GET("/ws/updates", s.WebSocketHandler)
}

// Health reports whether a canonical table has been built yet.
func (s *Server) Health(c *gin.Context) {
	table, _, builtAt, ok := s.cache.Current()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "no data",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"rows":     table.Len(),
		"built_at": builtAt,
	})
}

// IncidentResponse represents one canonical row for API responses.
type IncidentResponse struct {
	OccurredAt *time.Time `json:"occurred_at"`
	Year       *int       `json:"year"`
	Month      *int       `json:"month"`
	Hour       *int       `json:"hour"`
	DayOfWeek  string     `json:"day_of_week,omitempty"`
	Offense    string     `json:"offense_description"`
	District   string     `json:"district"`
	Shooting   int        `json:"shooting"`
	Lat        *float64   `json:"lat"`
	Long       *float64   `json:"long"`
}

// table fetches the current canonical table, answering 503 when none has
// been built yet. Stale or absent data is never presented as valid.
func (s *Server) table(c *gin.Context) (*dataset.Table, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	table, _, err := s.cache.Get(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data available"})
		return nil, false
	}
	return table, true
}

// filterFromQuery builds the row filter from query parameters. Values may
// repeat (?year=2023&year=2024) or come comma-separated.
func filterFromQuery(c *gin.Context) dataset.Filter {
	f := dataset.Filter{
		Offenses:  multiValue(c, "offense"),
		Districts: multiValue(c, "district"),
	}
	for _, v := range multiValue(c, "year") {
		if y, err := strconv.Atoi(v); err == nil {
			f.Years = append(f.Years, y)
		}
	}
	if v := c.Query("shooting"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Shooting = &n
		}
	}
	return f
}

func multiValue(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// GetIncidents returns filtered canonical rows.
func (s *Server) GetIncidents(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	filtered := table.Select(filterFromQuery(c))
	records := filtered.Records()
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	incidents := make([]IncidentResponse, 0, len(records))
	for i := range records {
		r := &records[i]
		incidents = append(incidents, IncidentResponse{
			OccurredAt: r.OccurredAt,
			Year:       r.Year,
			Month:      r.Month,
			Hour:       r.Hour,
			DayOfWeek:  r.DayOfWeek(),
			Offense:    r.Offense,
			District:   r.District,
			Shooting:   r.Shooting,
			Lat:        r.Lat,
			Long:       r.Long,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     filtered.Len(),
		"incidents": incidents,
	})
}

// GetSummary returns the dashboard KPI block for the filtered rows.
func (s *Server) GetSummary(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	filtered := table.Select(filterFromQuery(c))
	c.JSON(http.StatusOK, filtered.Summarize(time.Now().UTC()))
}

// GetTimeseries returns incident counts bucketed by day or week.
func (s *Server) GetTimeseries(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	filtered := table.Select(filterFromQuery(c))

	var buckets []dataset.TimeBucket
	switch bucket := c.DefaultQuery("bucket", "day"); bucket {
	case "day":
		buckets = filtered.CountByDay()
	case "week":
		buckets = filtered.CountByWeek()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bucket must be day or week"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

// GetHeatmap returns day-of-week x hour counts.
func (s *Server) GetHeatmap(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	filtered := table.Select(filterFromQuery(c))
	c.JSON(http.StatusOK, gin.H{"cells": filtered.Heatmap()})
}

// GetTopOffenses returns the most frequent offense descriptions.
func (s *Server) GetTopOffenses(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	top, _ := strconv.Atoi(c.DefaultQuery("top", "20"))
	filtered := table.Select(filterFromQuery(c))
	c.JSON(http.StatusOK, gin.H{"offenses": filtered.TopOffenses(top)})
}

// GetDistricts returns per-district counts, sentinel districts excluded.
func (s *Server) GetDistricts(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	filtered := table.Select(filterFromQuery(c))
	c.JSON(http.StatusOK, gin.H{"districts": filtered.DistrictCounts()})
}

// ExportCSV streams the filtered table as CSV, capped at the configured
// maximum row count. X-Truncated signals a capped download.
func (s *Server) ExportCSV(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	filtered := table.Select(filterFromQuery(c))

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="incidents.csv"`)
	if s.exportMaxRows > 0 && filtered.Len() > s.exportMaxRows {
		c.Header("X-Truncated", "true")
	}
	if _, _, err := filtered.WriteCSV(c.Writer, s.exportMaxRows); err != nil {
		s.log.WithError(err).Error("csv export failed")
	}
}

// Refresh forces a rebuild regardless of TTL and reports the run outcome.
func (s *Server) Refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	table, report, err := s.cache.Refresh(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "no data available",
			"sources": sourceResults(report),
		})
		return
	}
	resp := gin.H{
		"rows":    table.Len(),
		"added":   report.LiveAdded,
		"sources": sourceResults(report),
	}
	if report.LiveErr != nil {
		resp["live_error"] = report.LiveErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func sourceResults(report *pipeline.Report) []gin.H {
	if report == nil {
		return nil
	}
	out := make([]gin.H, 0, len(report.Sources))
	for _, src := range report.Sources {
		h := gin.H{"name": src.Name, "rows": src.Rows}
		if src.Err != nil {
			h["error"] = src.Err.Error()
		}
		out = append(out, h)
	}
	return out
}
