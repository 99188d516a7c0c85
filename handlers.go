package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dohoonk/roomdetect/floorplan"
	"github.com/dohoonk/roomdetect/service"
)

// maxRequestBytes limits request bodies to 50 MB.
const maxRequestBytes = 50 << 20

// detectResponse is the body of POST /detect-rooms.
type detectResponse struct {
	RunID   string           `json:"run_id"`
	Rooms   []floorplan.Room `json:"rooms"`
	Metrics service.Metrics  `json:"metrics"`
}

// errorResponse mirrors the {"detail": ...} error body clients already parse.
type errorResponse struct {
	Detail string `json:"detail"`
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(runner *service.Runner) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasResults bool      `json:"hasResults"`
		}{
			Status:     "healthy",
			Timestamp:  time.Now(),
			HasResults: runner.Tracker.HasResults(),
		}
		writeJSON(w, http.StatusOK, status)
	})

	// Detection endpoints all take the same {"walls": [...]} body.
	mux.HandleFunc("POST /detect-rooms", func(w http.ResponseWriter, r *http.Request) {
		segments, ok := readSegments(w, r, runner.Options.Tolerance)
		if !ok {
			return
		}
		run, _, err := runner.Detect(r.Context(), service.SourceHTTP, segments)
		if err != nil {
			writeDetectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detectResponse{RunID: run.ID, Rooms: run.Rooms, Metrics: run.Metrics})
	})

	mux.HandleFunc("POST /graph-data", func(w http.ResponseWriter, r *http.Request) {
		res, ok := detect(w, r, runner.Options)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, res.GraphData())
	})

	mux.HandleFunc("POST /detect-rooms.geojson", func(w http.ResponseWriter, r *http.Request) {
		res, ok := detect(w, r, runner.Options)
		if !ok {
			return
		}
		withWalls, _ := strconv.ParseBool(r.URL.Query().Get("walls"))
		data, err := floorplan.ResultToFeatureCollection(res, withWalls).MarshalJSON()
		if err != nil {
			log.Printf("[HTTP] error encoding GeoJSON: %v", err)
			http.Error(w, "encoding GeoJSON failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(data)
	})

	mux.HandleFunc("POST /render.svg", func(w http.ResponseWriter, r *http.Request) {
		res, ok := detect(w, r, runner.Options)
		if !ok {
			return
		}
		renderer := floorplan.NewRoomRenderer(res)
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			writeRenderError(w, err)
		}
	})

	mux.HandleFunc("POST /render.png", func(w http.ResponseWriter, r *http.Request) {
		res, ok := detect(w, r, runner.Options)
		if !ok {
			return
		}
		renderer := floorplan.NewRoomRenderer(res)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToPNG(w); err != nil {
			writeRenderError(w, err)
		}
	})

	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		source := r.URL.Query().Get("source")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		if runner.History != nil {
			runs, err := runner.History.List(r.Context(), service.ListOptions{Source: source, Limit: limit})
			if err != nil {
				log.Printf("[HTTP] error listing runs: %v", err)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "listing runs failed"})
				return
			}
			writeJSON(w, http.StatusOK, runs)
			return
		}

		runs := []*service.Run{}
		for _, run := range runner.Tracker.Recent(0) {
			if source != "" && run.Source != source {
				continue
			}
			runs = append(runs, run)
			if limit > 0 && len(runs) == limit {
				break
			}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if run, ok := runner.Tracker.Find(id); ok {
			writeJSON(w, http.StatusOK, run)
			return
		}
		if runner.History != nil {
			run, err := runner.History.Get(r.Context(), id)
			if err == nil {
				writeJSON(w, http.StatusOK, run)
				return
			}
			if !errors.Is(err, service.ErrRunNotFound) {
				log.Printf("[HTTP] error loading run %s: %v", id, err)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "loading run failed"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: fmt.Sprintf("run %s not found", id)})
	})

	mux.HandleFunc("GET /sources", func(w http.ResponseWriter, r *http.Request) {
		type sourceSummary struct {
			ID         string    `json:"id"`
			RunID      string    `json:"run_id"`
			CreatedAt  time.Time `json:"created_at"`
			RoomsCount int       `json:"rooms_count"`
		}
		out := []sourceSummary{}
		for _, id := range runner.Tracker.Sources() {
			run, ok := runner.Tracker.Latest(id)
			if !ok {
				continue
			}
			out = append(out, sourceSummary{ID: id, RunID: run.ID, CreatedAt: run.CreatedAt, RoomsCount: run.Metrics.RoomsCount})
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("DELETE /sources/{id}/rooms", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := runner.Tracker.Latest(id); !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: fmt.Sprintf("no rooms for source %s", id)})
			return
		}
		runner.Tracker.Clear(id)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /sources/{id}/rooms", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		run, ok := runner.Tracker.Latest(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: fmt.Sprintf("no rooms for source %s", id)})
			return
		}
		writeJSON(w, http.StatusOK, detectResponse{RunID: run.ID, Rooms: run.Rooms, Metrics: run.Metrics})
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// readSegments decodes and validates the request body. On failure it has
// already written a 400 response.
func readSegments(w http.ResponseWriter, r *http.Request, tolerance float64) ([]floorplan.WallSegment, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: fmt.Sprintf("reading body: %v", err)})
		return nil, false
	}
	segments, err := floorplan.ParseSegmentsJSON(body, tolerance)
	if err != nil {
		writeDetectError(w, err)
		return nil, false
	}
	return segments, true
}

// detect runs an unrecorded detection for the visualization endpoints.
func detect(w http.ResponseWriter, r *http.Request, opts floorplan.Options) (*floorplan.Result, bool) {
	segments, ok := readSegments(w, r, opts.Tolerance)
	if !ok {
		return nil, false
	}
	res, err := floorplan.DetectContext(r.Context(), segments, opts)
	if err != nil {
		writeDetectError(w, err)
		return nil, false
	}
	return res, true
}

// detectStatus maps a detection error to its HTTP status.
func detectStatus(err error) int {
	switch {
	case errors.Is(err, floorplan.ErrInvalidSegment):
		return http.StatusBadRequest
	case errors.Is(err, floorplan.ErrDeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, floorplan.ErrGeometry):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDetectError(w http.ResponseWriter, err error) {
	status := detectStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] detection error: %v", err)
	}
	writeJSON(w, status, errorResponse{Detail: fmt.Sprintf("Error detecting rooms: %v", err)})
}

func writeRenderError(w http.ResponseWriter, err error) {
	if errors.Is(err, floorplan.ErrNothingToRender) {
		// Nothing has been written yet, so the status still applies.
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}
	log.Printf("[HTTP] error rendering: %v", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] error encoding response: %v", err)
	}
}
