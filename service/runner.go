package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dohoonk/roomdetect/floorplan"
)

// SourceHTTP is the source recorded for rooms detected from ad hoc HTTP requests.
const SourceHTTP = "http"

// Metrics summarizes a run the way the detect-rooms endpoint reports it.
type Metrics struct {
	ProcessingTime  float64 `json:"processing_time"`  // seconds, rounded to ms
	ConfidenceScore float64 `json:"confidence_score"` // mean room confidence, 2 decimals
	RoomsCount      int     `json:"rooms_count"`
}

// Run is one completed detection.
type Run struct {
	ID        string             `json:"run_id"`
	Source    string             `json:"source"`
	CreatedAt time.Time          `json:"created_at"`
	Rooms     []floorplan.Room   `json:"rooms"`
	Metrics   Metrics            `json:"metrics"`
	Strategy  floorplan.Strategy `json:"strategy"`
	Stats     floorplan.Stats    `json:"stats"`
}

// Runner executes detections and fans the results out to the tracker, the
// history store and the publisher. Only Tracker is required.
type Runner struct {
	Options   floorplan.Options
	Tracker   *ResultTracker
	History   *HistoryStore
	Publisher *Publisher

	now func() time.Time
}

// NewRunner creates a runner with its own tracker.
func NewRunner(opts floorplan.Options) *Runner {
	return &Runner{
		Options: opts,
		Tracker: NewResultTracker(),
		now:     time.Now,
	}
}

// Detect runs detection for source. Failed detections are returned to the
// caller and not recorded anywhere.
func (r *Runner) Detect(ctx context.Context, source string, segments []floorplan.WallSegment) (*Run, *floorplan.Result, error) {
	start := r.clock()
	res, err := floorplan.DetectContext(ctx, segments, r.Options)
	elapsed := r.clock().Sub(start)
	if err != nil {
		log.Printf("[RUN] %s: detection failed after %v: %v", source, elapsed, err)
		return nil, nil, err
	}

	run := &Run{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: start.UTC(),
		Rooms:     res.Rooms,
		Metrics:   newMetrics(res.Rooms, elapsed),
		Strategy:  res.Strategy,
		Stats:     res.Stats,
	}
	if res.PrimaryErr != nil {
		log.Printf("[RUN] %s: polygonize failed, used %s: %v", source, res.Strategy, res.PrimaryErr)
	}
	log.Printf("[RUN] %s: %d segments -> %d rooms in %v (run %s)",
		source, res.Stats.InputSegments, len(res.Rooms), elapsed, run.ID)

	r.record(ctx, run)
	return run, res, nil
}

func (r *Runner) record(ctx context.Context, run *Run) {
	if r.Tracker != nil {
		r.Tracker.Update(run)
	}
	if r.History != nil {
		if err := r.History.Save(ctx, run); err != nil {
			log.Printf("[RUN] warning: failed to save run %s: %v", run.ID, err)
		}
	}
	if r.Publisher != nil {
		if err := r.Publisher.PublishRun(run); err != nil {
			log.Printf("[RUN] warning: failed to publish run %s: %v", run.ID, err)
		}
	}
}

// HandleMessage adapts the runner to MQTTClient's MessageHandler.
func (r *Runner) HandleMessage(sourceID string, segments []floorplan.WallSegment, err error) {
	if err != nil {
		return
	}
	if _, _, err := r.Detect(context.Background(), sourceID, segments); err != nil {
		log.Printf("[RUN] %s: dropping message: %v", sourceID, err)
	}
}

// Poll fetches src.URL and runs detection on it, once or every
// src.PollInterval until ctx is done. A plan the source reports as
// unchanged is not detected again.
func (r *Runner) Poll(ctx context.Context, src SourceConfig, opts ...FetchOption) {
	fetcher := NewFetcher(r.Options.Tolerance, opts...)
	for {
		segments, err := fetcher.Fetch(ctx, src.URL)
		switch {
		case errors.Is(err, ErrNotModified):
		case err != nil:
			log.Printf("[RUN] %s: %s", src.ID, fetchFailure(err))
		default:
			if _, _, err := r.Detect(ctx, src.ID, segments); err != nil {
				log.Printf("[RUN] %s: %v", src.ID, err)
			}
		}

		if src.PollInterval <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(src.PollInterval):
		}
	}
}

// fetchFailure describes a failed fetch for the poll log, naming the
// offending record when the payload was rejected.
func fetchFailure(err error) string {
	var verr *floorplan.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("payload rejected at segment %d: %v", verr.Index, err)
	}
	var serr *StatusError
	if errors.As(err, &serr) && !serr.Transient() {
		return fmt.Sprintf("source answered %d, check the URL: %v", serr.StatusCode, err)
	}
	return err.Error()
}

func (r *Runner) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

func newMetrics(rooms []floorplan.Room, elapsed time.Duration) Metrics {
	m := Metrics{
		ProcessingTime: round(elapsed.Seconds(), 3),
		RoomsCount:     len(rooms),
	}
	if len(rooms) > 0 {
		var sum float64
		for _, room := range rooms {
			sum += room.Confidence
		}
		m.ConfidenceScore = round(sum/float64(len(rooms)), 2)
	}
	return m
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
