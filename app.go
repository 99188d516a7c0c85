package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dohoonk/roomdetect/floorplan"
	"github.com/dohoonk/roomdetect/service"
)

// Output formats of the detect command.
const (
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
	FormatGraph   = "graph"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *service.Config
	Runner     *service.Runner
	MQTTClient *service.MQTTClient

	// CLI flags
	ConfigFile   string
	ConfigNeeded bool // the config flag was set explicitly
	Out          io.Writer
	In           io.Reader
}

// NewApp creates a new App instance writing to stdout
func NewApp() *App {
	return &App{
		ConfigFile: "config.yaml",
		Out:        os.Stdout,
		In:         os.Stdin,
	}
}

// LoadConfig reads ConfigFile. A missing default config file yields the
// default config so one-shot commands work without one.
func (a *App) LoadConfig() error {
	if a.Config != nil {
		return nil
	}
	if _, err := os.Stat(a.ConfigFile); errors.Is(err, fs.ErrNotExist) && !a.ConfigNeeded {
		a.Config = service.DefaultConfig()
		return nil
	}

	config, err := service.LoadConfig(a.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.ConfigFile)
	return nil
}

// options returns the detection options of the loaded config.
func (a *App) options() floorplan.Options {
	if a.Config == nil {
		return floorplan.DefaultOptions()
	}
	return a.Config.Detection.Options()
}

// sourceURL resolves a configured source to the URL it is polled from.
func (a *App) sourceURL(id string) (string, error) {
	if err := a.LoadConfig(); err != nil {
		return "", err
	}
	src := a.Config.GetSourceByID(id)
	switch {
	case src == nil:
		return "", fmt.Errorf("unknown source %q", id)
	case src.URL == "":
		return "", fmt.Errorf("source %s has no url", id)
	}
	return src.URL, nil
}

// readSegments loads segments from a file path, "-" for stdin, or a URL.
func (a *App) readSegments(ctx context.Context, input, url string) ([]floorplan.WallSegment, error) {
	tolerance := a.options().Tolerance
	switch {
	case url != "":
		return service.FetchSegments(ctx, url, tolerance)
	case input == "-":
		data, err := io.ReadAll(a.In)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return floorplan.ParseSegmentsJSON(data, tolerance)
	case input != "":
		return floorplan.ParseSegmentsFile(input, tolerance)
	default:
		return nil, fmt.Errorf("an input file, - for stdin, or --url is required")
	}
}

// RunDetect detects rooms and prints them in the requested format.
func (a *App) RunDetect(ctx context.Context, input, url, format string, withWalls bool) error {
	switch format {
	case FormatJSON, FormatGeoJSON, FormatGraph, "":
	default:
		return fmt.Errorf("unknown format %q (want json, geojson or graph)", format)
	}
	if err := a.LoadConfig(); err != nil {
		return err
	}
	segments, err := a.readSegments(ctx, input, url)
	if err != nil {
		return err
	}

	runner := service.NewRunner(a.options())
	run, res, err := runner.Detect(ctx, sourceName(input, url), segments)
	if err != nil {
		return err
	}

	var out any
	switch format {
	case FormatGeoJSON:
		out = floorplan.ResultToFeatureCollection(res, withWalls)
	case FormatGraph:
		out = res.GraphData()
	default:
		out = detectResponse{RunID: run.ID, Rooms: run.Rooms, Metrics: run.Metrics}
	}

	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// RunRender detects rooms and writes an SVG or PNG picture of them. The
// output file is only written once rendering succeeded.
func (a *App) RunRender(ctx context.Context, input, url, output string) error {
	if err := a.LoadConfig(); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(output))
	if ext != ".svg" && ext != ".png" {
		return fmt.Errorf("output %s must end in .svg or .png", output)
	}

	segments, err := a.readSegments(ctx, input, url)
	if err != nil {
		return err
	}
	res, err := floorplan.DetectContext(ctx, segments, a.options())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	renderer := floorplan.NewRoomRenderer(res)
	if ext == ".svg" {
		err = renderer.RenderToSVG(&buf)
	} else {
		err = renderer.RenderToPNG(&buf)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", output, err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	fmt.Fprintf(a.Out, "Rendered %d rooms to %s\n", len(res.Rooms), output)
	return nil
}

// setupRunner builds the runner with history from the loaded config.
func (a *App) setupRunner(ctx context.Context) error {
	a.Runner = service.NewRunner(a.options())
	if path := a.Config.History.Path; path != "" {
		history, err := service.OpenHistory(ctx, path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		a.Runner.History = history
		log.Printf("Run history at %s", path)
	}
	return nil
}

// startMQTT connects to the broker and wires ingest and publishing.
func (a *App) startMQTT() error {
	client, err := service.InitMQTT(a.Config, a.Runner.HandleMessage)
	if err != nil {
		return fmt.Errorf("initializing MQTT: %w", err)
	}
	if client == nil {
		return nil
	}
	a.MQTTClient = client
	a.Runner.Publisher = service.NewPublisher(client.GetClient(), a.Config.MQTT.PublishPrefix)
	return nil
}

// RunService starts the HTTP server, MQTT ingest and URL pollers, and blocks
// until SIGINT or SIGTERM.
func (a *App) RunService(port int, mqttMode bool) error {
	fmt.Println("Starting roomdetect service...")

	if err := a.LoadConfig(); err != nil {
		return err
	}
	if port <= 0 {
		port = a.Config.Port()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.setupRunner(ctx); err != nil {
		return err
	}
	defer func() {
		if a.Runner.History != nil {
			_ = a.Runner.History.Close()
		}
	}()

	if mqttMode {
		if err := a.startMQTT(); err != nil {
			return err
		}
	}

	for _, src := range a.Config.Sources {
		if src.URL == "" {
			continue
		}
		go a.Runner.Poll(ctx, src)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           newHTTPServer(a.Runner),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[HTTP] Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[HTTP] Server error: %v", err)
		}
	}()

	a.printServiceInfo(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down service...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] shutdown: %v", err)
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
	return nil
}

func (a *App) printServiceInfo(port int) {
	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.MQTTClient != nil {
		prefix := a.Config.MQTT.PublishPrefix
		if prefix == "" {
			prefix = service.DefaultPublishPrefix
		}
		fmt.Println("\nMQTT:")
		fmt.Println("  Subscribed topics:")
		for _, src := range a.Config.Sources {
			if src.Topic != "" {
				fmt.Printf("    - %s (%s)\n", src.Topic, src.ID)
			}
		}
		fmt.Printf("  Publishing to: %s/{source}/rooms\n", prefix)
		fmt.Printf("  Summary: %s/summary\n", prefix)
	}

	fmt.Printf("\nHTTP endpoints (port %d):\n", port)
	fmt.Println("  GET  /health                - Health check")
	fmt.Println("  POST /detect-rooms          - Detect rooms from {\"walls\": [...]}")
	fmt.Println("  POST /graph-data            - Split wall graph and cycles")
	fmt.Println("  POST /detect-rooms.geojson  - Rooms and faces as GeoJSON")
	fmt.Println("  POST /render.svg|.png       - Rendered plan")
	fmt.Println("  GET  /runs, /runs/{id}      - Run history")
	fmt.Println("  GET  /sources               - Sources with results")
	fmt.Println("  GET  /sources/{id}/rooms    - Latest rooms of a source")
	fmt.Println("  DELETE /sources/{id}/rooms  - Forget the latest rooms of a source")

	fmt.Println("\nPress Ctrl+C to stop")
}

// sourceName names a one-shot run after its input.
func sourceName(input, url string) string {
	switch {
	case url != "":
		return url
	case input == "-" || input == "":
		return "stdin"
	default:
		return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
}
