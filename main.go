package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := newRootCmd(NewApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:          "roomdetect",
		Short:        "Detect rooms in floorplan wall segments",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()
			app.In = cmd.InOrStdin()
			app.ConfigNeeded = cmd.Flags().Changed("config")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&app.ConfigFile, "config", app.ConfigFile, "path to configuration file")

	root.AddCommand(detectCmd(app), renderCmd(app), serveCmd(app))
	return root
}

func detectCmd(app *App) *cobra.Command {
	var (
		url       string
		source    string
		format    string
		withWalls bool
	)
	cmd := &cobra.Command{
		Use:   "detect [file|-]",
		Short: "Detect rooms and print them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			if source != "" {
				var err error
				if url, err = app.sourceURL(source); err != nil {
					return err
				}
			}
			return app.RunDetect(cmd.Context(), input, url, format, withWalls)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "fetch walls from this URL instead of a file")
	cmd.Flags().StringVar(&source, "source", "", "fetch walls from the url of this configured source")
	cmd.Flags().StringVarP(&format, "format", "f", FormatJSON, "output format: json, geojson or graph")
	cmd.Flags().BoolVar(&withWalls, "walls", false, "include split walls in geojson output")
	return cmd
}

func renderCmd(app *App) *cobra.Command {
	var (
		url    string
		source string
		output string
	)
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render detected rooms to SVG or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			if source != "" {
				var err error
				if url, err = app.sourceURL(source); err != nil {
					return err
				}
			}
			return app.RunRender(cmd.Context(), input, url, output)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "fetch walls from this URL instead of a file")
	cmd.Flags().StringVar(&source, "source", "", "fetch walls from the url of this configured source")
	cmd.Flags().StringVarP(&output, "output", "o", "rooms.svg", "output file (.svg or .png)")
	return cmd
}

func serveCmd(app *App) *cobra.Command {
	var (
		port   int
		noMQTT bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, MQTT ingest and URL pollers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("roomdetect version: %s\n", Version)
			return app.RunService(port, !noMQTT)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default from config, 8080)")
	cmd.Flags().BoolVar(&noMQTT, "no-mqtt", false, "skip the MQTT broker even when configured")
	return cmd
}
