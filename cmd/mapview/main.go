package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-mapview/internal/config"
	"github.com/joeblew999/plat-mapview/internal/logging"
	"github.com/joeblew999/plat-mapview/internal/replay"
	"github.com/joeblew999/plat-mapview/internal/server"
)

// Options defines all CLI flags and env vars for the map control server.
// Flags: --host, --port, --config, --log-level, --frame-interval
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG, SERVICE_LOG_LEVEL, SERVICE_FRAME_INTERVAL
type Options struct {
	Host          string `doc:"Host to bind to" default:"0.0.0.0"`
	Port          int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config        string `doc:"Tuning config file (YAML); defaults to ./mapview.yaml when present"`
	LogLevel      string `doc:"Log level: debug, info, warn, error" default:"info"`
	FrameInterval string `doc:"Animation frame interval, overrides the config file (e.g. 16ms)"`
}

func setupLogging(opts *Options) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q, using info\n", opts.LogLevel)
		level = slog.LevelInfo
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig(opts *Options) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cfg, err
	}
	if opts.FrameInterval != "" {
		d, err := time.ParseDuration(opts.FrameInterval)
		if err != nil {
			return cfg, fmt.Errorf("frame interval: %w", err)
		}
		cfg.Navigation.FrameInterval = d
	}
	return cfg, cfg.Validate()
}

func newServer(opts *Options) (*server.Server, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		Control:       cfg.ControlOptions(),
		FrameInterval: cfg.Navigation.FrameInterval,
	}), nil
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		setupLogging(opts)
		srv, err := newServer(opts)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-mapview server starting...\n")
			fmt.Printf("  Server:   %s\n", baseURL)
			fmt.Printf("  Sessions: %s/api/v1/sessions\n", baseURL)
			fmt.Printf("  Docs:     %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI:  %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
		hooks.OnStop(func() {
			srv.Close()
		})
	})

	cli.Root().Use = "mapview"
	cli.Root().Short = "Touch gesture map control server"
	cli.Root().Version = server.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// replay subcommand: run recorded input scripts on a virtual clock
	replayCmd := &cobra.Command{
		Use:   "replay <script.yaml>...",
		Short: "Replay scripted pointer input and print the recognized gestures",
		Args:  cobra.MinimumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setupLogging(opts)
			cfg, err := loadConfig(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
				os.Exit(1)
			}
			settle, _ := cmd.Flags().GetDuration("settle")

			failed := 0
			for _, path := range args {
				if err := runScript(path, cfg, settle); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failed++
				}
			}
			if failed > 0 {
				os.Exit(1)
			}
		}),
	}
	replayCmd.Flags().Duration("settle", time.Second, "Virtual time to run after the last step")
	cli.Root().AddCommand(replayCmd)

	cli.Run()
}

func runScript(path string, cfg config.Config, settle time.Duration) error {
	s, err := replay.LoadFile(path)
	if err != nil {
		return err
	}
	res, err := replay.Run(s, cfg.ControlOptions(), settle)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Printf("---\n%s", out)
	return s.Verify(res)
}
