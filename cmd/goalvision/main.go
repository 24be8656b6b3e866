// Goal Vision - color target detection for the robot's vision coprocessor
//
// Grabs frames, isolates the goal's retroreflective tape by HSV color, and
// publishes its position (and distance when known) to the robot's table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-goalvision/internal/config"
	"github.com/teslashibe/go-goalvision/internal/log"
	"github.com/teslashibe/go-goalvision/pkg/calibration"
	"github.com/teslashibe/go-goalvision/pkg/camera"
	"github.com/teslashibe/go-goalvision/pkg/debug"
	"github.com/teslashibe/go-goalvision/pkg/overlay"
	"github.com/teslashibe/go-goalvision/pkg/pipeline"
	"github.com/teslashibe/go-goalvision/pkg/presets"
	"github.com/teslashibe/go-goalvision/pkg/table"
	"github.com/teslashibe/go-goalvision/pkg/vision"
	"github.com/teslashibe/go-goalvision/pkg/web"
)

type options struct {
	goal       presets.Goal
	presetName string
	configPath string
	camera     camera.Config
	table      table.Config
	pipeline   pipeline.Config
	calibrate  bool
	savePreset bool
	dashboard  string
	webDir     string
	logLevel   string
}

func main() {
	opts := parseFlags()
	log.Init(opts.logLevel)
	logger := log.L()

	fmt.Println("🎯 Goal Vision")
	fmt.Println("==============")
	fmt.Printf("Goal:    %s\n", opts.goal.Name)
	fmt.Printf("Table:   %s\n", describeTable(opts.table))
	if opts.calibrate {
		fmt.Printf("Mode:    calibrate (dashboard %s)\n", opts.dashboard)
	}
	fmt.Println()

	ranges, err := presets.Load(opts.configPath)
	if err != nil {
		logger.Warn("ignoring presets", "path", opts.configPath, "error", err)
		if opts.savePreset {
			logger.Warn("preset file will not be saved", "path", opts.configPath)
			opts.savePreset = false
		}
	}
	filter := vision.NewFilter(presets.Seed(ranges, opts.presetName))
	log.Info("filter seeded", "preset", opts.presetName, "range", filter.Range().String())

	dev, err := camera.Open(opts.camera, logger)
	if err != nil {
		fmt.Printf("❌ Camera failed: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()
	dev.ResetToAuto()
	manager := camera.NewManager(opts.camera, dev)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := table.Open(ctx, opts.table, logger)
	if err != nil {
		logger.Warn("table unavailable, publishing to memory only", "backend", opts.table.Backend, "error", err)
		store = table.NewMemory()
	}
	defer store.Close()

	deps := pipeline.Deps{
		Source:   dev,
		Store:    store,
		Filter:   filter,
		Settings: manager,
		Drawer:   overlay.New(opts.goal.Overlay),
	}

	var dash *web.Server
	if opts.calibrate {
		scale := calibration.Scale{
			DisplayWidth:  opts.pipeline.Telemetry.Width,
			DisplayHeight: opts.pipeline.Telemetry.Height,
			NativeWidth:   opts.camera.Width,
			NativeHeight:  opts.camera.Height,
		}
		deps.Sampler = calibration.NewSampler(filter, scale, logger)

		dcfg := web.DefaultConfig()
		dcfg.Addr, dcfg.StaticDir = opts.dashboard, opts.webDir
		dash = web.NewServer(dcfg, filter, deps.Sampler, manager, logger)
		dash.OnQuit = cancel
		dash.StartAsync(ctx)
		fmt.Printf("🌐 Dashboard: http://localhost%s\n", opts.dashboard)
	}

	loop, err := pipeline.New(opts.pipeline, deps, logger)
	if err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		os.Exit(1)
	}
	defer loop.Close()

	if dash != nil {
		if enc := loop.Encoder(); enc != nil {
			enc.OnFrame = func(name string, jpeg []byte) {
				if name == table.KeyImage {
					dash.SendPreview(name, jpeg)
				}
			}
		}
		backend := opts.table.Backend
		loop.OnResult = func(res pipeline.Result) {
			dash.UpdateState(func(st *web.Status) {
				st.Goal, st.Backend, st.Calibrating = opts.goal.Name, backend, true
				st.Latched = loop.Sync().Latched()
				st.Apply(res, loop.Stats())
			})
		}
	}

	fmt.Println("🔄 Running (Ctrl+C to stop)")
	if err := loop.Run(ctx); err != nil {
		fmt.Printf("❌ Runtime error: %v\n", err)
	}

	if opts.calibrate && opts.savePreset {
		r := presets.FromFilter(opts.presetName, filter.Range())
		if err := presets.SaveRange(opts.configPath, r); err != nil {
			log.Warn("failed to save presets", "path", opts.configPath, "error", err)
		} else {
			log.Info("presets saved", "path", opts.configPath, "preset", opts.presetName)
		}
	}

	stats := loop.Stats()
	fmt.Printf("\n👋 Goodbye! %d frames, %d detections\n", stats.Frames, stats.Detections)
}

// parseFlags parses command line flags and environment into options.
func parseFlags() options {
	goalName := flag.String("goal", presets.HighGoal.Name, "Target: high_goal, gear_peg")
	preset := flag.String("preset", "", "Color preset name (defaults to the goal name)")
	configPath := flag.String("config", config.ConfigPath(), "Preset file (VISION_CONFIG)")
	camPreset := flag.String("camera", "default", "Camera preset: default, legacy, 720p, fast, flipped")
	device := flag.Int("device", 0, "Camera device index")
	file := flag.String("file", "", "Replay a video file instead of a camera")
	backend := flag.String("backend", table.BackendWebSocket, "Table backend: memory, websocket, server, mqtt")
	team := flag.Int("team", config.TeamNumber(), "Team number (VISION_TEAM)")
	tableURL := flag.String("table-url", "", "Table server URL (VISION_TABLE_URL, default from team)")
	listen := flag.String("listen", table.DefaultConfig().Listen, "Listen address for the server backend")
	broker := flag.String("mqtt-broker", "", "MQTT broker (VISION_MQTT_BROKER)")
	calibrate := flag.Bool("calibrate", false, "Serve the calibration dashboard")
	savePreset := flag.Bool("save-preset", false, "Write the calibrated range to the preset file on exit")
	dashboard := flag.String("dashboard", web.DefaultConfig().Addr, "Dashboard listen address")
	webDir := flag.String("web-dir", "", "Dashboard static assets")
	noTelemetry := flag.Bool("no-telemetry", false, "Do not publish preview images")
	noOverlay := flag.Bool("no-overlay", false, "Do not annotate previews")
	withoutDepth := flag.Bool("publish-without-depth", false, "Publish [x y w h] when depth is unavailable")
	estimate := flag.Bool("estimate-depth", false, "Estimate distance from the target's apparent width")
	verbose := flag.Bool("debug", false, "Enable verbose debug logging")
	frames := flag.Bool("debug-frames", false, "Trace every frame")
	flag.Parse()

	debug.Enabled, debug.Frames = *verbose, *frames

	opts := options{
		configPath: *configPath,
		calibrate:  *calibrate,
		savePreset: *savePreset,
		dashboard:  *dashboard,
		webDir:     *webDir,
		logLevel:   "info",
	}
	if *verbose {
		opts.logLevel = "debug"
	}

	goal, ok := presets.GetGoal(*goalName)
	if !ok {
		fmt.Printf("❌ Unknown goal %q\n", *goalName)
		os.Exit(1)
	}
	opts.goal = goal
	opts.presetName = goal.Name
	if *preset != "" {
		opts.presetName = *preset
	}

	cam := camera.GetPreset(*camPreset)
	if cam == nil {
		fmt.Printf("❌ Unknown camera preset %q (have %v)\n", *camPreset, camera.PresetNames())
		os.Exit(1)
	}
	opts.camera = *cam
	opts.camera.DeviceID, opts.camera.File = *device, *file

	opts.table = table.DefaultConfig()
	opts.table.Backend, opts.table.Listen = *backend, *listen
	opts.table.URL = config.TableURL(config.TeamTableURL(*team))
	if *tableURL != "" {
		opts.table.URL = *tableURL
	}
	if b := config.MQTTBroker(); b != "" {
		opts.table.Broker = b
	}
	if *broker != "" {
		opts.table.Broker = *broker
	}

	opts.pipeline = pipeline.DefaultConfig()
	opts.pipeline.DetectionKey = goal.DetectionKey
	opts.pipeline.Overlay = !*noOverlay
	opts.pipeline.PublishWithoutDepth = *withoutDepth
	opts.pipeline.EstimateDepth = *estimate
	opts.pipeline.Width.TargetWidth = goal.WidthMeters()
	// The dashboard preview is the telemetry stream.
	opts.pipeline.Telemetry.Enabled = !*noTelemetry || *calibrate
	return opts
}

func describeTable(cfg table.Config) string {
	switch cfg.Backend {
	case table.BackendWebSocket:
		return cfg.URL
	case table.BackendServer:
		return "serving on " + cfg.Listen
	case table.BackendMQTT:
		return "mqtt " + cfg.Broker
	}
	return cfg.Backend
}
