package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/keyweave/keyweave/internal/config"
	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/hid"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/logging"
	"github.com/keyweave/keyweave/internal/pipeline"
	"github.com/keyweave/keyweave/internal/pty"
	"github.com/keyweave/keyweave/internal/tui"
	"github.com/keyweave/keyweave/internal/ui"
)

const Version = "0.1.0"

func main() {
	// Check for subcommands first
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit(os.Args[2:])
			return
		case "list-devices":
			runListDevices()
			return
		case "set-device", "select-device":
			runSetDevice(os.Args[2:])
			return
		case "inspect":
			runInspect(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	// Main command flags
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	version := flag.Bool("version", false, "print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if *version {
		ui.PrintVersion(Version)
		os.Exit(0)
	}

	log := logging.Setup(*verbose)

	watcher, err := config.NewWatcher(*configPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	cfg := watcher.Get()
	log.Debug().Str("path", *configPath).
		Uint16("vendor_id", cfg.Device.VendorID).
		Uint16("product_id", cfg.Device.ProductID).
		Str("command", cfg.Run.Command).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	app, err := newApp(cfg, watcher, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	go func() {
		<-sigChan
		log.Debug().Msg("received shutdown signal")
		cancel()
	}()

	watcher.Start()
	defer watcher.Stop()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("application error")
	}

	log.Debug().Msg("shutdown complete")
}

func printUsage() {
	ui.PrintUsage(Version)
}

// runListDevices handles the list-devices subcommand
func runListDevices() {
	devices, err := hid.ListDevices()
	if err != nil {
		ui.PrintFatalError("Failed to list devices", err.Error())
		os.Exit(1)
	}
	uiDevices := make([]ui.DeviceInfo, len(devices))
	for i, d := range devices {
		uiDevices[i] = ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
		}
	}
	ui.PrintDeviceList(uiDevices)
}

// runInit handles the init subcommand: a short wizard that picks the
// keyboard and the command to run, then writes a starter config.
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.Usage = func() {
		ui.PrintInitUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if config.Exists(*configPath) && !*force {
		ui.PrintFatalError("Config already exists",
			fmt.Sprintf("%s is already present; pass -force to overwrite it", *configPath))
		os.Exit(1)
	}

	device, err := selectDevice()
	if err != nil {
		ui.PrintFatalError("Device selection failed", err.Error())
		os.Exit(1)
	}
	if device == nil {
		fmt.Println(ui.Muted("No device selected"))
		os.Exit(0)
	}

	defaultCmd := os.Getenv("SHELL")
	if defaultCmd == "" {
		defaultCmd = "/bin/sh"
	}
	command, err := ui.PromptCommand(defaultCmd)
	if err != nil {
		ui.PrintFatalError("Command prompt failed", err.Error())
		os.Exit(1)
	}

	if err := config.CreateDefaultConfig(*configPath, device.VendorID, device.ProductID); err != nil {
		ui.PrintFatalError("Failed to create config", err.Error())
		os.Exit(1)
	}
	if err := config.UpdateRunCommand(*configPath, command); err != nil {
		ui.PrintFatalError("Failed to set run command", err.Error())
		os.Exit(1)
	}
	ui.PrintDeviceCreated(*configPath, device.VendorID, device.ProductID)
}

// runSetDevice handles the set-device subcommand
func runSetDevice(args []string) {
	fs := flag.NewFlagSet("set-device", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	fs.Usage = func() {
		ui.PrintSetDeviceUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	remaining := fs.Args()

	var vendorID, productID uint16

	if len(remaining) >= 2 {
		// Parse provided IDs
		vid, err := parseID(remaining[0])
		if err != nil {
			ui.PrintFatalError("Invalid vendor_id", fmt.Sprintf("%q: %v", remaining[0], err))
			os.Exit(1)
		}
		pid, err := parseID(remaining[1])
		if err != nil {
			ui.PrintFatalError("Invalid product_id", fmt.Sprintf("%q: %v", remaining[1], err))
			os.Exit(1)
		}
		vendorID = vid
		productID = pid

		// The IDs are written regardless so a config can be prepared before
		// the keyboard is plugged in, but an absent device is worth a note.
		if found, _ := hid.FindDevice(vendorID, productID); found == nil {
			fmt.Println(ui.Muted(fmt.Sprintf("Note: no device 0x%04X:0x%04X is currently connected", vendorID, productID)))
		}
	} else if len(remaining) == 1 {
		ui.PrintFatalError("Invalid arguments", "Both vendor_id and product_id must be provided, or neither")
		os.Exit(1)
	} else {
		// Interactive selection
		device, err := selectDevice()
		if err != nil {
			ui.PrintFatalError("Device selection failed", err.Error())
			os.Exit(1)
		}
		if device == nil {
			fmt.Println(ui.Muted("No device selected"))
			os.Exit(0)
		}
		vendorID = device.VendorID
		productID = device.ProductID
	}

	// Update or create config file
	if config.Exists(*configPath) {
		if err := config.UpdateDeviceIDs(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to update config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceUpdated(*configPath, vendorID, productID)
	} else {
		if err := config.CreateDefaultConfig(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to create config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceCreated(*configPath, vendorID, productID)
	}
}

// runInspect handles the inspect subcommand: an interactive terminal harness
// that feeds typed characters through the engine and shows its state.
func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	fs.Usage = func() {
		ui.PrintInspectUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.PrintFatalError("Failed to load config", err.Error())
		os.Exit(1)
	}

	lay, err := cfg.Build()
	if err != nil {
		ui.PrintFatalError("Failed to build layout", err.Error())
		os.Exit(1)
	}

	if err := tui.Run(lay, pipelineOptions(cfg)); err != nil {
		ui.PrintFatalError("Inspector failed", err.Error())
		os.Exit(1)
	}
}

// parseID parses a vendor or product ID from string (supports hex with 0x prefix or decimal)
func parseID(s string) (uint16, error) {
	s = strings.TrimSpace(s)

	var val uint64
	var err error

	if strings.HasPrefix(strings.ToLower(s), "0x") {
		val, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		val, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return 0, err
	}

	return uint16(val), nil
}

// selectDevice displays an interactive device selection menu using huh
func selectDevice() (*ui.DeviceInfo, error) {
	devices, err := hid.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no HID devices found")
	}

	// Deduplicate devices by vendor/product ID
	seen := make(map[uint32]bool)
	var unique []ui.DeviceInfo

	for _, d := range devices {
		key := uint32(d.VendorID)<<16 | uint32(d.ProductID)
		if seen[key] {
			continue
		}
		seen[key] = true

		// Skip devices with no vendor/product ID
		if d.VendorID == 0 && d.ProductID == 0 {
			continue
		}

		unique = append(unique, ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
		})
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("no identifiable HID devices found")
	}

	return ui.SelectDevice(unique)
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		TapDelay:            time.Duration(cfg.Timing.TapDelayMs) * time.Millisecond,
		SentenceCaseTimeout: uint16(cfg.Timing.SentenceCaseTimeoutMs),
		SelectWordTimeout:   uint16(cfg.Timing.SelectWordTimeoutMs),
		CapsWordTimeout:     uint16(cfg.Timing.CapsWordTimeoutMs),
		LayerLockTimeout:    uint16(cfg.Timing.LayerLockTimeoutMs),
		SpaceRepeatShift:    cfg.Ergonomics.SpaceRepeatShift,
		VowelPattern:        cfg.Ergonomics.VowelPattern,
	}
}

type App struct {
	config     *config.Config
	log        zerolog.Logger
	hidDevice  *hid.Device
	ptyManager *pty.Manager
	engine     *pipeline.Pipeline
	reload     chan *config.Config
}

func newApp(cfg *config.Config, watcher *config.Watcher, log zerolog.Logger) (*App, error) {
	app := &App{
		config: cfg,
		log:    log,
		reload: make(chan *config.Config, 1),
	}

	lay, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build layout: %w", err)
	}

	hidDevice, err := hid.NewDevice(cfg.Device.VendorID, cfg.Device.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to open HID device: %w", err)
	}
	app.hidDevice = hidDevice

	ptyManager, err := pty.NewManager(cfg.Run.Command, cfg.Run.Args, cfg.Run.WorkingDir)
	if err != nil {
		hidDevice.Close()
		return nil, fmt.Errorf("failed to create PTY manager: %w", err)
	}
	app.ptyManager = ptyManager

	emitter := pty.NewEmitter(ptyManager, 0, log)
	app.engine = pipeline.New(lay, emitter, pipelineOptions(cfg), log)

	watcher.OnReload(func(newCfg *config.Config) {
		select {
		case app.reload <- newCfg:
		default:
		}
	})

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	if err := a.ptyManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	reports := a.startReader(ctx)

	ticker := time.NewTicker(time.Duration(a.config.Device.PollIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	// All engine work happens on this goroutine. The pipeline is not safe
	// for concurrent use; reloads are applied between events.
	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case newCfg := <-a.reload:
			a.applyConfig(newCfg)
		case report, ok := <-reports:
			if !ok {
				a.log.Warn().Msg("HID device disconnected, waiting for it to return")
				if err := a.hidDevice.WaitForDevice(ctx, time.Second); err != nil {
					return fmt.Errorf("HID device disconnected: %w", err)
				}
				a.log.Info().Msg("HID device reconnected")
				reports = a.startReader(ctx)
				continue
			}
			a.handleReport(report)
		case <-ticker.C:
			a.engine.Tick(now())
		}
	}
}

// startReader drains key reports from the device into a channel that closes
// when the device stops delivering.
func (a *App) startReader(ctx context.Context) chan hid.Report {
	reports := make(chan hid.Report, 64)
	go func() {
		if err := a.hidDevice.ReadReports(ctx, reports); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("HID read error")
		}
		close(reports)
	}()
	return reports
}

// now is the engine clock: host milliseconds truncated to the wrapping
// 16-bit timestamp the timing logic works in. Device timestamps are logged
// but not used, keeping events and timeouts on one clock.
func now() uint16 {
	return uint16(time.Now().UnixMilli())
}

func (a *App) handleReport(report hid.Report) {
	a.log.Debug().Stringer("report", report).Msg("key report")

	pos := event.Pos{Row: report.Row, Col: report.Col}
	a.engine.Handle(event.Event{
		Pos:     pos,
		Key:     a.engine.ResolveKey(pos),
		Pressed: report.Pressed,
		Time:    now(),
	})
	a.sendStatus()
}

func (a *App) applyConfig(cfg *config.Config) {
	lay, err := cfg.Build()
	if err != nil {
		// The watcher validates before notifying, so this is unexpected.
		a.log.Error().Err(err).Msg("failed to build layout from reloaded config")
		return
	}
	a.config = cfg
	emitter := pty.NewEmitter(a.ptyManager, 0, a.log)
	a.engine = pipeline.New(lay, emitter, pipelineOptions(cfg), a.log)
	a.log.Info().Msg("engine rebuilt from reloaded config")
}

// sendStatus mirrors engine state to the keyboard's indicators. Errors are
// ignored; indicators are best effort.
func (a *App) sendStatus() {
	var flags byte
	if a.engine.CapsWord().Active() {
		flags |= hid.StatusCapsWord
	}
	if a.engine.LayerLock().LockedLayers() != 0 {
		flags |= hid.StatusLayerLock
	}
	if a.engine.SelectWord().State() != 0 {
		flags |= hid.StatusSelection
	}
	if a.engine.Chord().Pending() != keycode.KeyNone {
		flags |= hid.StatusPending
	}
	_ = a.hidDevice.SendStatus(&hid.Status{
		Flags: flags,
		Layer: uint8(a.engine.HighestLayer()),
		Mods:  uint8(a.engine.Mods()),
	})
}

func (a *App) shutdown() {
	a.log.Debug().Msg("shutting down")
	a.ptyManager.Stop()
	a.hidDevice.Close()
}
