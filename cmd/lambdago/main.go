package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mlefort/LambdaGo/internal/config"
	"github.com/mlefort/LambdaGo/internal/debug"
	"github.com/mlefort/LambdaGo/internal/hw/serialport"
	"github.com/mlefort/LambdaGo/internal/logic/sequence"
	"github.com/mlefort/LambdaGo/internal/logic/session"
	"github.com/mlefort/LambdaGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	portName := flag.String("port", "", "serial port override (e.g. /dev/ttyUSB0 or COM13)")
	mock := flag.Bool("mock", false, "use the mock device instead of real hardware")
	demo := flag.Bool("demo", false, "run the shutter cycle and wheel sweep demo, then exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Apply CLI overrides to config
	applyOverrides(cfg, *portName, *mock)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock serial", cfg.Defaults.MockSerial)
	debug.Value("Serial port", cfg.Serial.Port)

	// Connect to the controller; this queries the configuration and
	// homes every detected wheel and shutter.
	debug.Step(1, "Connecting to the Lambda 10-3")
	ctrl, err := session.Connect(cfg.Defaults.MockSerial, serialport.Config{
		Port:     cfg.Serial.Port,
		BaudRate: cfg.Serial.BaudRate,
		Timeout:  cfg.Timeout(),
	})
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.Printf("closing controller failed: %v", err)
		}
	}()

	if port := webPort.port(); port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		srv := web.NewServer(webAddr, broadcaster, ctrl, cfg.Defaults.MoveSpeed, filterLabels(cfg))
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	if *demo {
		if err := runDemo(ctx, ctrl, cfg); err != nil {
			log.Fatalf("demo failed: %v", err)
		}
		return
	}

	// No web server and no demo: report what the controller found.
	printHardware(ctrl, cfg)
}

// runDemo exercises every detected shutter and wheel.
func runDemo(ctx context.Context, ctrl *session.Controller, cfg *config.Config) error {
	seq := sequence.New(ctrl)

	debug.Section("Shutter cycle demo")
	if err := seq.CycleShutters(ctx, sequence.CycleParams{
		Repeats: 3,
		Dwell:   200 * time.Millisecond,
	}); err != nil {
		return fmt.Errorf("cycle shutters: %w", err)
	}

	debug.Section("Wheel sweep demo")
	if err := seq.SweepWheels(ctx, sequence.SweepParams{
		Speed: cfg.Defaults.MoveSpeed,
	}); err != nil {
		return fmt.Errorf("sweep wheels: %w", err)
	}

	debug.Section("Demo Complete")
	return nil
}

// printHardware lists the detected modules and configured filter labels.
func printHardware(ctrl *session.Controller, cfg *config.Config) {
	wheels := ctrl.Wheels()
	shutters := ctrl.Shutters()
	if len(wheels) == 0 && len(shutters) == 0 {
		fmt.Println("No wheels or shutters detected.")
		return
	}
	for _, wheel := range wheels {
		fmt.Printf("Wheel %s: 10 positions\n", wheel.Name())
		for pos := 0; pos < 10; pos++ {
			if label := cfg.FilterName(wheel.Name(), pos); label != "" {
				fmt.Printf("  %d: %s\n", pos, label)
			}
		}
	}
	for _, shutter := range shutters {
		fmt.Printf("Shutter %s\n", shutter.Name())
	}
}

// applyOverrides mutates cfg with CLI overrides. Zero values are ignored.
func applyOverrides(cfg *config.Config, port string, mock bool) {
	if port != "" {
		cfg.Serial.Port = port
	}
	if mock {
		cfg.Defaults.MockSerial = true
	}
}

// filterLabels extracts the per-wheel position labels for the web panel.
func filterLabels(cfg *config.Config) map[string][]string {
	labels := make(map[string][]string, len(cfg.Wheels))
	for name, wheel := range cfg.Wheels {
		labels[name] = wheel.Filters
	}
	return labels
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
