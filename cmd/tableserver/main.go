// Table Server - bench stand-in for the robot's table
//
// Serves the key/value table over websocket and REST so the vision process
// can run without a robot controller.
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
	"github.com/teslashibe/go-goalvision/pkg/presets"
	"github.com/teslashibe/go-goalvision/pkg/table"
)

func main() {
	listen := flag.String("listen", ":"+config.DefaultTablePort, "Listen address")
	namespace := flag.String("namespace", table.DefaultNamespace, "Table namespace")
	seedFile := flag.String("seed", "", "Preset file to request bounds from on start")
	preset := flag.String("preset", presets.HighGoal.Name, "Preset to request with -seed")
	verbose := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	fmt.Println("📋 Table Server")
	fmt.Println("===============")
	fmt.Printf("Listen:    %s\n", *listen)
	fmt.Printf("Namespace: %s\n\n", *namespace)

	store := table.NewMemory()
	changes := log.Component("tableserver")
	store.OnChange(func(key string, v table.Value) {
		changes.Debug("entry changed", "key", key, "kind", v.Kind)
	})

	if *seedFile != "" {
		if err := seed(store, *namespace, *seedFile, *preset); err != nil {
			fmt.Printf("❌ Seed failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("🌱 Requested bounds from preset %q\n", *preset)
	}

	server := table.NewServer(store, logger)
	app := table.NewApp(server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		fmt.Println("\n👋 Goodbye!")
		app.Shutdown()
	}()

	if err := app.Listen(*listen); err != nil {
		fmt.Printf("❌ Server error: %v\n", err)
		os.Exit(1)
	}
}

// seed writes a preset's bounds and raises the bounds request flag, the way
// the driver station does.
func seed(store *table.Memory, namespace, path, name string) error {
	ranges, err := presets.Load(path)
	if err != nil {
		return err
	}
	r := presets.Seed(ranges, name)

	keys := table.NewKeys(namespace)
	for i, k := range keys.Bounds() {
		if err := store.PutNumber(k, r.Array()[i]); err != nil {
			return err
		}
	}
	return store.PutBoolean(keys.Key(table.KeyHSVFromSD), true)
}
