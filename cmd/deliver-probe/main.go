// Command deliver-probe is a manual test for text delivery.
// It waits 3 seconds, then delivers a few incremental deltas the way a live
// dictation turn would. Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/deliver-probe [--method auto|paste|type|clipboard]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/deliver"
	"github.com/voxkey/voxkey/pkg/logger"
)

func main() {
	method := flag.String("method", "auto", "delivery method: auto, paste, type, or clipboard")
	flag.Parse()

	deltas := []string{"Hello", " from", " voxkey!"}

	fmt.Printf("Will deliver %q using %q method in 3 seconds...\n", deltas, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	log, err := logger.New(logger.Config{Level: "debug", Format: "console"})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	cfg := config.Default().Deliver
	cfg.Method = *method
	d := deliver.New(cfg, deliver.NopHider{}, log)

	for _, delta := range deltas {
		if err := d.Deliver(delta); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		// Space the deltas out like streaming partials.
		time.Sleep(300 * time.Millisecond)
	}

	fmt.Println("\nDone!")
}
