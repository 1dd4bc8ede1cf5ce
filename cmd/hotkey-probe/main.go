// Command hotkey-probe is a manual test for the global shortcut listener.
// Run it, then press Ctrl+Shift+R to see edge events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/hotkey-probe [--mode hold|toggle]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxkey/voxkey/internal/hotkey"
)

func main() {
	mode := flag.String("mode", "hold", "shortcut mode: hold or toggle")
	flag.Parse()

	keys := []string{"ctrl", "shift", "r"}
	fmt.Printf("Listening for Ctrl+Shift+R in %q mode...\n", *mode)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(keys, *mode)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventPressed:
				fmt.Println(">>> PRESSED  (start capture)")
			case hotkey.EventReleased:
				fmt.Println("<<< RELEASED (stop capture)")
			case hotkey.EventToggled:
				fmt.Println("<-> TOGGLED")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
