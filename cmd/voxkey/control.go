package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxkey/voxkey/internal/ipc"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a dictation turn on the running daemon",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAction(ipc.ActionStart)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active dictation turn",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAction(ipc.ActionStop)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle dictation on or off",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAction(ipc.ActionToggle)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's session state",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAction(ipc.ActionStatus)
	},
}

// sendAction performs one command round trip and prints the daemon's state.
func sendAction(action string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	resp, err := ipc.NewClient(cfg.IPC.Socket).Send(action)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("daemon refused %s: %s", action, resp.Error)
	}

	fmt.Printf("state: %s (turn %s)\n", resp.Data[ipc.DataKeyState], resp.Data[ipc.DataKeyTurn])
	return nil
}
