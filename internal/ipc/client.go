package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Client sends one command per call to a running daemon.
type Client struct {
	socket  string
	timeout time.Duration
}

// NewClient returns a Client for the daemon listening on socket.
func NewClient(socket string) *Client {
	return &Client{socket: socket, timeout: 2 * time.Second}
}

// Send performs a single command round trip.
func (c *Client) Send(action string) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socket, c.timeout)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: daemon not reachable at %s: %w", c.socket, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	cmd := Command{
		ID:        uuid.New().String(),
		Action:    action,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: encoding command: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return Response{}, fmt.Errorf("ipc: sending command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("ipc: reading response: %w", err)
		}
		return Response{}, fmt.Errorf("ipc: daemon closed connection without replying")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("ipc: decoding response: %w", err)
	}
	if resp.ID != cmd.ID {
		return Response{}, fmt.Errorf("ipc: response id mismatch: sent %s, got %s", cmd.ID, resp.ID)
	}
	return resp, nil
}
