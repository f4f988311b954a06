// Package link speaks the winder's line protocol over a serial port:
// one command out, one response line back. Retry and timeout policy
// lives here on the host side; the firmware only guarantees that
// every command is answered.
package link

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"puwinder/host/serial"
)

// ErrTimeout is returned when the firmware does not answer in time.
var ErrTimeout = fmt.Errorf("timed out waiting for response")

// Link is a synchronous command/response channel to the firmware.
type Link struct {
	port    serial.Port
	reader  *bufio.Reader
	Timeout time.Duration
}

// Open connects to the firmware and verifies the link with a PING.
func Open(cfg *serial.Config) (*Link, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	l := &Link{
		port:    port,
		reader:  bufio.NewReader(port),
		Timeout: 2 * time.Second,
	}

	resp, err := l.Send("PING")
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("firmware not responding: %w", err)
	}
	if resp != "PONG" {
		port.Close()
		return nil, fmt.Errorf("unexpected PING response %q", resp)
	}
	return l, nil
}

// Close shuts down the serial port.
func (l *Link) Close() error {
	return l.port.Close()
}

// Send writes one command line and waits for its response line.
func (l *Link) Send(command string) (string, error) {
	if _, err := l.port.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("write failed: %w", err)
	}

	deadline := time.Now().Add(l.Timeout)
	var buf []byte
	for {
		b, err := l.reader.ReadByte()
		if err != nil {
			// The port read timeout expired; keep polling until the
			// command deadline without losing the partial line.
			if time.Now().After(deadline) {
				return "", ErrTimeout
			}
			continue
		}
		if b != '\n' {
			buf = append(buf, b)
			continue
		}
		line := strings.TrimSpace(string(buf))
		if line == "" {
			buf = buf[:0]
			continue
		}
		return line, nil
	}
}

// Version asks the firmware to identify itself.
func (l *Link) Version() (string, error) {
	return l.Send("VERSION")
}

// Status fetches the structured status line.
func (l *Link) Status() (string, error) {
	return l.Send("STATUS")
}

// EmergencyStop sends M112. The response is checked but an emergency
// stop is considered delivered once written.
func (l *Link) EmergencyStop() error {
	resp, err := l.Send("M112")
	if err != nil {
		return err
	}
	if resp != "OK" {
		return fmt.Errorf("M112 answered %q", resp)
	}
	return nil
}
