package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"puwinder/config"
	"puwinder/host/link"
	"puwinder/host/serial"
)

var (
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	configPath = flag.String("config", "", "Machine configuration YAML")
	statusPoll = flag.Duration("poll", 0, "Poll STATUS at this interval instead of the console")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	serialCfg := serial.DefaultConfig(cfg.Serial.Port)
	serialCfg.Baud = cfg.Serial.Baud
	if *device != "" {
		serialCfg.Device = *device
	}
	if *baud != 0 {
		serialCfg.Baud = *baud
	}

	fmt.Printf("Connecting to winder on %s...\n", serialCfg.Device)
	conn, err := link.Open(serialCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	version, err := conn.Version()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected: %s\n", version)

	if *statusPoll > 0 {
		pollStatus(conn, *statusPoll)
		return
	}

	runConsole(conn, cfg)
}

// pollStatus prints the firmware status line until interrupted.
func pollStatus(conn *link.Link, interval time.Duration) {
	for {
		status, err := conn.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println(status)
		time.Sleep(interval)
	}
}

// runConsole is the interactive command loop. Anything that is not a
// console builtin is sent to the firmware verbatim.
func runConsole(conn *link.Link, cfg config.Machine) {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(strings.Fields(line)[0]) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "wind":
			// Bare "wind" starts the configured default job;
			// "wind ..." with arguments passes through unchanged.
			if line == "wind" {
				line = fmt.Sprintf("WIND T%d S%g W%g D%g Y%g",
					cfg.Winding.TargetTurns,
					cfg.Winding.SpindleRPM,
					cfg.Winding.WidthMM,
					cfg.Winding.WireDiameterMM,
					cfg.Winding.StartPosMM)
				fmt.Printf("-> %s\n", line)
			}
			sendAndPrint(conn, line)

		case "stop":
			if err := conn.EmergencyStop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else {
				fmt.Println("Emergency stop delivered")
			}

		default:
			sendAndPrint(conn, line)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func sendAndPrint(conn *link.Link, line string) {
	resp, err := conn.Send(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(resp)
}

func printHelp() {
	fmt.Println("\nConsole commands:")
	fmt.Println("  help            - Show this help message")
	fmt.Println("  wind            - Start the winding job from the config file")
	fmt.Println("  stop            - Emergency stop (M112)")
	fmt.Println("  quit/exit/q     - Exit the program")
	fmt.Println("\nEverything else is sent to the firmware as-is, e.g.:")
	fmt.Println("  STATUS          - Spindle RPM, run state, traverse position")
	fmt.Println("  G28             - Home the traverse axis")
	fmt.Println("  G1 Y50 F1000    - Move traverse to 50mm")
	fmt.Println("  M3 S300         - Spindle clockwise at 300 RPM")
	fmt.Println("  M5              - Stop spindle")
	fmt.Println("  M0 / M1         - Feed hold / resume")
	fmt.Println("  M410            - Quick stop (discard queued motion)")
	fmt.Println("  M999            - Reset after emergency stop")
	fmt.Println()
}
