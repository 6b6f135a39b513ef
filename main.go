package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "go-welte"})

	var err error
	switch os.Args[1] {
	case "expand":
		err = runExpand(logger, os.Args[2:])
	case "velocities":
		err = runVelocities(logger, os.Args[2:])
	case "curve":
		err = runCurve(logger, os.Args[2:])
	case "ports":
		err = runPorts(logger, os.Args[2:])
	case "play":
		err = runPlay(logger, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("failed", "cmd", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("go-welte - expression for Red Welte reproducing piano rolls")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  expand [flags] IN.mid OUT.mid  - add velocities, pan and pedalling")
	fmt.Println("  velocities [flags] IN.mid      - list note onsets and velocities")
	fmt.Println("  curve [flags] IN.mid           - print the per-millisecond dynamics")
	fmt.Println("  ports                          - list MIDI output ports")
	fmt.Println("  play [flags] IN.mid            - expand in memory and play to a port")
	fmt.Println("")
	fmt.Println("Run a command with -h for its flags.")
}
