// Package main is the entry point for the crybaby CLI.
//
// Usage:
//
//	crybaby [flags] <command> [args]
//
// Commands:
//
//	run          - Record continuously and save a prediction for every loud clip
//	once         - Record one clip and print its score
//	classify     - Score existing WAV files
//	inspect      - Describe a WAV file and its feature tensor
//	predictions  - List saved predictions
//	devices      - List capture devices
//	config       - Manage the configuration file
//	version      - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/crybaby/cmd/crybaby/commands"
	"github.com/haivivi/crybaby/pkg/recorder/padevice"
)

func main() {
	commands.SetAudioBackend(padevice.Open, padevice.List)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
