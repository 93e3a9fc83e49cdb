// Package main provides the scribewire meeting transcription CLI.
//
// Usage:
//
//	scribewire [flags] <command>
//
// Commands:
//
//	gateway - audio ingress server: websocket in, transcript events out
//	bot     - chat bot: renders transcript events into a channel
//	send    - stream a raw PCM file to a gateway for testing
//	version - print version information
package main

import (
	"fmt"
	"os"

	"github.com/scribewire/scribewire/cmd/scribewire/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
