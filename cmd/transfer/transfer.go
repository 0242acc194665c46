// Command transfer is a small demo: it sends a file to a peer as chunked
// datagrams, or listens and prints every message that completes reassembly.
// Run a listener first, then send to it:
//
//	transfer listen 127.0.0.1:9000
//	transfer send 127.0.0.1:9000 ./some.file
package main

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"

	"github.com/TyOverby/unreliable"
	"github.com/TyOverby/unreliable/sock"
)

func main() {
	if len(os.Args) < 3 {
		usage()
	}

	switch os.Args[1] {
	case "listen":
		listen(os.Args[2])
	case "send":
		if len(os.Args) < 4 {
			usage()
		}
		send(os.Args[2], os.Args[3])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: transfer listen <addr:port> | transfer send <addr:port> <file>")
	os.Exit(2)
}

func listen(addr string) {
	local, err := netip.ParseAddrPort(addr)
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]Invalid listen address %s: %v\n", addr, err)
		os.Exit(1)
	}

	socket, err := sock.Open(local)
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]Failed to open socket: %v\n", err)
		os.Exit(1)
	}
	defer socket.Close()

	receiver, err := unreliable.NewReceiver(socket, unreliable.NewDefaultConfig())
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]%v\n", err)
		os.Exit(1)
	}

	colorstring.Printf("[green]Listening on %s\n", addr)

	for {
		from, msg, err := receiver.Poll()
		if err != nil {
			// Malformed datagrams abort a single Poll call only; keep polling.
			colorstring.Fprintf(os.Stderr, "[yellow]Receive error: %v\n", err)
			continue
		}

		colorstring.Printf("[green]Message %d from %s: %d bytes\n", msg.ID, from, len(msg.Payload))
	}
}

func send(dest string, path string) {
	message, err := os.ReadFile(path)
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}

	socket, err := sock.Open(netip.MustParseAddrPort("0.0.0.0:0"))
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]Failed to open socket: %v\n", err)
		os.Exit(1)
	}
	defer socket.Close()

	sender, err := unreliable.NewSender(socket, unreliable.NewDefaultConfig())
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]%v\n", err)
		os.Exit(1)
	}

	if err := sender.Enqueue(message, dest); err != nil {
		colorstring.Fprintf(os.Stderr, "[red]Failed to enqueue: %v\n", err)
		os.Exit(1)
	}

	bar := progressbar.NewOptions(sender.QueuedChunks(),
		progressbar.OptionSetDescription(fmt.Sprintf("Sending %s", path)),
		progressbar.OptionShowCount(),
	)

	for {
		more, err := sender.SendOne()
		if err != nil {
			colorstring.Fprintf(os.Stderr, "\n[red]Send failed: %v\n", err)
			os.Exit(1)
		}

		_ = bar.Add(1)

		if !more {
			break
		}
	}

	colorstring.Printf("\n[green]Sent %d bytes to %s\n", len(message), dest)
}
