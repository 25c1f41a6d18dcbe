// Command chat-client connects to a chat server and bridges the
// console: lines read from stdin are sent to the room, and broadcast
// messages are printed to stdout, one line per message.
//
//	chat-client <host> <port>
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/Zereker/chat"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Connect to a text chat server\n\n\t%s <host> <port>\n\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	client, err := chat.Dial(net.JoinHostPort(flag.Arg(0), flag.Arg(1)), os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chat-client:", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(context.Background())
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := client.Send(scanner.Bytes()); err != nil {
			break
		}
	}

	// Input exhausted or the connection failed: close and wait for the
	// read loop to finish.
	_ = client.Close()
	<-done
}
