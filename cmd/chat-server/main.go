// Command chat-server runs the broadcast chat server on one or more
// TCP ports. Every port shares a single room, so all connected clients
// see the same conversation.
//
//	chat-server [options] <port> [<port>...]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"

	"github.com/Zereker/chat"
)

func main() {
	var (
		ip      = flag.String("ip", "", "Listen address (default all interfaces)")
		backlog = flag.Int("backlog", chat.DefaultMaxBacklog, "Number of recent messages replayed to new clients")
	)
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Launch text chat server over TCP\n\n\t%s [options] <port> [<port>...]\nOptions:\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprint(out, "\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	addrs := make([]*net.TCPAddr, 0, flag.NArg())
	for _, arg := range flag.Args() {
		port, err := strconv.Atoi(arg)
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(os.Stderr, "chat-server: invalid port %q\n", arg)
			os.Exit(1)
		}
		addrs = append(addrs, &net.TCPAddr{IP: net.ParseIP(*ip), Port: port})
	}

	logger := slog.Default()

	room := chat.NewRoom(
		chat.RoomBacklogOption(*backlog),
		chat.RoomLoggerOption(logger),
	)

	server, err := chat.NewServer(addrs,
		chat.ServerRoomOption(room),
		chat.ServerLoggerOption(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chat-server:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down server...")
		cancel()
	}()

	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
