// Command ws_chat is a terminal client for the relay's plain-text protocol.
// It joins a room, prints everything the server pushes, and forwards stdin
// lines (including /list, /join, /name commands) to the server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://127.0.0.1:8080/ws", "WebSocket address")
	room := flag.String("room", "", "room to join on start (default room otherwise)")
	name := flag.String("name", "", "display name")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(text string) {
		if writeErr := conn.Write(ctx, websocket.MessageText, []byte(text)); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	if *name != "" {
		send("/name " + *name)
	}
	if *room != "" {
		send("/join " + *room)
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		send(line)
	}
	return scanner.Err()
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("read: %v", err)
			}
			return
		}
		if typ == websocket.MessageText {
			fmt.Printf("< %s\n", data)
		}
	}
}
