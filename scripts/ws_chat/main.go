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
	"strings"
	"syscall"

	"github.com/coder/websocket"

	"github.com/vovakirdan/linechat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	room := flag.String("room", "Main", "room to join")
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

	for _, line := range []string{
		proto.CommandUsername + ":" + *user,
		proto.CommandJoin + ":" + *room,
	} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. /list, /create NAME, /join NAME, /quit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		fmt.Println(render(proto.Decode(string(data))))
	}
}

func render(f proto.Frame) string {
	switch f.Command {
	case proto.ReplyChat:
		user, color, text, err := proto.ParseChat(f.Payload)
		if err != nil {
			return f.String()
		}
		return fmt.Sprintf("%s (#%s): %s", user, color, text)
	case proto.ReplySystem:
		return "* " + f.Payload
	case proto.ReplyJoined:
		return "joined " + f.Payload
	case proto.ReplyRooms:
		rooms, err := proto.ParseRooms(f.Payload)
		if err != nil {
			return f.String()
		}
		if len(rooms) == 0 {
			return "no rooms"
		}
		parts := make([]string, 0, len(rooms))
		for _, r := range rooms {
			parts = append(parts, fmt.Sprintf("%s (%d)", r.Name, r.Members))
		}
		return "rooms: " + strings.Join(parts, ", ")
	default:
		return f.String()
	}
}

// toLine maps a typed line onto a protocol line.
func toLine(input string) string {
	switch {
	case input == "/quit":
		return proto.StopWord
	case input == "/list":
		return proto.CommandList + ":"
	case strings.HasPrefix(input, "/create "):
		return proto.CommandCreate + ":" + strings.TrimSpace(strings.TrimPrefix(input, "/create "))
	case strings.HasPrefix(input, "/join "):
		return proto.CommandJoin + ":" + strings.TrimSpace(strings.TrimPrefix(input, "/join "))
	default:
		return proto.CommandMsg + ":" + input
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			out := toLine(text)
			if err := conn.Write(ctx, websocket.MessageText, []byte(out)); err != nil {
				log.Printf("send error: %v", err)
				return
			}
			if out == proto.StopWord {
				return
			}
		}
	}
}
