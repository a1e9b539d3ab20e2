package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/linechat/internal/proto"
)

func TestHubGreetsAndRequiresUsername(t *testing.T) {
	hub := startHub(t, testOptions())

	c := NewClient("c", "", 8)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if f := mustNext(t, c); f != proto.OK("Connected to server") {
		t.Fatalf("greeting = %+v", f)
	}

	for _, line := range []string{"CREATE:x", "JOIN:Main", "MSG:hi", "plain text"} {
		send(hub, c, line)
		if f := mustNext(t, c); f != proto.Error(ErrCodeNotRegistered) {
			t.Fatalf("%q before username: got %+v", line, f)
		}
	}

	send(hub, c, "LIST:")
	if f := mustNext(t, c); f.Command != proto.ReplyRooms || f.Payload != "Main [0]" {
		t.Fatalf("list before username: %+v", f)
	}

	send(hub, c, "USERNAME:alice")
	if f := mustNext(t, c); f != proto.OK("Username set - alice") {
		t.Fatalf("username reply: %+v", f)
	}
}

func TestHubUsernameValidation(t *testing.T) {
	hub := startHub(t, testOptions())
	c := connect(t, hub, "c")

	send(hub, c, "USERNAME:a:b")
	if f := mustNext(t, c); f != proto.Error(ErrCodeInvalidUsername) {
		t.Fatalf("colon name: %+v", f)
	}

	send(hub, c, "USERNAME:"+strings.Repeat("x", 17))
	if f := mustNext(t, c); f != proto.Error(ErrCodePayloadTooLong) {
		t.Fatalf("long name: %+v", f)
	}

	send(hub, c, "USERNAME:   ")
	if f := mustNext(t, c); f != proto.OK("Username set - "+AnonymousName) {
		t.Fatalf("blank name: %+v", f)
	}
}

func TestHubUnknownCommand(t *testing.T) {
	hub := startHub(t, testOptions())
	c := login(t, hub, "alice")

	send(hub, c, "DANCE:now")
	if f := mustNext(t, c); f != proto.Error(ErrCodeUnknownCommand) {
		t.Fatalf("got %+v", f)
	}

	send(hub, c, "LIST:")
	mustFrame(t, c, proto.ReplyRooms)
}

func TestHubCreateRoom(t *testing.T) {
	hub := startHub(t, testOptions())
	c := login(t, hub, "alice")

	send(hub, c, "CREATE:Lobby")
	if f := mustNext(t, c); f != proto.OK("Room created - Lobby") {
		t.Fatalf("create: %+v", f)
	}

	send(hub, c, "CREATE:Lobby")
	if f := mustNext(t, c); f != proto.Error(ErrCodeRoomExists) {
		t.Fatalf("duplicate: %+v", f)
	}

	for _, bad := range []string{"", "  ", "a;b", "a:b"} {
		send(hub, c, "CREATE:"+bad)
		if f := mustNext(t, c); f != proto.Error(ErrCodeInvalidRoomName) {
			t.Fatalf("create %q: %+v", bad, f)
		}
	}

	rooms := hub.Rooms()
	if len(rooms) != 2 || rooms[1].Name != "Lobby" || rooms[1].Owner != "alice" || rooms[1].Capacity != 5 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestHubJoinCapacityScenario(t *testing.T) {
	opts := testOptions()
	opts.RoomCapacity = 2
	hub := startHub(t, opts)

	a := login(t, hub, "A")
	b := login(t, hub, "B")
	c := login(t, hub, "C")

	send(hub, a, "CREATE:Lobby")
	mustFrame(t, a, proto.ReplyOK)

	send(hub, a, "JOIN:Lobby")
	if f := mustNext(t, a); f != proto.Joined("Lobby") {
		t.Fatalf("A join: %+v", f)
	}
	if f := mustNext(t, a); f != proto.System("A joined the room") {
		t.Fatalf("A join notice: %+v", f)
	}

	send(hub, b, "JOIN:Lobby")
	mustFrame(t, b, proto.ReplyJoined)
	if f := mustFrame(t, a, proto.ReplySystem); f.Payload != "B joined the room" {
		t.Fatalf("A saw %+v", f)
	}

	send(hub, c, "JOIN:Lobby")
	if f := mustNext(t, c); f != proto.Error(ErrCodeJoinFailed) {
		t.Fatalf("C join: %+v", f)
	}

	send(hub, c, "LIST:")
	if f := mustNext(t, c); f.Payload != "Main [0];Lobby [2]" {
		t.Fatalf("listing = %q", f.Payload)
	}

	send(hub, c, "JOIN:Nowhere")
	if f := mustNext(t, c); f != proto.Error(ErrCodeJoinFailed) {
		t.Fatalf("missing room join: %+v", f)
	}
}

func TestHubJoinMovesBetweenRooms(t *testing.T) {
	hub := startHub(t, testOptions())
	a := login(t, hub, "alice")
	b := login(t, hub, "bob")

	send(hub, a, "JOIN:Main")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, b, "JOIN:Main")
	mustFrame(t, b, proto.ReplySystem)
	mustFrame(t, a, proto.ReplySystem)

	send(hub, b, "CREATE:Side")
	mustFrame(t, b, proto.ReplyOK)
	send(hub, b, "JOIN:Side")
	mustFrame(t, b, proto.ReplyJoined)

	if f := mustFrame(t, a, proto.ReplySystem); f.Payload != "bob left the room" {
		t.Fatalf("alice saw %+v", f)
	}

	send(hub, b, "JOIN:Side")
	if f := mustFrame(t, b, proto.ReplyJoined); f.Payload != "Side" {
		t.Fatalf("re-join: %+v", f)
	}
	expectSilent(t, hub, a)
}

func TestHubChatFanOutExcludesSender(t *testing.T) {
	opts := testOptions()
	hub := startHub(t, opts)

	a := login(t, hub, "A")
	b := login(t, hub, "B")
	outsider := login(t, hub, "O")

	send(hub, a, "CREATE:Lobby")
	mustFrame(t, a, proto.ReplyOK)
	send(hub, a, "JOIN:Lobby")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, b, "JOIN:Lobby")
	mustFrame(t, b, proto.ReplySystem)
	mustFrame(t, a, proto.ReplySystem)

	send(hub, a, "MSG:hello")
	got := mustFrame(t, b, proto.ReplyChat)
	want := proto.Chat("A", hub.registry.ColorOf(a), "hello")
	if got != want {
		t.Fatalf("B got %+v, want %+v", got, want)
	}

	send(hub, a, "bare words")
	_, _, text, err := proto.ParseChat(mustFrame(t, b, proto.ReplyChat).Payload)
	if err != nil {
		t.Fatalf("parse chat: %v", err)
	}
	if text != "bare words" {
		t.Fatalf("bare line text = %q", text)
	}

	expectSilent(t, hub, a)
	expectSilent(t, hub, outsider)
}

func TestHubMsgErrors(t *testing.T) {
	hub := startHub(t, testOptions())
	c := login(t, hub, "alice")

	send(hub, c, "MSG:hi")
	if f := mustNext(t, c); f != proto.Error(ErrCodeNotInRoom) {
		t.Fatalf("not in room: %+v", f)
	}

	send(hub, c, "JOIN:Main")
	mustFrame(t, c, proto.ReplySystem)

	send(hub, c, "MSG:   ")
	if f := mustNext(t, c); f != proto.Error(ErrCodeEmptyMessage) {
		t.Fatalf("empty: %+v", f)
	}

	send(hub, c, "MSG:"+strings.Repeat("é", 65))
	if f := mustNext(t, c); f != proto.Error(ErrCodePayloadTooLong) {
		t.Fatalf("oversized: %+v", f)
	}

	hub.Dispatch(c, proto.Line{TooLong: true})
	if f := mustNext(t, c); f != proto.Error(ErrCodePayloadTooLong) {
		t.Fatalf("too long line: %+v", f)
	}
}

func TestHubRateLimit(t *testing.T) {
	opts := testOptions()
	opts.MessagesPerMinute = 2
	hub := startHub(t, opts)

	a := login(t, hub, "A")
	b := login(t, hub, "B")
	send(hub, a, "JOIN:Main")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, b, "JOIN:Main")
	mustFrame(t, b, proto.ReplySystem)

	for i := 0; i < 2; i++ {
		send(hub, a, "MSG:hi")
		mustFrame(t, b, proto.ReplyChat)
	}
	send(hub, a, "MSG:third")
	if f := mustFrame(t, a, proto.ReplyError); f.Payload != ErrCodeRateLimited {
		t.Fatalf("got %+v", f)
	}
}

func TestHubStopCleansUp(t *testing.T) {
	hub := startHub(t, testOptions())
	a := login(t, hub, "alice")
	b := login(t, hub, "bob")

	send(hub, a, "JOIN:Main")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, b, "JOIN:Main")
	mustFrame(t, b, proto.ReplySystem)
	mustFrame(t, a, proto.ReplySystem)

	send(hub, a, "STOP")
	if f := mustNext(t, a); f != proto.OK("Bye") {
		t.Fatalf("farewell: %+v", f)
	}
	expectClosed(t, a)

	if f := mustFrame(t, b, proto.ReplySystem); f.Payload != "alice left the room" {
		t.Fatalf("bob saw %+v", f)
	}

	send(hub, b, "LIST:")
	if f := mustFrame(t, b, proto.ReplyRooms); f.Payload != "Main [1]" {
		t.Fatalf("listing = %q", f.Payload)
	}
	if hub.ConnectionCount() != 1 {
		t.Fatalf("connections = %d", hub.ConnectionCount())
	}

	send(hub, a, "MSG:ghost")
	expectSilent(t, hub, b)
}

func TestHubUnregisterNotifiesRoom(t *testing.T) {
	hub := startHub(t, testOptions())
	a := login(t, hub, "alice")
	b := login(t, hub, "bob")

	send(hub, a, "JOIN:Main")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, b, "JOIN:Main")
	mustFrame(t, b, proto.ReplySystem)

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	expectClosed(t, a)

	if f := mustFrame(t, b, proto.ReplySystem); f.Payload != "alice left the room" {
		t.Fatalf("bob saw %+v", f)
	}
	expectSilent(t, hub, b)
}

func TestHubConnectionCap(t *testing.T) {
	opts := testOptions()
	opts.MaxConnections = 1
	hub := startHub(t, opts)

	first := connect(t, hub, "first")
	if err := hub.RegisterClient(NewClient("second", "", 1)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	hub.UnregisterClient(first)
	expectClosed(t, first)
	if err := hub.RegisterClient(NewClient("third", "", 1)); err != nil {
		t.Fatalf("register after leave: %v", err)
	}
}

func TestHubSlowClientIsDropped(t *testing.T) {
	hub := startHub(t, testOptions())
	a := login(t, hub, "alice")

	slow := NewClient("slow", "", 3)
	if err := hub.RegisterClient(slow); err != nil {
		t.Fatalf("register: %v", err)
	}
	send(hub, slow, "USERNAME:slow")
	send(hub, slow, "JOIN:Main")
	// greeting, username ack, JOINED fill the queue; the join notice overflows it.
	barrier(t, hub)

	if !slow.Closed() {
		t.Fatal("slow client should be closed after overflow")
	}
	if hub.ConnectionCount() != 1 {
		t.Fatalf("connections = %d", hub.ConnectionCount())
	}

	send(hub, a, "JOIN:Main")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, a, "LIST:")
	if f := mustFrame(t, a, proto.ReplyRooms); f.Payload != "Main [1]" {
		t.Fatalf("listing = %q", f.Payload)
	}
}

func TestHubJoinOverflowNotifiesPreviousRoom(t *testing.T) {
	opts := testOptions()
	opts.AutoDeleteEmptyRooms = true
	hub := startHub(t, opts)

	b := login(t, hub, "bob")
	send(hub, b, "CREATE:Other")
	mustFrame(t, b, proto.ReplyOK)
	send(hub, b, "JOIN:Main")
	mustFrame(t, b, proto.ReplySystem)

	a := NewClient("alice", "", 4)
	if err := hub.RegisterClient(a); err != nil {
		t.Fatalf("register: %v", err)
	}
	send(hub, a, "USERNAME:alice")
	send(hub, a, "JOIN:Main")
	// greeting, username ack, JOINED and the join notice fill the queue.
	if f := mustFrame(t, b, proto.ReplySystem); f.Payload != "alice joined the room" {
		t.Fatalf("bob saw %q", f.Payload)
	}

	send(hub, a, "JOIN:Other")
	if f := mustNext(t, b); f != proto.System("alice left the room") {
		t.Fatalf("bob saw %+v", f)
	}
	expectSilent(t, hub, b)

	if !a.Closed() {
		t.Fatal("alice should be closed after overflow")
	}
	rooms := hub.Rooms()
	if len(rooms) != 1 || rooms[0].Name != "Main" || rooms[0].Members != 1 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestHubAutoDeleteEmptyRooms(t *testing.T) {
	opts := testOptions()
	opts.AutoDeleteEmptyRooms = true
	hub := startHub(t, opts)
	a := login(t, hub, "alice")

	send(hub, a, "CREATE:Side")
	mustFrame(t, a, proto.ReplyOK)
	send(hub, a, "JOIN:Side")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, a, "JOIN:Main")
	mustFrame(t, a, proto.ReplySystem)

	send(hub, a, "LIST:")
	if f := mustFrame(t, a, proto.ReplyRooms); f.Payload != "Main [1]" {
		t.Fatalf("listing = %q", f.Payload)
	}

	send(hub, a, "stop")
	expectClosed(t, a)
	barrier(t, hub)
	if rooms := hub.Rooms(); len(rooms) != 1 || rooms[0].Name != "Main" {
		t.Fatalf("default room must survive: %+v", rooms)
	}
}

func TestHubKeepsEmptyRoomsByDefault(t *testing.T) {
	hub := startHub(t, testOptions())
	a := login(t, hub, "alice")

	send(hub, a, "CREATE:Side")
	mustFrame(t, a, proto.ReplyOK)
	send(hub, a, "JOIN:Side")
	mustFrame(t, a, proto.ReplySystem)
	send(hub, a, "stop")
	expectClosed(t, a)
	barrier(t, hub)

	if rooms := hub.Rooms(); len(rooms) != 2 || rooms[1].Members != 0 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(testOptions(), nil)
	go hub.Run(ctx)

	c := connect(t, hub, "c")
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	expectClosed(t, c)

	if err := hub.RegisterClient(NewClient("late", "", 1)); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("register after shutdown: %v", err)
	}
	hub.Dispatch(c, proto.Line{Text: "LIST:"})
	hub.UnregisterClient(c)
}
