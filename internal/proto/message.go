package proto

import (
	"fmt"
	"strconv"
	"strings"
)

// Inbound commands sent by clients.
const (
	CommandUsername = "USERNAME"
	CommandCreate   = "CREATE"
	CommandJoin     = "JOIN"
	CommandList     = "LIST"
	CommandMsg      = "MSG"

	// StopWord is matched against the whole line, ignoring case.
	StopWord = "stop"
)

// Outbound commands sent by the server.
const (
	ReplyOK     = "OK"
	ReplyError  = "ERROR"
	ReplyJoined = "JOINED"
	ReplyChat   = "CHAT"
	ReplySystem = "SYSTEM"
	ReplyRooms  = "ROOMS"
)

const (
	separator     = ":"
	roomSeparator = ";"
)

// Frame is a single protocol line split into command and payload.
type Frame struct {
	Command string
	Payload string
}

// Decode splits a newline-stripped line on its first colon.
// A line without a colon is a chat message carrying the whole line.
func Decode(line string) Frame {
	cmd, payload, found := strings.Cut(line, separator)
	if !found {
		return Frame{Command: CommandMsg, Payload: line}
	}
	return Frame{Command: cmd, Payload: payload}
}

// IsStop reports whether the line asks the server to close the connection.
func IsStop(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), StopWord)
}

// String renders the frame without the trailing newline.
func (f Frame) String() string {
	return f.Command + separator + singleLine(f.Payload)
}

// Encode renders the frame as one newline-terminated line.
func (f Frame) Encode() []byte {
	return []byte(f.String() + "\n")
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// OK builds an OK reply.
func OK(text string) Frame { return Frame{Command: ReplyOK, Payload: text} }

// Error builds an ERROR reply carrying a code.
func Error(code string) Frame { return Frame{Command: ReplyError, Payload: code} }

// Joined confirms a room join.
func Joined(room string) Frame { return Frame{Command: ReplyJoined, Payload: room} }

// System builds a server notice.
func System(text string) Frame { return Frame{Command: ReplySystem, Payload: text} }

// Chat builds a chat delivery frame.
func Chat(user, color, text string) Frame {
	return Frame{Command: ReplyChat, Payload: ChatPayload(user, color, text)}
}

// Rooms builds a room listing frame.
func Rooms(entries []RoomEntry) Frame {
	return Frame{Command: ReplyRooms, Payload: RoomsPayload(entries)}
}

// ChatPayload joins sender, colour and text as user:color:text.
func ChatPayload(user, color, text string) string {
	return user + separator + color + separator + text
}

// ParseChat splits a CHAT payload on its first two colons; text keeps any further colons.
func ParseChat(payload string) (user, color, text string, err error) {
	parts := strings.SplitN(payload, separator, 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("chat payload %q: want user:color:text", payload)
	}
	return parts[0], parts[1], parts[2], nil
}

// RoomEntry is one element of a ROOMS listing.
type RoomEntry struct {
	Name    string
	Members int
}

// RoomsPayload renders entries as "name [count]" joined by ';'.
func RoomsPayload(entries []RoomEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Name+" ["+strconv.Itoa(e.Members)+"]")
	}
	return strings.Join(parts, roomSeparator)
}

// ParseRooms is the inverse of RoomsPayload.
func ParseRooms(payload string) ([]RoomEntry, error) {
	if payload == "" {
		return nil, nil
	}
	items := strings.Split(payload, roomSeparator)
	entries := make([]RoomEntry, 0, len(items))
	for _, item := range items {
		open := strings.LastIndex(item, " [")
		if open < 0 || !strings.HasSuffix(item, "]") {
			return nil, fmt.Errorf("room entry %q: want \"name [count]\"", item)
		}
		n, err := strconv.Atoi(item[open+2 : len(item)-1])
		if err != nil {
			return nil, fmt.Errorf("room entry %q: %w", item, err)
		}
		entries = append(entries, RoomEntry{Name: item[:open], Members: n})
	}
	return entries, nil
}
