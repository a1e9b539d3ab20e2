package core

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/linechat/internal/proto"
)

func (h *Hub) handleLine(c *Client, line proto.Line) {
	if !h.registry.Has(c) {
		h.log.Debug().Str("client_id", c.ID).Msg("line from unregistered client dropped")
		return
	}
	if line.TooLong {
		h.reply(c, proto.Error(ErrCodePayloadTooLong))
		return
	}
	if proto.IsStop(line.Text) {
		h.stop(c)
		return
	}

	if err := h.route(c, proto.Decode(line.Text)); err != nil {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			perr = protocolError(ErrCodeUnknownCommand)
		}
		h.log.Debug().Str("client_id", c.ID).Str("code", perr.Code).Msg("protocol error")
		h.reply(c, proto.Error(perr.Code))
	}
}

func (h *Hub) route(c *Client, f proto.Frame) error {
	switch f.Command {
	case proto.CommandUsername:
		return h.handleUsername(c, f.Payload)
	case proto.CommandList:
		return h.handleList(c)
	case proto.CommandCreate, proto.CommandJoin, proto.CommandMsg:
		name, ok := h.registry.IdentityOf(c)
		if !ok {
			return protocolError(ErrCodeNotRegistered)
		}
		switch f.Command {
		case proto.CommandCreate:
			return h.handleCreate(c, name, f.Payload)
		case proto.CommandJoin:
			return h.handleJoin(c, name, f.Payload)
		default:
			return h.handleMsg(c, name, f.Payload)
		}
	default:
		return protocolError(ErrCodeUnknownCommand)
	}
}

func (h *Hub) handleUsername(c *Client, payload string) error {
	name := strings.TrimSpace(payload)
	if strings.Contains(name, ":") {
		return protocolError(ErrCodeInvalidUsername)
	}
	if h.tooLong(name, h.opts.MaxNameLength) {
		return protocolError(ErrCodePayloadTooLong)
	}

	stored, _ := h.registry.SetIdentity(c, name)
	h.log.Info().Str("client_id", c.ID).Str("user", stored).Msg("username set")
	h.reply(c, proto.OK("Username set - "+stored))
	return nil
}

func (h *Hub) handleCreate(c *Client, user, payload string) error {
	name := strings.TrimSpace(payload)
	if !validRoomName(name) || h.tooLong(name, h.opts.MaxNameLength) {
		return protocolError(ErrCodeInvalidRoomName)
	}
	if !h.rooms.CreateRoom(name, user, h.opts.RoomCapacity) {
		return protocolError(ErrCodeRoomExists)
	}

	h.log.Info().Str("room", name).Str("user", user).Int("capacity", h.opts.RoomCapacity).Msg("room created")
	h.reply(c, proto.OK("Room created - "+name))
	return nil
}

func (h *Hub) handleJoin(c *Client, user, payload string) error {
	name := strings.TrimSpace(payload)
	prev, hadPrev := h.rooms.CurrentRoom(c)
	if hadPrev && prev == name {
		h.reply(c, proto.Joined(name))
		return nil
	}
	if !h.rooms.JoinRoom(c, name) {
		return protocolError(ErrCodeJoinFailed)
	}

	h.log.Info().Str("room", name).Str("user", user).Str("previous", prev).Msg("room joined")
	if hadPrev {
		h.notifyRoom(prev, proto.System(user+" left the room"), nil)
		h.dropIfEmpty(prev)
	}
	if !c.Send(proto.Joined(name)) {
		// The new room never heard of the join, so leave it silently.
		h.rooms.LeaveCurrent(c)
		h.dropIfEmpty(name)
		h.disconnect(c, "outbox full")
		return nil
	}
	h.notifyRoom(name, proto.System(user+" joined the room"), nil)
	return nil
}

func (h *Hub) handleList(c *Client) error {
	infos := h.rooms.ListRooms()
	entries := make([]proto.RoomEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, proto.RoomEntry{Name: info.Name, Members: info.Members})
	}
	h.reply(c, proto.Rooms(entries))
	return nil
}

func (h *Hub) handleMsg(c *Client, user, text string) error {
	if strings.TrimSpace(text) == "" {
		return protocolError(ErrCodeEmptyMessage)
	}
	if h.tooLong(text, h.opts.MaxPayloadLength) {
		return protocolError(ErrCodePayloadTooLong)
	}
	room, ok := h.rooms.CurrentRoom(c)
	if !ok {
		return protocolError(ErrCodeNotInRoom)
	}
	if !h.limits[c].allow(h.now()) {
		return protocolError(ErrCodeRateLimited)
	}

	sent := h.notifyRoom(room, proto.Chat(user, h.registry.ColorOf(c), text), c)
	h.log.Debug().Str("room", room).Str("user", user).Int("recipients", sent).Msg("chat message")
	return nil
}

func (h *Hub) stop(c *Client) {
	h.reply(c, proto.OK("Bye"))
	h.disconnect(c, "stop")
}

func (h *Hub) tooLong(s string, limit int) bool {
	return limit > 0 && utf8.RuneCountInString(s) > limit
}

func validRoomName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ";:")
}
