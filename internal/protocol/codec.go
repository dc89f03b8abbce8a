package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lanchat/lanchat/internal/model"
)

// Decode parses a complete line into a typed event
func Decode(line string) (Event, error) {
	h, err := ParseHeader(line)
	if err != nil {
		return nil, err
	}
	return DecodePayload(h)
}

// DecodePayload decodes the payload of an already parsed header
func DecodePayload(h Header) (Event, error) {
	s := Sender{Code: h.Code, Nick: h.Nick}
	p := h.Payload

	switch h.Type {
	case TypeMsg:
		color, next, err := intField(p, '[', ']')
		if err != nil {
			return nil, err
		}
		return ChatMessage{Sender: s, Color: color, Text: p[next:]}, nil

	case TypeLogon:
		return LogOn{s}, nil

	case TypeExposing:
		return Exposing{Sender: s, AwayMsg: p}, nil

	case TypeLogoff:
		return LogOff{s}, nil

	case TypeAway:
		return Away{Sender: s, Message: p}, nil

	case TypeBack:
		return Back{s}, nil

	case TypeExpose:
		return Expose{s}, nil

	case TypeNickCrash:
		return NickCrash{Sender: s, Nick: p}, nil

	case TypeWriting:
		return Writing{s}, nil

	case TypeStoppedWriting:
		return StoppedWriting{s}, nil

	case TypeGetTopic:
		return GetTopic{s}, nil

	case TypeTopic:
		return decodeTopic(s, p)

	case TypeNick:
		return NickChange{s}, nil

	case TypeIdle:
		return Idle{s}, nil

	case TypeSendFileAccept:
		target, hash, name, err := fileFields(p)
		if err != nil {
			return nil, err
		}
		port, _, err := intField(p, '[', ']')
		if err != nil {
			return nil, err
		}
		return FileAccept{Sender: s, Target: target, Port: port, Hash: hash, Name: name}, nil

	case TypeSendFileAbort:
		target, hash, name, err := fileFields(p)
		if err != nil {
			return nil, err
		}
		return FileAbort{Sender: s, Target: target, Hash: hash, Name: name}, nil

	case TypeSendFile:
		target, hash, name, err := fileFields(p)
		if err != nil {
			return nil, err
		}
		size, _, err := int64Field(p, '[', ']')
		if err != nil {
			return nil, err
		}
		return FileOffer{Sender: s, Target: target, Size: size, Hash: hash, Name: name}, nil

	case TypeClient:
		return decodeClient(s, p)

	case TypePrivMsg:
		target, _, err := intField(p, '(', ')')
		if err != nil {
			return nil, err
		}
		color, next, err := intField(p, '[', ']')
		if err != nil {
			return nil, err
		}
		return PrivateMessage{Sender: s, Target: target, Color: color, Text: p[next:]}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, h.Type)
}

// TargetCode extracts the user code in the (...) field of the file and
// private messages without decoding the rest of the payload.
func TargetCode(payload string) (int, error) {
	code, _, err := intField(payload, '(', ')')
	return code, err
}

func decodeTopic(s Sender, p string) (Event, error) {
	t, next, err := int64Field(p, '[', ']')
	if err != nil {
		return nil, err
	}
	nick, _, err := field(p, '(', ')')
	if err != nil {
		return nil, err
	}
	return TopicMessage{
		Sender: s,
		Topic:  model.Topic{Text: p[next:], Nick: nick, Time: t},
	}, nil
}

// fileFields decodes the target code, file hash and file name shared by
// the file transfer messages.
func fileFields(p string) (target, hash int, name string, err error) {
	target, _, err = intField(p, '(', ')')
	if err != nil {
		return 0, 0, "", err
	}
	hash, next, err := intField(p, '{', '}')
	if err != nil {
		return 0, 0, "", err
	}
	return target, hash, p[next:], nil
}

func decodeClient(s Sender, p string) (Event, error) {
	client, _, err := field(p, '(', ')')
	if err != nil {
		return nil, err
	}
	uptime, _, err := int64Field(p, '[', ']')
	if err != nil {
		return nil, err
	}
	os, _, err := field(p, '{', '}')
	if err != nil {
		return nil, err
	}

	ev := ClientInfo{Sender: s, Client: client, Uptime: uptime, OS: os}

	// a bad port only disables private chat with this user
	if port, _, err := intField(p, '<', '>'); err != nil {
		log.WithError(err).WithField("message", p).Warn("parse private chat port")
	} else {
		ev.PrivateChatPort = port
	}

	if strings.IndexByte(p, '/') >= 0 && strings.IndexByte(p, '\\') >= 0 {
		if port, _, err := intField(p, '/', '\\'); err != nil {
			log.WithError(err).WithField("message", p).Warn("parse tcp chat port")
		} else {
			ev.TCPChatPort = port
		}
	}

	return ev, nil
}

// Encode formats an event as a line
func Encode(ev Event) string {
	from := ev.From()
	h := Header{Code: from.Code, Type: ev.Type(), Nick: from.Nick}

	switch e := ev.(type) {
	case ChatMessage:
		h.Payload = "[" + strconv.Itoa(e.Color) + "]" + e.Text
	case Exposing:
		h.Payload = e.AwayMsg
	case Away:
		h.Payload = e.Message
	case NickCrash:
		h.Payload = e.Nick
	case TopicMessage:
		h.Payload = "(" + e.Topic.Nick + ")" +
			"[" + strconv.FormatInt(e.Topic.Time, 10) + "]" +
			e.Topic.Text
	case FileAccept:
		h.Payload = "(" + strconv.Itoa(e.Target) + ")" +
			"[" + strconv.Itoa(e.Port) + "]" +
			"{" + strconv.Itoa(e.Hash) + "}" +
			e.Name
	case FileAbort:
		h.Payload = "(" + strconv.Itoa(e.Target) + ")" +
			"{" + strconv.Itoa(e.Hash) + "}" +
			e.Name
	case FileOffer:
		h.Payload = "(" + strconv.Itoa(e.Target) + ")" +
			"[" + strconv.FormatInt(e.Size, 10) + "]" +
			"{" + strconv.Itoa(e.Hash) + "}" +
			e.Name
	case ClientInfo:
		h.Payload = "(" + e.Client + ")" +
			"[" + strconv.FormatInt(e.Uptime, 10) + "]" +
			"{" + e.OS + "}" +
			"<" + strconv.Itoa(e.PrivateChatPort) + ">" +
			"/" + strconv.Itoa(e.TCPChatPort) + "\\"
	case PrivateMessage:
		h.Payload = "(" + strconv.Itoa(e.Target) + ")" +
			"[" + strconv.Itoa(e.Color) + "]" +
			e.Text
	}

	return h.String()
}
