// Package protocol implements the line based chat protocol spoken over
// multicast and private UDP datagrams.
//
// Every message is a single line
//
//	<senderCode>!<TYPE>#<senderNick>:<payload>
//
// where the payload layout depends on the type. Payload fields are wrapped
// in bracket pairs and located by the first occurrence of each bracket.
// Brackets are not escaped, so free text that contains them can confuse
// the fields that follow.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "protocol")

// MessageType identifies the kind of message
type MessageType string

const (
	TypeMsg            MessageType = "MSG"
	TypeLogon          MessageType = "LOGON"
	TypeExposing       MessageType = "EXPOSING"
	TypeLogoff         MessageType = "LOGOFF"
	TypeAway           MessageType = "AWAY"
	TypeBack           MessageType = "BACK"
	TypeExpose         MessageType = "EXPOSE"
	TypeNickCrash      MessageType = "NICKCRASH"
	TypeWriting        MessageType = "WRITING"
	TypeStoppedWriting MessageType = "STOPPEDWRITING"
	TypeGetTopic       MessageType = "GETTOPIC"
	TypeTopic          MessageType = "TOPIC"
	TypeNick           MessageType = "NICK"
	TypeIdle           MessageType = "IDLE"
	TypeSendFileAccept MessageType = "SENDFILEACCEPT"
	TypeSendFileAbort  MessageType = "SENDFILEABORT"
	TypeSendFile       MessageType = "SENDFILE"
	TypeClient         MessageType = "CLIENT"
	// TypePrivMsg is only sent over private UDP
	TypePrivMsg MessageType = "PRIVMSG"
)

var (
	// ErrMalformed is returned for lines that do not follow the wire format
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for well formed lines of an unknown type
	ErrUnknownType = errors.New("unknown message type")
)

// Header is the common prefix of every message
type Header struct {
	Code    int
	Type    MessageType
	Nick    string
	Payload string
}

// ParseHeader splits a line into its header fields and raw payload
func ParseHeader(line string) (Header, error) {
	excl := strings.IndexByte(line, '!')
	if excl < 0 {
		return Header{}, fmt.Errorf("%w: missing '!'", ErrMalformed)
	}
	hash := strings.IndexByte(line[excl+1:], '#')
	if hash < 0 {
		return Header{}, fmt.Errorf("%w: missing '#'", ErrMalformed)
	}
	hash += excl + 1
	colon := strings.IndexByte(line[hash+1:], ':')
	if colon < 0 {
		return Header{}, fmt.Errorf("%w: missing ':'", ErrMalformed)
	}
	colon += hash + 1

	code, err := strconv.Atoi(line[:excl])
	if err != nil {
		return Header{}, fmt.Errorf("%w: user code: %v", ErrMalformed, err)
	}

	return Header{
		Code:    code,
		Type:    MessageType(line[excl+1 : hash]),
		Nick:    line[hash+1 : colon],
		Payload: line[colon+1:],
	}, nil
}

// String formats the header back into the line prefix followed by the payload
func (h Header) String() string {
	return strconv.Itoa(h.Code) + "!" + string(h.Type) + "#" + h.Nick + ":" + h.Payload
}

// field returns the text between the first open and the first close
// delimiter of the payload, and the index just past the close delimiter.
func field(payload string, open, close byte) (string, int, error) {
	start := strings.IndexByte(payload, open)
	end := strings.IndexByte(payload, close)
	if start < 0 || end < 0 || end < start {
		return "", 0, fmt.Errorf("%w: missing %c%c field", ErrMalformed, open, close)
	}
	return payload[start+1 : end], end + 1, nil
}

func intField(payload string, open, close byte) (int, int, error) {
	s, next, err := field(payload, open, close)
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %c%c field: %v", ErrMalformed, open, close, err)
	}
	return v, next, nil
}

func int64Field(payload string, open, close byte) (int64, int, error) {
	s, next, err := field(payload, open, close)
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %c%c field: %v", ErrMalformed, open, close, err)
	}
	return v, next, nil
}
