package protocol

import "github.com/lanchat/lanchat/internal/model"

// PrivateParser turns private UDP lines into PrivateMessageResponder calls.
// Only PRIVMSG from another user addressed to us is delivered.
type PrivateParser struct {
	me        *model.User
	responder PrivateMessageResponder
}

// NewPrivateParser creates a private message parser for the local user
func NewPrivateParser(me *model.User, responder PrivateMessageResponder) *PrivateParser {
	return &PrivateParser{me: me, responder: responder}
}

// MessageArrived handles a line received from ipAddress
func (p *PrivateParser) MessageArrived(message, ipAddress string) {
	entry := log.WithField("message", message).WithField("ip", ipAddress)

	ev, err := Decode(message)
	if err != nil {
		entry.WithError(err).Error("parse private message")
		return
	}

	pm, ok := ev.(PrivateMessage)
	if !ok {
		return
	}

	me := p.me.Code()
	if pm.Code == me || pm.Target != me {
		return
	}

	entry.Debug("private message arrived")
	p.responder.MessageArrived(pm.Code, pm.Text, pm.Color)
}
