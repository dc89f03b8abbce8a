package protocol

import (
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/model"
)

// Parser turns multicast lines into MessageResponder calls.
//
// Messages from other users are dropped until our own LOGON has been
// heard, so stale traffic never touches the user list before we are part
// of the chat.
type Parser struct {
	me        *model.User
	responder MessageResponder
	now       func() time.Time

	mu       sync.Mutex
	loggedOn bool
}

// NewParser creates a parser for the local user
func NewParser(me *model.User, responder MessageResponder) *Parser {
	return &Parser{
		me:        me,
		responder: responder,
		now:       time.Now,
	}
}

// IsLoggedOn returns true once our own LOGON has been received
func (p *Parser) IsLoggedOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedOn
}

// SetLoggedOn changes the logon state, used when logging off
func (p *Parser) SetLoggedOn(loggedOn bool) {
	p.mu.Lock()
	p.loggedOn = loggedOn
	p.mu.Unlock()
}

// MessageArrived handles a line received from ipAddress. Malformed lines
// are logged and dropped.
func (p *Parser) MessageArrived(message, ipAddress string) {
	entry := log.WithField("message", message).WithField("ip", ipAddress)

	h, err := ParseHeader(message)
	if err != nil {
		entry.WithError(err).Error("parse message")
		return
	}

	if h.Code == p.me.Code() {
		p.selfMessage(h, ipAddress)
		return
	}

	if !p.IsLoggedOn() {
		return
	}

	// drop file messages meant for somebody else before decoding the rest
	switch h.Type {
	case TypeSendFileAccept, TypeSendFileAbort, TypeSendFile:
		target, err := TargetCode(h.Payload)
		if err != nil {
			entry.WithError(err).Error("parse message")
			return
		}
		if target != p.me.Code() {
			return
		}
	}

	ev, err := DecodePayload(h)
	if err != nil {
		entry.WithError(err).Error("parse message")
		return
	}

	entry.WithField("type", h.Type).Debug("message arrived")
	p.dispatch(ev, ipAddress)
}

func (p *Parser) selfMessage(h Header, ipAddress string) {
	switch h.Type {
	case TypeLogon:
		p.responder.MeLogOn(ipAddress)
		p.SetLoggedOn(true)
	case TypeIdle:
		if p.IsLoggedOn() {
			p.responder.MeIdle(ipAddress)
		}
	}
}

func (p *Parser) newUser(s Sender, ipAddress string) *model.User {
	now := p.now()
	user := model.NewUser(s.Nick, s.Code)
	user.SetIPAddress(ipAddress)
	user.SetLastIdle(now)
	user.SetLogonTime(now)
	return user
}

func (p *Parser) dispatch(ev Event, ipAddress string) {
	r := p.responder

	switch e := ev.(type) {
	case ChatMessage:
		r.MessageArrived(e.Code, e.Text, e.Color)
	case LogOn:
		r.UserLogOn(p.newUser(e.Sender, ipAddress))
	case Exposing:
		user := p.newUser(e.Sender, ipAddress)
		user.SetAway(e.AwayMsg != "", e.AwayMsg)
		r.UserExposing(user)
	case LogOff:
		r.UserLogOff(e.Code)
	case Away:
		r.AwayChanged(e.Code, true, e.Message)
	case Back:
		r.AwayChanged(e.Code, false, "")
	case Expose:
		r.ExposeRequested()
	case NickCrash:
		if e.Nick == p.me.Nick() {
			r.NickCrash()
		}
	case Writing:
		r.WritingChanged(e.Code, true)
	case StoppedWriting:
		r.WritingChanged(e.Code, false)
	case GetTopic:
		r.TopicRequested()
	case TopicMessage:
		r.TopicChanged(e.Code, e.Topic)
	case NickChange:
		r.NickChanged(e.Code, e.Nick)
	case Idle:
		r.UserIdle(e.Code, ipAddress)
	case FileAccept:
		r.FileSendAccepted(e.Code, e.Name, e.Hash, e.Port)
	case FileAbort:
		r.FileSendAborted(e.Code, e.Name, e.Hash)
	case FileOffer:
		r.FileSend(e.Code, e.Size, e.Name, e.Nick, e.Hash)
	case ClientInfo:
		r.ClientInfo(e.Code, e.Client, e.Uptime, e.OS, e.PrivateChatPort, e.TCPChatPort)
	}
}
