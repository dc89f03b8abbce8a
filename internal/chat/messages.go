package chat

import (
	"time"

	"github.com/lanchat/lanchat/internal/config"
	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/protocol"
	"github.com/lanchat/lanchat/internal/transfer"
)

// Sender delivers encoded messages
type Sender interface {
	SendMulticastMsg(message string) bool
	SendUDPMsg(message, ip string, port int) bool
	CheckNetwork()
}

// Messages builds and sends every message of the protocol. Sends that
// matter to the user return an error when they fail. Any failed send asks
// the network to check its connection.
type Messages struct {
	net      Sender
	settings *config.Settings
	me       *model.User
	now      func() time.Time
}

// NewMessages creates the message sender for the session
func NewMessages(net Sender, settings *config.Settings) *Messages {
	return &Messages{
		net:      net,
		settings: settings,
		me:       settings.Me(),
		now:      time.Now,
	}
}

// from is the header of every message we send
func (m *Messages) from() protocol.Sender {
	return protocol.Sender{Code: m.me.Code(), Nick: m.me.Nick()}
}

// send encodes ev and multicasts it
func (m *Messages) send(ev protocol.Event) bool {
	return m.net.SendMulticastMsg(protocol.Encode(ev))
}

// sendChecked sends ev and asks for a network check if it failed
func (m *Messages) sendChecked(ev protocol.Event) bool {
	if m.send(ev) {
		return true
	}
	m.net.CheckNetwork()
	return false
}

// SendIdle tells everyone we are still here
func (m *Messages) SendIdle() {
	m.sendChecked(protocol.Idle{Sender: m.from()})
}

// SendTopicChange announces a new or removed topic
func (m *Messages) SendTopicChange(topic model.Topic) {
	m.sendChecked(protocol.TopicMessage{Sender: m.from(), Topic: topic})
}

// SendTopicRequested answers GETTOPIC with our topic
func (m *Messages) SendTopicRequested(topic model.Topic) {
	m.send(protocol.TopicMessage{Sender: m.from(), Topic: topic})
}

// SendAway tells everyone we went away with awayMsg
func (m *Messages) SendAway(awayMsg string) {
	m.sendChecked(protocol.Away{Sender: m.from(), Message: awayMsg})
}

// SendBack tells everyone we came back
func (m *Messages) SendBack() {
	m.sendChecked(protocol.Back{Sender: m.from()})
}

// SendChat sends a chat message in our own color
func (m *Messages) SendChat(text string) error {
	ev := protocol.ChatMessage{Sender: m.from(), Color: m.settings.OwnColor(), Text: text}
	if !m.sendChecked(ev) {
		return commandError("Failed to send message: %s", text)
	}
	return nil
}

// SendLogon announces us on the network
func (m *Messages) SendLogon() {
	m.send(protocol.LogOn{Sender: m.from()})
}

// SendLogoff tells everyone we are leaving
func (m *Messages) SendLogoff() {
	m.send(protocol.LogOff{Sender: m.from()})
}

// SendExpose asks everyone to identify themselves
func (m *Messages) SendExpose() {
	m.send(protocol.Expose{Sender: m.from()})
}

// SendExposing tells everyone we are here, with our away message if away
func (m *Messages) SendExposing() {
	awayMsg := ""
	if m.me.IsAway() {
		awayMsg = m.me.AwayMsg()
	}
	m.send(protocol.Exposing{Sender: m.from(), AwayMsg: awayMsg})
}

// SendGetTopic asks for the current topic
func (m *Messages) SendGetTopic() {
	m.send(protocol.GetTopic{Sender: m.from()})
}

// SendWriting tells everyone we started writing
func (m *Messages) SendWriting() {
	m.send(protocol.Writing{Sender: m.from()})
}

// SendStoppedWriting tells everyone we stopped writing
func (m *Messages) SendStoppedWriting() {
	m.send(protocol.StoppedWriting{Sender: m.from()})
}

// SendNick announces newNick. The header carries the new nick.
func (m *Messages) SendNick(newNick string) {
	m.sendChecked(protocol.NickChange{Sender: protocol.Sender{Code: m.me.Code(), Nick: newNick}})
}

// SendNickCrash tells the user with our nick to pick another one
func (m *Messages) SendNickCrash(nick string) {
	m.send(protocol.NickCrash{Sender: m.from(), Nick: nick})
}

// SendFileAbort cancels a file transfer with user
func (m *Messages) SendFileAbort(user *model.User, fileHash int, fileName string) {
	m.sendChecked(protocol.FileAbort{
		Sender: m.from(),
		Target: user.Code(),
		Hash:   fileHash,
		Name:   fileName,
	})
}

// SendFileAccept tells user to connect to port to send the file
func (m *Messages) SendFileAccept(user *model.User, port, fileHash int, fileName string) error {
	ev := protocol.FileAccept{
		Sender: m.from(),
		Target: user.Code(),
		Port:   port,
		Hash:   fileHash,
		Name:   fileName,
	}
	if !m.sendChecked(ev) {
		return commandError("Failed to accept file transfer from %s: %s", user.Nick(), fileName)
	}
	return nil
}

// SendFile offers the file of fs to its user
func (m *Messages) SendFile(fs *transfer.FileSender) error {
	user := fs.User()
	ev := protocol.FileOffer{
		Sender: m.from(),
		Target: user.Code(),
		Size:   fs.FileSize(),
		Hash:   fs.FileHash(),
		Name:   fs.FileName(),
	}
	if !m.sendChecked(ev) {
		return commandError("Failed to send file to %s: %s", user.Nick(), fs.FileName())
	}
	return nil
}

// SendClient describes our client to everyone
func (m *Messages) SendClient() {
	uptime := m.now().Sub(m.me.LogonTime()).Milliseconds()
	if m.me.LogonTime().IsZero() || uptime < 0 {
		uptime = 0
	}
	m.send(protocol.ClientInfo{
		Sender:          m.from(),
		Client:          m.me.Client(),
		Uptime:          uptime,
		OS:              m.me.OperatingSystem(),
		PrivateChatPort: m.me.PrivateChatPort(),
		TCPChatPort:     m.me.TCPChatPort(),
	})
}

// SendPrivate sends a private message directly to user
func (m *Messages) SendPrivate(text string, user *model.User) error {
	ev := protocol.PrivateMessage{
		Sender: m.from(),
		Target: user.Code(),
		Color:  m.settings.OwnColor(),
		Text:   text,
	}
	if !m.net.SendUDPMsg(protocol.Encode(ev), user.IPAddress(), user.PrivateChatPort()) {
		m.net.CheckNetwork()
		return commandError("Failed to send private message to %s: %s", user.Nick(), text)
	}
	return nil
}
