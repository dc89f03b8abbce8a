package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/config"
	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/network"
	"github.com/lanchat/lanchat/internal/protocol"
	"github.com/lanchat/lanchat/internal/registry"
	"github.com/lanchat/lanchat/internal/transfer"
)

// LogonDelay is how long after our LOGON the logon counts as completed.
// Topics received before that are shown as the current topic instead of a
// change.
const LogonDelay = 1500 * time.Millisecond

var (
	_ protocol.MessageResponder        = (*DefaultResponder)(nil)
	_ protocol.PrivateMessageResponder = (*DefaultPrivateResponder)(nil)
	_ network.ConnectionListener       = (*Controller)(nil)
)

// Controller is one chat session. It owns the user list, the topic and the
// file transfers, and carries out the commands of the local user.
type Controller struct {
	settings  *config.Settings
	me        *model.User
	ui        UserInterface
	net       Network
	users     *registry.Registry
	transfers *transfer.List
	waiting   *WaitingList
	state     *State
	messages  *Messages
	parser    *protocol.Parser
	idle      *IdleWorker

	now              func() time.Time
	logonDelay       time.Duration
	identifyInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController wires a session to the network. Call LogOn to join the
// chat and Shutdown when done.
func NewController(settings *config.Settings, ui UserInterface, net Network) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		settings:         settings,
		me:               settings.Me(),
		ui:               ui,
		net:              net,
		users:            registry.NewRegistry(),
		transfers:        transfer.NewList(),
		waiting:          NewWaitingList(),
		state:            &State{},
		now:              time.Now,
		logonDelay:       LogonDelay,
		identifyInterval: identifyInterval,
		ctx:              ctx,
		cancel:           cancel,
	}
	c.messages = NewMessages(net, settings)
	c.idle = NewIdleWorker(c)

	c.users.Add(c.me)
	c.users.OnChange(func(registry.Event, *model.User) { ui.UserListChanged() })

	c.parser = protocol.NewParser(c.me, NewDefaultResponder(c))
	net.RegisterMulticastListener(c.parser)
	if !settings.IsNoPrivateChat() {
		net.RegisterUDPListener(protocol.NewPrivateParser(c.me, NewDefaultPrivateResponder(c)))
	}
	net.RegisterConnectionListener(c)

	return c
}

// Me returns the local user
func (c *Controller) Me() *model.User { return c.me }

// Users returns the user list, me included
func (c *Controller) Users() *registry.Registry { return c.users }

// Transfers returns the active file transfers
func (c *Controller) Transfers() *transfer.List { return c.transfers }

// Topic returns the current topic
func (c *Controller) Topic() model.Topic { return c.state.Topic() }

// IsLoggedOn reports whether our LOGON came back from the network
func (c *Controller) IsLoggedOn() bool { return c.state.IsLoggedOn() }

// IsConnected reports whether we are logged on and the network is up
func (c *Controller) IsConnected() bool {
	return c.net.IsNetworkUp() && c.state.IsLoggedOn()
}

// CheckNetwork asks the network to look for a better interface now
func (c *Controller) CheckNetwork() { c.net.CheckNetwork() }

// LogOn starts the network. The logon itself happens when the network
// comes up.
func (c *Controller) LogOn() {
	c.idle.Start()
	if !c.net.IsWorkerAlive() {
		c.net.Connect()
	}
}

// LogOff leaves the chat and stops the network. With removeUsers the user
// list is emptied and transfers with the removed users are canceled.
func (c *Controller) LogOff(removeUsers bool) {
	c.messages.SendLogoff()
	c.state.SetLoggedOn(false)
	c.state.SetLogonCompleted(false)
	c.parser.SetLoggedOn(false)
	c.net.Disconnect()
	c.state.SetTopic(model.Topic{})
	if removeUsers {
		c.removeAllUsers()
	}
	c.me.Reset()
	log.Info("logged off")
}

// Shutdown stops the idle worker and every transfer, and waits for the
// background work of the session.
func (c *Controller) Shutdown() {
	c.idle.Stop()
	c.cancel()
	for _, ft := range c.transfers.All() {
		ft.Cancel()
	}
	c.wg.Wait()
}

func (c *Controller) removeAllUsers() {
	for _, user := range c.users.List() {
		if !user.IsMe() {
			c.removeUser(user)
		}
	}
}

// removeUser cancels the transfers of user and drops it from the registry
func (c *Controller) removeUser(user *model.User) {
	user.SetOnline(false)
	c.CancelFileTransfers(user)
	c.users.Remove(user.Code())
}

// CancelFileTransfers cancels and forgets every transfer with user
func (c *Controller) CancelFileTransfers(user *model.User) {
	for _, fs := range c.transfers.FileSenders(user) {
		fs.Cancel()
		c.transfers.RemoveFileSender(fs)
	}
	for _, fr := range c.transfers.FileReceivers(user) {
		fr.Cancel()
		c.transfers.RemoveFileReceiver(fr)
	}
}

// goBackground runs fn on a goroutine Shutdown waits for
func (c *Controller) goBackground(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// sleep waits for d and returns false if the session shut down meanwhile
func (c *Controller) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Controller) sendIdle() {
	if c.IsConnected() {
		c.messages.SendIdle()
	}
}

// tooLong is true for text over MaxMessageBytes
func tooLong(s string) bool {
	return len(s) > MaxMessageBytes
}

// SendChatMessage sends msg to everyone
func (c *Controller) SendChatMessage(msg string) error {
	switch {
	case !c.IsConnected():
		return commandError("You can not send a chat message without being connected")
	case c.me.IsAway():
		return commandError("You can not send a chat message while away")
	case strings.TrimSpace(msg) == "":
		return commandError("You can not send an empty chat message")
	case tooLong(msg):
		return commandError("You can not send a chat message with more than %d bytes", MaxMessageBytes)
	}
	return c.messages.SendChat(msg)
}

// SendPrivateMessage sends msg directly to user
func (c *Controller) SendPrivateMessage(msg string, user *model.User) error {
	switch {
	case !c.IsConnected():
		return commandError("You can not send a private chat message without being connected")
	case c.me.IsAway():
		return commandError("You can not send a private chat message while away")
	case strings.TrimSpace(msg) == "":
		return commandError("You can not send an empty private chat message")
	case tooLong(msg):
		return commandError("You can not send a private chat message with more than %d bytes", MaxMessageBytes)
	case user.PrivateChatPort() == 0:
		return commandError("You can not send a private chat message to a user with no available port number")
	case user.IsAway():
		return commandError("You can not send a private chat message to a user that is away")
	case !user.IsOnline():
		return commandError("You can not send a private chat message to a user that is offline")
	case c.settings.IsNoPrivateChat():
		return commandError("You can not send a private chat message when private chat is disabled")
	}
	return c.messages.SendPrivate(msg, user)
}

// ChangeTopic sets a new topic. An empty topic removes it.
func (c *Controller) ChangeTopic(text string) error {
	switch {
	case !c.state.IsLoggedOn():
		return commandError("You can not change the topic without being connected")
	case c.me.IsAway():
		return commandError("You can not change the topic while away")
	case tooLong(text):
		return commandError("You can not set a topic with more than %d bytes", MaxMessageBytes)
	}

	text = strings.TrimSpace(text)
	if text == c.state.Topic().Text {
		return nil
	}

	topic := model.NewTopic(text, c.me.Nick(), c.now())
	c.messages.SendTopicChange(topic)
	if text == "" {
		topic.Nick = ""
		c.ui.ShowSystemMessage("You removed the topic")
	} else {
		c.ui.ShowSystemMessage("You changed the topic to: " + text)
	}
	c.state.SetTopic(topic)
	c.ui.ShowTopic(topic)
	return nil
}

// ChangeMyNick changes our nick and tells everyone
func (c *Controller) ChangeMyNick(newNick string) error {
	newNick = strings.TrimSpace(newNick)
	switch {
	case c.me.IsAway():
		return commandError("You can not change nick while away")
	case newNick == c.me.Nick():
		return nil
	case !model.IsValidNick(newNick):
		return commandError("'%s' is not a valid nick name. (1-%d letters)", newNick, model.MaxNickLength)
	case c.users.IsNickInUse(newNick, c.me.Code()):
		return commandError("The nick %s is in use by someone else", newNick)
	}

	c.messages.SendNick(newNick)
	c.me.SetNick(newNick)
	c.ui.ShowSystemMessage("You changed nick to " + newNick)
	c.ui.UserListChanged()
	return nil
}

// GoAway marks us as away with awayMsg
func (c *Controller) GoAway(awayMsg string) error {
	awayMsg = strings.TrimSpace(awayMsg)
	switch {
	case !c.state.IsLoggedOn():
		return commandError("You can not change away mode without being connected")
	case c.me.IsAway():
		return commandError("You are already away")
	case awayMsg == "":
		return commandError("You can not go away without an away message")
	case tooLong(awayMsg):
		return commandError("You can not set an away message with more than %d bytes", MaxMessageBytes)
	}

	c.UpdateWriting(false)
	c.messages.SendAway(awayMsg)
	c.me.SetAway(true, awayMsg)
	c.ui.ShowSystemMessage("You went away: " + awayMsg)
	c.ui.UserListChanged()
	return nil
}

// ComeBack ends away mode
func (c *Controller) ComeBack() error {
	switch {
	case !c.state.IsLoggedOn():
		return commandError("You can not change away mode without being connected")
	case !c.me.IsAway():
		return commandError("You are not away")
	}

	c.messages.SendBack()
	c.me.SetAway(false, "")
	c.ui.ShowSystemMessage("You came back")
	c.ui.UserListChanged()
	return nil
}

// UpdateWriting tells the others when we start or stop writing. Repeated
// calls with the same value send nothing.
func (c *Controller) UpdateWriting(writing bool) {
	if writing == c.state.IsWrote() {
		return
	}
	c.state.SetWrote(writing)
	c.me.SetWriting(writing)
	if writing {
		c.messages.SendWriting()
	} else {
		c.messages.SendStoppedWriting()
	}
}

// SendFile offers the file at path to user. The file is sent when the
// user accepts.
func (c *Controller) SendFile(user *model.User, path string) (*transfer.FileSender, error) {
	name := filepath.Base(path)
	switch {
	case user.IsMe():
		return nil, commandError("You can not send a file to yourself")
	case !c.IsConnected():
		return nil, commandError("You can not send a file without being connected")
	case c.me.IsAway():
		return nil, commandError("You can not send a file while away")
	case user.IsAway():
		return nil, commandError("You can not send a file to a user that is away")
	case tooLong(name):
		return nil, commandError("You can not send a file with a name with more than %d bytes", MaxMessageBytes)
	}

	fs, err := c.transfers.AddFileSender(user, path)
	if err != nil {
		return nil, commandError("You can not send %s: %v", name, err)
	}
	if err := c.messages.SendFile(fs); err != nil {
		c.transfers.RemoveFileSender(fs)
		return nil, err
	}

	c.ui.ShowSystemMessage(fmt.Sprintf("Trying to send the file %s (#%d) [%s] to %s",
		fs.FileName(), fs.ID(), byteString(fs.FileSize()), user.Nick()))
	return fs, nil
}

func (c *Controller) fileReceiver(id int) (*transfer.FileReceiver, error) {
	fr, ok := c.transfers.ByID(id).(*transfer.FileReceiver)
	if !ok {
		return nil, commandError("There is no file offer with id %d", id)
	}
	if fr.IsAccepted() || fr.IsRejected() {
		return nil, commandError("The file offer with id %d is already answered", id)
	}
	return fr, nil
}

// AcceptFile accepts the file offer with the given transfer id. A non-empty
// saveAs replaces the destination path.
func (c *Controller) AcceptFile(id int, saveAs string) error {
	fr, err := c.fileReceiver(id)
	if err != nil {
		return err
	}
	if saveAs != "" {
		fr.SetFile(saveAs)
	}
	fr.Accept()
	return nil
}

// RejectFile declines the file offer with the given transfer id
func (c *Controller) RejectFile(id int) error {
	fr, err := c.fileReceiver(id)
	if err != nil {
		return err
	}
	fr.Reject()
	return nil
}

// CancelTransfer stops the transfer with the given id. Unanswered offers
// from others are declined, our own unanswered offers are withdrawn.
func (c *Controller) CancelTransfer(id int) error {
	switch ft := c.transfers.ByID(id).(type) {
	case *transfer.FileReceiver:
		if !ft.IsAccepted() && !ft.IsRejected() {
			ft.Reject()
			return nil
		}
		ft.Cancel()
	case *transfer.FileSender:
		waiting := ft.IsWaiting()
		ft.Cancel()
		if waiting {
			c.transfers.RemoveFileSender(ft)
			c.messages.SendFileAbort(ft.User(), ft.FileHash(), ft.FileName())
			c.ui.ShowSystemMessage(fmt.Sprintf("You cancelled sending of %s to %s", ft.FileName(), ft.User().Nick()))
		}
	default:
		return commandError("There is no file transfer with id %d", id)
	}
	return nil
}

// BeforeNetworkCameUp implements network.ConnectionListener
func (c *Controller) BeforeNetworkCameUp() {}

// NetworkCameUp logs on the first time, and tells the others we are back
// after a network outage.
func (c *Controller) NetworkCameUp(silent bool) {
	if !c.state.IsLoggedOn() {
		c.completeLogonLater()
		c.messages.SendLogon()
		c.messages.SendClient()
		c.messages.SendExpose()
		c.messages.SendGetTopic()
		return
	}

	c.ui.ShowTopic(c.state.Topic())
	if !silent {
		c.ui.ShowSystemMessage("You are connected to the network again")
	}
	c.messages.SendTopicRequested(c.state.Topic())
	c.messages.SendExposing()
	c.messages.SendGetTopic()
	c.messages.SendExpose()
	c.messages.SendIdle()
}

// NetworkWentDown tells the user the connection is gone
func (c *Controller) NetworkWentDown(silent bool) {
	c.ui.ShowTopic(c.state.Topic())
	if c.state.IsLoggedOn() {
		if !silent {
			c.ui.ShowSystemMessage("You lost contact with the network")
		}
		return
	}
	c.ui.ShowSystemMessage("You logged off")
}

// completeLogonLater marks the logon completed after logonDelay if the
// network is still up
func (c *Controller) completeLogonLater() {
	c.goBackground(func() {
		if c.sleep(c.logonDelay) && c.net.IsNetworkUp() {
			c.state.SetLogonCompleted(true)
			log.Debug("logon completed")
		}
	})
}
