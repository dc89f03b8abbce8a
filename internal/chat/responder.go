package chat

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/netutil"
	"github.com/lanchat/lanchat/internal/transfer"
)

const (
	identifyPolls    = 40
	identifyInterval = 50 * time.Millisecond
	// acceptDelay gives the receiver time to open its server socket
	acceptDelay = 200 * time.Millisecond

	topicDateFormat = "15:04:05, 02. Jan. 06"
)

// DefaultResponder applies the messages from the other clients to the
// session. Messages from users we do not know yet make us ask everyone to
// identify themselves; chat messages and file offers from such users are
// held back for a short while so they show up after the user is listed.
type DefaultResponder struct {
	c *Controller
}

// NewDefaultResponder creates the multicast responder of c
func NewDefaultResponder(c *Controller) *DefaultResponder {
	return &DefaultResponder{c: c}
}

// isNewUser is true for codes not in the registry
func (r *DefaultResponder) isNewUser(code int) bool {
	return r.c.users.Get(code) == nil
}

// askUserToIdentify asks an unknown user to expose, once per user
func (r *DefaultResponder) askUserToIdentify(code int) {
	r.c.waiting.Add(code)
	r.c.messages.SendExpose()
	r.c.messages.SendGetTopic()
}

// waitForUserToIdentify polls until code is off the waiting list or the
// polls run out
func (r *DefaultResponder) waitForUserToIdentify(code int) {
	for i := 0; i < identifyPolls && r.c.waiting.Contains(code); i++ {
		if !r.c.sleep(r.c.identifyInterval) {
			return
		}
	}
}

// later runs fn after the user identified itself or the wait ran out
func (r *DefaultResponder) later(code int, fn func()) {
	r.c.goBackground(func() {
		r.waitForUserToIdentify(code)
		fn()
	})
}

// MessageArrived shows a chat message, after the sender identified if needed
func (r *DefaultResponder) MessageArrived(userCode int, msg string, color int) {
	if r.isNewUser(userCode) {
		r.askUserToIdentify(userCode)
		r.later(userCode, func() { r.showMessage(userCode, msg, color) })
		return
	}
	r.showMessage(userCode, msg, color)
}

// showMessage shows msg from a known user who is not away
func (r *DefaultResponder) showMessage(userCode int, msg string, color int) {
	user := r.c.users.Get(userCode)
	if user == nil {
		log.WithField("code", userCode).Warn("ignore message from unknown user")
		return
	}
	if user.IsAway() {
		log.WithField("user", user).Warn("ignore message from away user")
		return
	}
	r.c.ui.ShowUserMessage(user, msg, color)
}

// fixNick gives newUser its code as nick when the nick can not be used
func (r *DefaultResponder) fixNick(newUser *model.User) {
	nick := newUser.Nick()
	me := r.c.me
	entry := log.WithField("user", newUser)

	switch {
	case strings.EqualFold(strings.TrimSpace(me.Nick()), nick):
		entry.Warn("user has my nick, sending nick crash")
		r.c.messages.SendNickCrash(nick)
	case r.c.users.IsNickInUse(nick, newUser.Code()):
		entry.Warn("user has a nick already in use")
	case !model.IsValidNick(nick):
		entry.Warn("user has an invalid nick")
	default:
		return
	}
	newUser.SetNick(strconv.Itoa(newUser.Code()))
}

// addUser fixes the nick of newUser and adds it to the registry
func (r *DefaultResponder) addUser(newUser *model.User) bool {
	r.fixNick(newUser)
	r.c.waiting.Remove(newUser.Code())
	if !r.c.users.Add(newUser) {
		log.WithField("user", newUser).Debug("user already known")
		return false
	}
	return true
}

// UserLogOn adds a user who just logged on
func (r *DefaultResponder) UserLogOn(newUser *model.User) {
	if r.addUser(newUser) {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s logged on from %s", newUser.Nick(), newUser.IPAddress()))
	}
}

// UserExposing adds an unknown user or updates nick and away state of a
// known one
func (r *DefaultResponder) UserExposing(user *model.User) {
	if r.isNewUser(user.Code()) {
		// usually a user coming back from a timeout
		if r.c.state.IsLogonCompleted() {
			if r.addUser(user) {
				r.c.ui.ShowSystemMessage(fmt.Sprintf("%s showed up unexpectedly from %s", user.Nick(), user.IPAddress()))
			}
			return
		}

		r.c.waiting.Remove(user.Code())
		r.c.users.Add(user)
		return
	}

	known := r.c.users.Get(user.Code())
	if known == nil {
		return
	}
	if known.Nick() != user.Nick() {
		r.NickChanged(user.Code(), user.Nick())
	}
	if known.AwayMsg() != user.AwayMsg() {
		r.AwayChanged(user.Code(), user.IsAway(), user.AwayMsg())
	}
}

// UserLogOff removes the user and its file transfers
func (r *DefaultResponder) UserLogOff(userCode int) {
	user := r.c.users.Get(userCode)
	if user == nil {
		log.WithField("code", userCode).Warn("ignore logoff from unknown user")
		return
	}
	r.c.removeUser(user)
	r.c.ui.ShowSystemMessage(user.Nick() + " logged off")
}

// AwayChanged updates the away state of a user
func (r *DefaultResponder) AwayChanged(userCode int, away bool, awayMsg string) {
	if r.isNewUser(userCode) {
		r.askUserToIdentify(userCode)
		return
	}
	user := r.c.users.Get(userCode)
	if user == nil {
		return
	}

	user.SetAway(away, awayMsg)
	if away {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s went away: %s", user.Nick(), awayMsg))
	} else {
		r.c.ui.ShowSystemMessage(user.Nick() + " came back")
	}
	r.c.ui.UserListChanged()
}

// ExposeRequested answers with EXPOSING and CLIENT
func (r *DefaultResponder) ExposeRequested() {
	r.c.messages.SendExposing()
	r.c.messages.SendClient()
}

// NickCrash resets our nick to the user code
func (r *DefaultResponder) NickCrash() {
	me := r.c.me
	me.SetNick(strconv.Itoa(me.Code()))
	r.c.ui.ShowSystemMessage("Nick crash, resetting nick to " + me.Nick())
	r.c.ui.ShowTopic(r.c.state.Topic())
	r.c.ui.UserListChanged()
}

// WritingChanged updates the writing state of a user
func (r *DefaultResponder) WritingChanged(userCode int, writing bool) {
	user := r.c.users.Get(userCode)
	if user == nil {
		return
	}
	user.SetWriting(writing)
	r.c.ui.UserListChanged()
}

// TopicRequested sends our topic
func (r *DefaultResponder) TopicRequested() {
	r.c.messages.SendTopicRequested(r.c.state.Topic())
}

// TopicChanged replaces our topic when the received one is at least as new
// and different. Topics without time or nick are ignored.
func (r *DefaultResponder) TopicChanged(userCode int, topic model.Topic) {
	if r.isNewUser(userCode) {
		r.askUserToIdentify(userCode)
		return
	}
	if topic.Time <= 0 || topic.Nick == "" {
		return
	}

	current := r.c.state.Topic()
	if topic.Time < current.Time {
		return
	}
	if topic.Text == current.Text && topic.Nick == current.Nick {
		return
	}

	logonCompleted := r.c.state.IsLogonCompleted()
	if topic.Text == "" {
		if !current.HasTopic() || !logonCompleted || topic.Time <= current.Time {
			return
		}
		r.c.ui.ShowSystemMessage(topic.Nick + " removed the topic")
		r.c.state.SetTopic(model.Topic{Time: topic.Time})
		r.c.ui.ShowTopic(r.c.state.Topic())
		return
	}

	if logonCompleted {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s changed the topic to: %s", topic.Nick, topic.Text))
	} else {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("Topic is: %s (set by %s at %s)",
			topic.Text, topic.Nick, topic.SetAt().Format(topicDateFormat)))
	}
	r.c.state.SetTopic(topic)
	r.c.ui.ShowTopic(topic)
}

// NickChanged renames a user unless the nick is taken or invalid
func (r *DefaultResponder) NickChanged(userCode int, newNick string) {
	if r.isNewUser(userCode) {
		r.askUserToIdentify(userCode)
		return
	}
	user := r.c.users.Get(userCode)
	if user == nil {
		return
	}

	if r.c.users.IsNickInUse(newNick, userCode) || !model.IsValidNick(newNick) {
		log.WithField("user", user).Warnf("reject nick change to %q", newNick)
		return
	}

	oldNick := user.Nick()
	user.SetNick(newNick)
	r.c.ui.ShowSystemMessage(fmt.Sprintf("%s changed nick to %s", oldNick, newNick))
	r.c.ui.UserListChanged()
}

// UserIdle refreshes the idle time and ip address of a user
func (r *DefaultResponder) UserIdle(userCode int, ipAddress string) {
	if r.isNewUser(userCode) {
		r.askUserToIdentify(userCode)
		return
	}
	user := r.c.users.Get(userCode)
	if user == nil {
		return
	}

	user.SetLastIdle(r.c.now())
	if old := user.IPAddress(); old != ipAddress {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s changed ip from %s to %s", user.Nick(), old, ipAddress))
		user.SetIPAddress(ipAddress)
	}
}

// FileSendAccepted starts sending a file the receiver is ready for
func (r *DefaultResponder) FileSendAccepted(userCode int, fileName string, fileHash int, port int) {
	user := r.c.users.Get(userCode)
	if user == nil {
		return
	}
	fs := r.c.transfers.FileSender(user, fileName, fileHash)
	if fs == nil || !fs.Claim() {
		return
	}

	r.c.goBackground(func() {
		defer r.c.transfers.RemoveFileSender(fs)

		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s accepted sending of %s", user.Nick(), fileName))
		if !r.c.sleep(acceptDelay) {
			fs.Cancel()
			return
		}

		r.c.ui.TransferStarted(fs)
		if fs.Transfer(port) {
			r.c.ui.ShowSystemMessage(fmt.Sprintf("%s successfully sent to %s", fileName, user.Nick()))
		} else {
			r.c.ui.ShowSystemMessage(fmt.Sprintf("Failed to send %s to %s", fileName, user.Nick()))
		}
	})
}

// FileSendAborted cancels transfers of fileName with the user
func (r *DefaultResponder) FileSendAborted(userCode int, fileName string, fileHash int) {
	user := r.c.users.Get(userCode)
	if user == nil {
		return
	}

	if fs := r.c.transfers.FileSender(user, fileName, fileHash); fs != nil {
		fs.Cancel()
		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s aborted reception of %s", user.Nick(), fileName))
		r.c.transfers.RemoveFileSender(fs)
	}

	if fr := r.c.transfers.FileReceiver(user, fileName); fr != nil {
		fr.Cancel()
		r.c.ui.ShowSystemMessage(fmt.Sprintf("%s aborted sending of %s", user.Nick(), fileName))
	}
}

// FileSend handles a file offer. The user interface decides through the
// receiver; the reception runs on its own goroutine.
func (r *DefaultResponder) FileSend(userCode int, byteSize int64, fileName string, nick string, fileHash int) {
	if r.isNewUser(userCode) {
		r.askUserToIdentify(userCode)
	}
	r.later(userCode, func() { r.receiveFile(userCode, byteSize, fileName, nick, fileHash) })
}

// receiveFile offers the file to the user interface and receives it when
// accepted
func (r *DefaultResponder) receiveFile(userCode int, byteSize int64, fileName, nick string, fileHash int) {
	user := r.c.users.Get(userCode)
	if user == nil {
		log.WithField("code", userCode).Warnf("ignore file offer of %s from unknown user", fileName)
		return
	}

	dir := r.c.settings.DownloadDir()
	fr := r.c.transfers.AddFileReceiver(user, filepath.Join(dir, filepath.Base(fileName)), byteSize, fileHash)
	defer r.c.transfers.RemoveFileReceiver(fr)
	fr.SetFile(transfer.UniqueFile(dir, fileName))

	r.c.ui.ShowSystemMessage(fmt.Sprintf("%s is trying to send the file %s (#%d) [%s]",
		nick, fileName, fr.ID(), byteString(byteSize)))
	r.c.ui.FileOffered(fr)

	switch fr.WaitForDecision(r.c.ctx) {
	case transfer.DecisionCanceled:
		if !fr.IsCanceled() {
			fr.Cancel()
		}
		return
	case transfer.DecisionRejected:
		r.c.ui.ShowSystemMessage(fmt.Sprintf("You declined to receive %s from %s", fileName, nick))
		r.c.messages.SendFileAbort(user, fileHash, fileName)
		return
	}

	r.c.ui.TransferStarted(fr)

	port, err := fr.StartServer()
	if err != nil {
		log.WithError(err).Error("start file transfer server")
		r.c.ui.ShowSystemMessage(fmt.Sprintf("Failed to receive %s from %s", fileName, nick))
		r.c.messages.SendFileAbort(user, fileHash, fileName)
		fr.Cancel()
		return
	}

	if err := r.c.messages.SendFileAccept(user, port, fileHash, fileName); err != nil {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("Failed to receive %s from %s", fileName, nick))
		fr.Cancel()
		return
	}

	if fr.Transfer() {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("Successfully received %s from %s, and saved as %s",
			fileName, nick, fr.FileName()))
	} else {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("Failed to receive %s from %s", fileName, nick))
		fr.Cancel()
	}
}

// ClientInfo stores client details and ports of a user
func (r *DefaultResponder) ClientInfo(userCode int, client string, timeSinceLogon int64, operatingSystem string, privateChatPort int, tcpChatPort int) {
	user := r.c.users.Get(userCode)
	if user == nil {
		log.WithField("code", userCode).Warn("ignore client info from unknown user")
		return
	}

	user.SetClient(client)
	user.SetLogonTime(r.c.now().Add(-time.Duration(timeSinceLogon) * time.Millisecond))
	user.SetOperatingSystem(operatingSystem)
	user.SetPrivateChatPort(privateChatPort)
	user.SetTCPChatPort(tcpChatPort)
}

// MeLogOn is our own LOGON coming back from the network
func (r *DefaultResponder) MeLogOn(ipAddress string) {
	me := r.c.me
	r.c.state.SetLoggedOn(true)
	me.SetIPAddress(ipAddress)
	me.SetHostName(netutil.HostName())

	r.c.ui.ShowSystemMessage(fmt.Sprintf("You logged on as %s from %s", me.Nick(), hostInfo(me)))
	r.c.ui.ShowTopic(r.c.state.Topic())
}

// MeIdle is our own IDLE coming back from the network
func (r *DefaultResponder) MeIdle(ipAddress string) {
	me := r.c.me
	me.SetLastIdle(r.c.now())

	if old := me.IPAddress(); old != ipAddress && r.c.state.IsLoggedOn() {
		r.c.ui.ShowSystemMessage(fmt.Sprintf("You changed ip from %s to %s", old, ipAddress))
		me.SetIPAddress(ipAddress)
	}
}

// hostInfo returns "host (ip)", or just the ip without a host name
func hostInfo(user *model.User) string {
	if host := user.HostName(); host != "" {
		return fmt.Sprintf("%s (%s)", host, user.IPAddress())
	}
	return user.IPAddress()
}

// byteString renders a size the way file offers show it
func byteString(bytes int64) string {
	const unit = 1024
	switch {
	case bytes < unit:
		return fmt.Sprintf("%dB", bytes)
	case bytes < unit*unit:
		return fmt.Sprintf("%.2fKB", float64(bytes)/unit)
	case bytes < unit*unit*unit:
		return fmt.Sprintf("%.2fMB", float64(bytes)/(unit*unit))
	}
	return fmt.Sprintf("%.2fGB", float64(bytes)/(unit*unit*unit))
}

// DefaultPrivateResponder shows private messages
type DefaultPrivateResponder struct {
	c *Controller
}

// NewDefaultPrivateResponder creates the private message responder of c
func NewDefaultPrivateResponder(c *Controller) *DefaultPrivateResponder {
	return &DefaultPrivateResponder{c: c}
}

// MessageArrived shows msg if it comes from a known user who can be
// answered and neither of us is away.
func (r *DefaultPrivateResponder) MessageArrived(userCode int, msg string, color int) {
	user := r.c.users.Get(userCode)
	entry := log.WithField("code", userCode)

	switch {
	case user == nil:
		entry.Warn("ignore private message from unknown user")
	case r.c.me.IsAway():
		entry.Warn("ignore private message while away")
	case user.IsAway():
		entry.Warn("ignore private message from away user")
	case user.PrivateChatPort() == 0:
		entry.Warn("ignore private message from user without private chat port")
	default:
		user.SetNewPrivateMsg(true)
		r.c.ui.ShowPrivateMessage(user, msg, color)
		r.c.ui.UserListChanged()
	}
}
