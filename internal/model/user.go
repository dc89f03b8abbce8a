// Package model holds the chat participants and the shared topic
package model

import (
	"fmt"
	"regexp"
	"sync"
	"time"
)

// MaxNickLength is the longest nick name accepted on the wire
const MaxNickLength = 10

var validNick = regexp.MustCompile(`^[\p{L}\p{N}_-]{1,10}$`)

// IsValidNick reports whether nick is 1-10 letters, digits, '-' or '_'
func IsValidNick(nick string) bool {
	return validNick.MatchString(nick)
}

// User is a chat participant. All fields are guarded by the user's own lock,
// so a User can be shared between the receive goroutines and the front end.
type User struct {
	mu sync.RWMutex

	code            int
	nick            string
	ipAddress       string
	hostName        string
	away            bool
	awayMsg         string
	writing         bool
	online          bool
	me              bool
	lastIdle        time.Time
	logonTime       time.Time
	privateChatPort int
	tcpChatPort     int
	client          string
	operatingSystem string
	newPrivateMsg   bool
}

// NewUser creates an online user with the given nick and code
func NewUser(nick string, code int) *User {
	return &User{
		nick:   nick,
		code:   code,
		online: true,
	}
}

// NewMe creates the local user
func NewMe(nick string, code int) *User {
	u := NewUser(nick, code)
	u.me = true
	return u
}

// Code returns the unique user code
func (u *User) Code() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.code
}

// Nick returns the nick name
func (u *User) Nick() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.nick
}

// SetNick changes the nick name
func (u *User) SetNick(nick string) {
	u.mu.Lock()
	u.nick = nick
	u.mu.Unlock()
}

// IPAddress returns the last known ip address
func (u *User) IPAddress() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ipAddress
}

// SetIPAddress changes the ip address
func (u *User) SetIPAddress(ip string) {
	u.mu.Lock()
	u.ipAddress = ip
	u.mu.Unlock()
}

// HostName returns the host name, if known
func (u *User) HostName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.hostName
}

// SetHostName changes the host name
func (u *User) SetHostName(name string) {
	u.mu.Lock()
	u.hostName = name
	u.mu.Unlock()
}

// IsAway returns true if the user is away
func (u *User) IsAway() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.away
}

// AwayMsg returns the away message, empty when not away
func (u *User) AwayMsg() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.awayMsg
}

// SetAway changes the away state and message together
func (u *User) SetAway(away bool, msg string) {
	u.mu.Lock()
	u.away = away
	u.awayMsg = msg
	u.mu.Unlock()
}

// IsWriting returns true if the user is writing a message
func (u *User) IsWriting() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.writing
}

// SetWriting changes the writing state
func (u *User) SetWriting(writing bool) {
	u.mu.Lock()
	u.writing = writing
	u.mu.Unlock()
}

// IsOnline returns true until the user logs off or times out
func (u *User) IsOnline() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.online
}

// SetOnline changes the online state
func (u *User) SetOnline(online bool) {
	u.mu.Lock()
	u.online = online
	u.mu.Unlock()
}

// IsMe returns true for the local user
func (u *User) IsMe() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.me
}

// LastIdle returns when the user was last heard from
func (u *User) LastIdle() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastIdle
}

// SetLastIdle records when the user was last heard from
func (u *User) SetLastIdle(t time.Time) {
	u.mu.Lock()
	u.lastIdle = t
	u.mu.Unlock()
}

// LogonTime returns when the user logged on
func (u *User) LogonTime() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.logonTime
}

// SetLogonTime changes the logon time
func (u *User) SetLogonTime(t time.Time) {
	u.mu.Lock()
	u.logonTime = t
	u.mu.Unlock()
}

// PrivateChatPort returns the udp port for private messages, 0 if none
func (u *User) PrivateChatPort() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.privateChatPort
}

// SetPrivateChatPort changes the private chat port
func (u *User) SetPrivateChatPort(port int) {
	u.mu.Lock()
	u.privateChatPort = port
	u.mu.Unlock()
}

// TCPChatPort returns the advertised tcp chat port, 0 if none
func (u *User) TCPChatPort() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.tcpChatPort
}

// SetTCPChatPort changes the advertised tcp chat port
func (u *User) SetTCPChatPort(port int) {
	u.mu.Lock()
	u.tcpChatPort = port
	u.mu.Unlock()
}

// Client returns the client name and version of the user
func (u *User) Client() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.client
}

// SetClient changes the client name
func (u *User) SetClient(client string) {
	u.mu.Lock()
	u.client = client
	u.mu.Unlock()
}

// OperatingSystem returns the operating system the user runs
func (u *User) OperatingSystem() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.operatingSystem
}

// SetOperatingSystem changes the operating system
func (u *User) SetOperatingSystem(os string) {
	u.mu.Lock()
	u.operatingSystem = os
	u.mu.Unlock()
}

// HasNewPrivateMsg returns true if an unread private message exists
func (u *User) HasNewPrivateMsg() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.newPrivateMsg
}

// SetNewPrivateMsg marks private messages as read or unread
func (u *User) SetNewPrivateMsg(b bool) {
	u.mu.Lock()
	u.newPrivateMsg = b
	u.mu.Unlock()
}

// Reset clears the session state of the local user after logging off
func (u *User) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.away = false
	u.awayMsg = ""
	u.writing = false
	u.ipAddress = ""
	u.hostName = ""
	u.privateChatPort = 0
	u.tcpChatPort = 0
}

// String returns "nick (code)"
func (u *User) String() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return fmt.Sprintf("%s (%d)", u.nick, u.code)
}
