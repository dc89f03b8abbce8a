// Package chat runs a chat session on top of the network and protocol
// packages: it keeps the user list and topic in sync with the other
// clients, carries out the user's commands and drives file transfers.
package chat

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/network"
	"github.com/lanchat/lanchat/internal/transfer"
)

var log = logrus.WithField("component", "chat")

// MaxMessageBytes is the largest chat message, away message, topic or
// file name accepted from the user.
const MaxMessageBytes = 450

// CommandError is a user command that could not be carried out
type CommandError struct {
	Message string
}

// Error returns the message shown to the user
func (e *CommandError) Error() string { return e.Message }

// commandError formats a *CommandError
func commandError(format string, args ...any) error {
	return &CommandError{Message: fmt.Sprintf(format, args...)}
}

// UserInterface shows what happens in the chat. Calls come from network
// goroutines and must not block.
type UserInterface interface {
	ShowSystemMessage(message string)
	ShowUserMessage(user *model.User, message string, color int)
	ShowPrivateMessage(user *model.User, message string, color int)
	ShowTopic(topic model.Topic)
	// FileOffered is called when someone wants to send us a file. Answer
	// with Accept or Reject on the receiver.
	FileOffered(receiver *transfer.FileReceiver)
	TransferStarted(ft transfer.FileTransfer)
	UserListChanged()
}

// Network is what the chat needs from the network service
type Network interface {
	Connect()
	Disconnect()
	IsNetworkUp() bool
	IsWorkerAlive() bool
	CheckNetwork()
	SendMulticastMsg(message string) bool
	SendUDPMsg(message, ip string, port int) bool
	RegisterConnectionListener(l network.ConnectionListener)
	RegisterMulticastListener(l network.ReceiverListener)
	RegisterUDPListener(l network.ReceiverListener)
}

// State holds the session flags and the topic
type State struct {
	mu             sync.RWMutex
	loggedOn       bool
	logonCompleted bool
	wrote          bool
	topic          model.Topic
}

// IsLoggedOn reports whether our own LOGON came back from the network
func (s *State) IsLoggedOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedOn
}

// SetLoggedOn records whether our LOGON came back
func (s *State) SetLoggedOn(loggedOn bool) {
	s.mu.Lock()
	s.loggedOn = loggedOn
	s.mu.Unlock()
}

// IsLogonCompleted reports whether the logon handshake is over
func (s *State) IsLogonCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logonCompleted
}

// SetLogonCompleted records whether the logon handshake finished
func (s *State) SetLogonCompleted(completed bool) {
	s.mu.Lock()
	s.logonCompleted = completed
	s.mu.Unlock()
}

// IsWrote reports whether we told the others we are writing
func (s *State) IsWrote() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wrote
}

// SetWrote records whether we told everyone we are writing
func (s *State) SetWrote(wrote bool) {
	s.mu.Lock()
	s.wrote = wrote
	s.mu.Unlock()
}

// Topic returns the current topic
func (s *State) Topic() model.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topic
}

// SetTopic replaces the current topic
func (s *State) SetTopic(topic model.Topic) {
	s.mu.Lock()
	s.topic = topic
	s.mu.Unlock()
}

// WaitingList holds codes of unknown users we asked to identify themselves
type WaitingList struct {
	mu    sync.Mutex
	codes map[int]struct{}
}

// NewWaitingList creates an empty list
func NewWaitingList() *WaitingList {
	return &WaitingList{codes: make(map[int]struct{})}
}

// Add puts code on the list
func (w *WaitingList) Add(code int) {
	w.mu.Lock()
	w.codes[code] = struct{}{}
	w.mu.Unlock()
}

// Remove takes code off the list
func (w *WaitingList) Remove(code int) {
	w.mu.Lock()
	delete(w.codes, code)
	w.mu.Unlock()
}

// Contains is true while code is waiting to identify
func (w *WaitingList) Contains(code int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.codes[code]
	return ok
}
