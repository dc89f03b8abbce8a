package protocol

import "github.com/lanchat/lanchat/internal/model"

// Event is a decoded message
type Event interface {
	Type() MessageType
	From() Sender
}

// Sender is the user code and nick from the message header
type Sender struct {
	Code int
	Nick string
}

// From returns the sender of the event
func (s Sender) From() Sender { return s }

// ChatMessage is a MSG to everyone
type ChatMessage struct {
	Sender
	Color int
	Text  string
}

// LogOn announces a new user
type LogOn struct{ Sender }

// Exposing answers an EXPOSE. An empty AwayMsg means the user is not away.
type Exposing struct {
	Sender
	AwayMsg string
}

// LogOff announces that a user left
type LogOff struct{ Sender }

// Away tells that a user went away
type Away struct {
	Sender
	Message string
}

// Back tells that a user came back
type Back struct{ Sender }

// Expose asks every user to send EXPOSING
type Expose struct{ Sender }

// NickCrash tells the owner of Nick that somebody else already uses it
type NickCrash struct {
	Sender
	Nick string
}

// Writing tells that a user started writing
type Writing struct{ Sender }

// StoppedWriting tells that a user stopped writing
type StoppedWriting struct{ Sender }

// GetTopic asks for the current topic
type GetTopic struct{ Sender }

// TopicMessage carries the topic. Topic.Text is empty when no topic is set.
type TopicMessage struct {
	Sender
	Topic model.Topic
}

// NickChange carries the new nick in the sender field
type NickChange struct{ Sender }

// Idle is the periodic liveness message
type Idle struct{ Sender }

// FileAccept tells the sender of a file offer where to connect
type FileAccept struct {
	Sender
	Target int
	Port   int
	Hash   int
	Name   string
}

// FileAbort cancels a file offer from either side
type FileAbort struct {
	Sender
	Target int
	Hash   int
	Name   string
}

// FileOffer offers a file to the target user
type FileOffer struct {
	Sender
	Target int
	Size   int64
	Hash   int
	Name   string
}

// ClientInfo describes the client of a user
type ClientInfo struct {
	Sender
	Client string
	// Uptime is the time since logon in milliseconds
	Uptime          int64
	OS              string
	PrivateChatPort int
	TCPChatPort     int
}

// PrivateMessage is a PRIVMSG sent directly to Target
type PrivateMessage struct {
	Sender
	Target int
	Color  int
	Text   string
}

func (ChatMessage) Type() MessageType    { return TypeMsg }
func (LogOn) Type() MessageType          { return TypeLogon }
func (Exposing) Type() MessageType       { return TypeExposing }
func (LogOff) Type() MessageType         { return TypeLogoff }
func (Away) Type() MessageType           { return TypeAway }
func (Back) Type() MessageType           { return TypeBack }
func (Expose) Type() MessageType         { return TypeExpose }
func (NickCrash) Type() MessageType      { return TypeNickCrash }
func (Writing) Type() MessageType        { return TypeWriting }
func (StoppedWriting) Type() MessageType { return TypeStoppedWriting }
func (GetTopic) Type() MessageType       { return TypeGetTopic }
func (TopicMessage) Type() MessageType   { return TypeTopic }
func (NickChange) Type() MessageType     { return TypeNick }
func (Idle) Type() MessageType           { return TypeIdle }
func (FileAccept) Type() MessageType     { return TypeSendFileAccept }
func (FileAbort) Type() MessageType      { return TypeSendFileAbort }
func (FileOffer) Type() MessageType      { return TypeSendFile }
func (ClientInfo) Type() MessageType     { return TypeClient }
func (PrivateMessage) Type() MessageType { return TypePrivMsg }
