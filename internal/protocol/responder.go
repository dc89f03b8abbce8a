package protocol

import "github.com/lanchat/lanchat/internal/model"

// MessageResponder receives the decoded multicast messages from a Parser
type MessageResponder interface {
	MessageArrived(userCode int, msg string, color int)
	UserLogOn(newUser *model.User)
	UserExposing(user *model.User)
	UserLogOff(userCode int)
	AwayChanged(userCode int, away bool, awayMsg string)
	ExposeRequested()
	NickCrash()
	WritingChanged(userCode int, writing bool)
	TopicRequested()
	TopicChanged(userCode int, topic model.Topic)
	NickChanged(userCode int, newNick string)
	UserIdle(userCode int, ipAddress string)
	FileSendAccepted(userCode int, fileName string, fileHash int, port int)
	FileSendAborted(userCode int, fileName string, fileHash int)
	FileSend(userCode int, byteSize int64, fileName string, nick string, fileHash int)
	ClientInfo(userCode int, client string, timeSinceLogon int64, operatingSystem string, privateChatPort int, tcpChatPort int)
	MeLogOn(ipAddress string)
	MeIdle(ipAddress string)
}

// PrivateMessageResponder receives private messages from a PrivateParser
type PrivateMessageResponder interface {
	MessageArrived(userCode int, msg string, color int)
}
