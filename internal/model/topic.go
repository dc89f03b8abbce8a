package model

import "time"

// Topic is the shared channel topic. The zero value means no topic.
type Topic struct {
	Text string
	Nick string
	// Time is when the topic was set, in epoch milliseconds
	Time int64
}

// NewTopic creates a topic set by nick at time t
func NewTopic(text, nick string, t time.Time) Topic {
	return Topic{Text: text, Nick: nick, Time: t.UnixMilli()}
}

// HasTopic returns true if a topic text is set
func (t Topic) HasTopic() bool {
	return t.Text != ""
}

// SetAt returns the time the topic was set
func (t Topic) SetAt() time.Time {
	return time.UnixMilli(t.Time)
}

func (t Topic) String() string {
	if !t.HasTopic() {
		return ""
	}
	return t.Text + " (" + t.Nick + ")"
}
