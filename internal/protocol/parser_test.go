package protocol

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a MessageResponder that records every call as a string
type recorder struct {
	mu    sync.Mutex
	calls []string
	users []*model.User
	topic model.Topic
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) MessageArrived(code int, msg string, color int) {
	r.add("MessageArrived %d %s %d", code, msg, color)
}
func (r *recorder) UserLogOn(u *model.User) {
	r.users = append(r.users, u)
	r.add("UserLogOn %s", u)
}
func (r *recorder) UserExposing(u *model.User) {
	r.users = append(r.users, u)
	r.add("UserExposing %s away=%t %s", u, u.IsAway(), u.AwayMsg())
}
func (r *recorder) UserLogOff(code int) { r.add("UserLogOff %d", code) }
func (r *recorder) AwayChanged(code int, away bool, msg string) {
	r.add("AwayChanged %d %t %s", code, away, msg)
}
func (r *recorder) ExposeRequested() { r.add("ExposeRequested") }
func (r *recorder) NickCrash() { r.add("NickCrash") }
func (r *recorder) WritingChanged(code int, w bool) { r.add("WritingChanged %d %t", code, w) }
func (r *recorder) TopicRequested() { r.add("TopicRequested") }
func (r *recorder) NickChanged(code int, nick string) { r.add("NickChanged %d %s", code, nick) }
func (r *recorder) UserIdle(code int, ip string) { r.add("UserIdle %d %s", code, ip) }
func (r *recorder) MeLogOn(ip string) { r.add("MeLogOn %s", ip) }
func (r *recorder) MeIdle(ip string) { r.add("MeIdle %s", ip) }
func (r *recorder) TopicChanged(code int, t model.Topic) {
	r.topic = t
	r.add("TopicChanged %d %s %s %d", code, t.Text, t.Nick, t.Time)
}
func (r *recorder) FileSendAccepted(code int, name string, hash, port int) {
	r.add("FileSendAccepted %d %s %d %d", code, name, hash, port)
}
func (r *recorder) FileSendAborted(code int, name string, hash int) {
	r.add("FileSendAborted %d %s %d", code, name, hash)
}
func (r *recorder) FileSend(code int, size int64, name, nick string, hash int) {
	r.add("FileSend %d %d %s %s %d", code, size, name, nick, hash)
}
func (r *recorder) ClientInfo(code int, client string, uptime int64, os string, priv, tcp int) {
	r.add("ClientInfo %d %s %d %s %d %d", code, client, uptime, os, priv, tcp)
}

const (
	meCode  = 10000001
	bobCode = 10000002
)

func newTestParser() (*Parser, *recorder) {
	rec := &recorder{}
	p := NewParser(model.NewMe("Alice", meCode), rec)
	return p, rec
}

func loggedOnParser(t *testing.T) (*Parser, *recorder) {
	t.Helper()
	p, rec := newTestParser()
	p.MessageArrived(fmt.Sprintf("%d!LOGON#Alice:", meCode), "192.168.1.10")
	require.True(t, p.IsLoggedOn())
	rec.calls = nil
	return p, rec
}

func TestSelfMessagesAreFiltered(t *testing.T) {
	p, rec := loggedOnParser(t)

	for _, typ := range []string{"MSG", "AWAY", "BACK", "EXPOSE", "WRITING", "GETTOPIC", "NICK", "LOGOFF"} {
		p.MessageArrived(fmt.Sprintf("%d!%s#Alice:[1]x", meCode, typ), "192.168.1.10")
	}
	assert.Empty(t, rec.Calls())

	p.MessageArrived(fmt.Sprintf("%d!IDLE#Alice:", meCode), "192.168.1.11")
	p.MessageArrived(fmt.Sprintf("%d!LOGON#Alice:", meCode), "192.168.1.12")
	assert.Equal(t, []string{"MeIdle 192.168.1.11", "MeLogOn 192.168.1.12"}, rec.Calls())
}

func TestNothingBeforeLogon(t *testing.T) {
	p, rec := newTestParser()

	p.MessageArrived(fmt.Sprintf("%d!MSG#Bob:[1]early", bobCode), "192.168.1.20")
	p.MessageArrived(fmt.Sprintf("%d!LOGON#Bob:", bobCode), "192.168.1.20")
	p.MessageArrived(fmt.Sprintf("%d!IDLE#Alice:", meCode), "192.168.1.10")
	assert.Empty(t, rec.Calls())
	assert.False(t, p.IsLoggedOn())

	p.MessageArrived(fmt.Sprintf("%d!LOGON#Alice:", meCode), "192.168.1.10")
	p.MessageArrived(fmt.Sprintf("%d!MSG#Bob:[1]late", bobCode), "192.168.1.20")
	assert.Equal(t, []string{
		"MeLogOn 192.168.1.10",
		fmt.Sprintf("MessageArrived %d late 1", bobCode),
	}, rec.Calls())

	p.SetLoggedOn(false)
	p.MessageArrived(fmt.Sprintf("%d!MSG#Bob:[1]gone", bobCode), "192.168.1.20")
	assert.Len(t, rec.Calls(), 2)
}

func TestLogonCreatesUser(t *testing.T) {
	p, rec := loggedOnParser(t)
	now := time.UnixMilli(1700000000000)
	p.now = func() time.Time { return now }

	p.MessageArrived(fmt.Sprintf("%d!LOGON#Bob:", bobCode), "192.168.1.20")

	require.Len(t, rec.users, 1)
	bob := rec.users[0]
	assert.Equal(t, "Bob", bob.Nick())
	assert.Equal(t, bobCode, bob.Code())
	assert.Equal(t, "192.168.1.20", bob.IPAddress())
	assert.Equal(t, now, bob.LastIdle())
	assert.Equal(t, now, bob.LogonTime())
	assert.False(t, bob.IsMe())
}

func TestExposingSetsAway(t *testing.T) {
	p, rec := loggedOnParser(t)

	p.MessageArrived(fmt.Sprintf("%d!EXPOSING#Bob:", bobCode), "192.168.1.20")
	p.MessageArrived(fmt.Sprintf("%d!EXPOSING#Bob:at lunch", bobCode), "192.168.1.20")

	assert.Equal(t, []string{
		fmt.Sprintf("UserExposing Bob (%d) away=false ", bobCode),
		fmt.Sprintf("UserExposing Bob (%d) away=true at lunch", bobCode),
	}, rec.Calls())
}

func TestDispatch(t *testing.T) {
	p, rec := loggedOnParser(t)
	ip := "192.168.1.20"

	lines := []string{
		"%d!MSG#Bob:[-256]hi [there]",
		"%d!LOGOFF#Bob:",
		"%d!AWAY#Bob:gone fishing",
		"%d!BACK#Bob:",
		"%d!EXPOSE#Bob:",
		"%d!NICKCRASH#Bob:Carol",
		"%d!NICKCRASH#Bob:Alice",
		"%d!WRITING#Bob:",
		"%d!STOPPEDWRITING#Bob:",
		"%d!GETTOPIC#Bob:",
		"%d!TOPIC#Bob:(Bob)[1700000000000]Friday",
		"%d!TOPIC#Bob:no topic fields",
		"%d!NICK#Robert:",
		"%d!IDLE#Bob:",
		"%d!CLIENT#Bob:(lanchat v0.9.0)[900]{Linux}<40657>",
		"%d!DANCE#Bob:",
	}
	for _, line := range lines {
		p.MessageArrived(fmt.Sprintf(line, bobCode), ip)
	}

	b := bobCode
	assert.Equal(t, []string{
		fmt.Sprintf("MessageArrived %d hi [there] -256", b),
		fmt.Sprintf("UserLogOff %d", b),
		fmt.Sprintf("AwayChanged %d true gone fishing", b),
		fmt.Sprintf("AwayChanged %d false ", b),
		"ExposeRequested",
		"NickCrash",
		fmt.Sprintf("WritingChanged %d true", b),
		fmt.Sprintf("WritingChanged %d false", b),
		"TopicRequested",
		fmt.Sprintf("TopicChanged %d Friday Bob 1700000000000", b),
		fmt.Sprintf("NickChanged %d Robert", b),
		fmt.Sprintf("UserIdle %d %s", b, ip),
		fmt.Sprintf("ClientInfo %d lanchat v0.9.0 900 Linux 40657 0", b),
	}, rec.Calls())
}

func TestFileMessagesForOthersAreDropped(t *testing.T) {
	p, rec := loggedOnParser(t)
	other := 10000003

	for _, target := range []int{other, meCode} {
		p.MessageArrived(fmt.Sprintf("%d!SENDFILE#Bob:(%d)[2048]{77}photo.jpg", bobCode, target), "192.168.1.20")
		p.MessageArrived(fmt.Sprintf("%d!SENDFILEACCEPT#Bob:(%d)[40756]{77}photo.jpg", bobCode, target), "192.168.1.20")
		p.MessageArrived(fmt.Sprintf("%d!SENDFILEABORT#Bob:(%d){77}photo.jpg", bobCode, target), "192.168.1.20")
	}

	assert.Equal(t, []string{
		fmt.Sprintf("FileSend %d 2048 photo.jpg Bob 77", bobCode),
		fmt.Sprintf("FileSendAccepted %d photo.jpg 77 40756", bobCode),
		fmt.Sprintf("FileSendAborted %d photo.jpg 77", bobCode),
	}, rec.Calls())
}

func TestMalformedMessagesDoNotChangeState(t *testing.T) {
	p, rec := newTestParser()

	for _, line := range []string{"", "nonsense", "x!LOGON#Alice:", fmt.Sprintf("%d!MSG#Bob:[oops]hi", bobCode)} {
		p.MessageArrived(line, "192.168.1.20")
	}
	assert.False(t, p.IsLoggedOn())
	assert.Empty(t, rec.Calls())
}

type privateRecorder struct{ calls []string }

func (r *privateRecorder) MessageArrived(code int, msg string, color int) {
	r.calls = append(r.calls, fmt.Sprintf("%d %s %d", code, msg, color))
}

func TestPrivateParser(t *testing.T) {
	rec := &privateRecorder{}
	p := NewPrivateParser(model.NewMe("Alice", meCode), rec)

	p.MessageArrived(fmt.Sprintf("%d!PRIVMSG#Bob:(%d)[12]hello", bobCode, meCode), "192.168.1.20")
	p.MessageArrived(fmt.Sprintf("%d!PRIVMSG#Bob:(10000009)[12]not for me", bobCode), "192.168.1.20")
	p.MessageArrived(fmt.Sprintf("%d!PRIVMSG#Alice:(%d)[12]echo", meCode, meCode), "192.168.1.10")
	p.MessageArrived(fmt.Sprintf("%d!MSG#Bob:[12]wrong type", bobCode), "192.168.1.20")
	p.MessageArrived("garbage", "192.168.1.20")

	assert.Equal(t, []string{fmt.Sprintf("%d hello 12", bobCode)}, rec.calls)
}
