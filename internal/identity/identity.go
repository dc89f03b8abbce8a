// Package identity creates the local user: its random code, default nick
// and the client string sent to others.
package identity

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/netutil"
	"github.com/lanchat/lanchat/internal/osdetect"
)

const (
	// AppName is shown in the client string
	AppName = "lanchat"
	// Version of the application
	Version = "1.0.0"

	codeBase  = 10000000
	codeRange = 9999999
)

// NewUserCode returns a random code between 10000000 and 19999999
func NewUserCode() int {
	return codeBase + int(uuid.New().ID()%(codeRange+1))
}

// ClientName returns the client string for version, like "lanchat v1.0.0"
func ClientName(version string) string {
	return fmt.Sprintf("%s v%s", AppName, version)
}

// DefaultNick builds a nick from the login name: first word, at most 10
// characters, first letter upper case. Falls back to the code.
func DefaultNick(loginName string, code int) string {
	fields := strings.Fields(loginName)
	if len(fields) == 0 {
		return strconv.Itoa(code)
	}

	nick := fields[0]
	if utf8.RuneCountInString(nick) > model.MaxNickLength {
		nick = string([]rune(nick)[:model.MaxNickLength])
	}
	r, size := utf8.DecodeRuneInString(nick)
	nick = string(unicode.ToUpper(r)) + nick[size:]

	if !model.IsValidNick(nick) {
		return strconv.Itoa(code)
	}
	return nick
}

func loginName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

// NewMe creates the local user with a fresh code. An empty or invalid nick
// is replaced by DefaultNick.
func NewMe(nick string) *model.User {
	code := NewUserCode()
	if !model.IsValidNick(nick) {
		nick = DefaultNick(loginName(), code)
	}

	now := time.Now()
	me := model.NewMe(nick, code)
	me.SetLastIdle(now)
	me.SetLogonTime(now)
	me.SetOperatingSystem(osdetect.Describe())
	me.SetClient(ClientName(Version))
	me.SetHostName(netutil.HostName())
	return me
}
