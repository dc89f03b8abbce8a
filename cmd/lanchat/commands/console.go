package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lanchat/lanchat/internal/chat"
	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/transfer"
	"github.com/lanchat/lanchat/internal/ui"
)

// console is the terminal user interface of the chat. Lines from the
// network goroutines are serialized by mu.
type console struct {
	mu        sync.Mutex
	out       io.Writer
	spinner   *ui.Spinner
	lastTopic model.Topic
	now       func() time.Time
}

var _ chat.UserInterface = (*console)(nil)

func newConsole(out io.Writer) *console {
	return &console{
		out:     out,
		spinner: ui.NewSpinner("Looking for a network..."),
		now:     time.Now,
	}
}

func (c *console) println(line string) {
	c.spinner.Stop()
	c.mu.Lock()
	fmt.Fprintln(c.out, line)
	c.mu.Unlock()
}

func (c *console) ShowSystemMessage(message string) {
	c.println(ui.RenderSystem(c.now(), message))
}

func (c *console) ShowUserMessage(user *model.User, message string, color int) {
	c.println(ui.RenderChatMessage(c.now(), user.Nick(), message, color))
}

func (c *console) ShowPrivateMessage(user *model.User, message string, color int) {
	c.println(ui.RenderPrivateMessage(c.now(), user.Nick(), message, color))
}

// ShowTopic prints the topic when it changed since last shown
func (c *console) ShowTopic(topic model.Topic) {
	c.mu.Lock()
	changed := topic.Text != c.lastTopic.Text
	c.lastTopic = topic
	c.mu.Unlock()

	if changed {
		c.println(ui.RenderTopic(topic.String()))
	}
}

func (c *console) FileOffered(fr *transfer.FileReceiver) {
	c.println(ui.RenderFileOffer(ui.FileOfferCard{
		ID:       fr.ID(),
		Nick:     fr.User().Nick(),
		FileName: fr.OriginalFileName(),
		Size:     fr.FileSize(),
		SaveAs:   fr.File(),
	}))
}

func (c *console) TransferStarted(ft transfer.FileTransfer) {
	ft.RegisterListener(&transferPrinter{c: c, ft: ft})
}

func (c *console) UserListChanged() {}

// ShowError implements network.ErrorHandler
func (c *console) ShowError(message string) {
	c.println(ui.RenderError(errors.New(message)))
}

// transferPrinter reports the start of the data transfer and the progress
// in steps of a quarter.
type transferPrinter struct {
	c       *console
	ft      transfer.FileTransfer
	mu      sync.Mutex
	quarter int
}

func (p *transferPrinter) StatusWaiting()    {}
func (p *transferPrinter) StatusConnecting() {}
func (p *transferPrinter) StatusCompleted()  {}
func (p *transferPrinter) StatusFailed()     {}

func (p *transferPrinter) StatusTransferring() {
	verb := "Receiving"
	if p.ft.Direction() == transfer.Send {
		verb = "Sending"
	}
	p.c.println(ui.RenderDim(fmt.Sprintf("%s %s (#%d) [%s]",
		verb, p.ft.FileName(), p.ft.ID(), ui.FormatSize(p.ft.FileSize()))))
}

func (p *transferPrinter) TransferUpdate() {
	q := p.ft.Percent() / 25
	p.mu.Lock()
	if q <= p.quarter || q >= 4 {
		p.mu.Unlock()
		return
	}
	p.quarter = q
	p.mu.Unlock()

	p.c.println(ui.RenderDim(fmt.Sprintf("%s: %d%% at %s/s",
		p.ft.FileName(), p.ft.Percent(), ui.FormatSize(p.ft.Speed()))))
}

func transferLines(list []transfer.FileTransfer) []ui.TransferLine {
	lines := make([]ui.TransferLine, 0, len(list))
	for _, ft := range list {
		lines = append(lines, ui.TransferLine{
			ID:       ft.ID(),
			Sending:  ft.Direction() == transfer.Send,
			Nick:     ft.User().Nick(),
			FileName: ft.FileName(),
			Percent:  ft.Percent(),
			Speed:    ft.Speed(),
			State:    ft.State().String(),
		})
	}
	return lines
}

func userLines(users []*model.User) []ui.UserLine {
	lines := make([]ui.UserLine, 0, len(users))
	for _, u := range users {
		lines = append(lines, ui.UserLine{
			Nick:    u.Nick(),
			Away:    u.IsAway(),
			Writing: u.IsWriting(),
			Me:      u.IsMe(),
		})
	}
	return lines
}

// command is one line typed by the user
type command struct {
	name string
	args string
}

// parseCommand splits "/name args". Lines without a leading slash are
// chat messages with an empty name.
func parseCommand(line string) command {
	if !strings.HasPrefix(line, "/") {
		return command{args: line}
	}
	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}
}

// splitFirst returns the first word of s and the rest
func splitFirst(s string) (string, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	return first, strings.TrimSpace(rest)
}
