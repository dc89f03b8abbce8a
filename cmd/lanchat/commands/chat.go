package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lanchat/lanchat/internal/chat"
	"github.com/lanchat/lanchat/internal/config"
	"github.com/lanchat/lanchat/internal/identity"
	"github.com/lanchat/lanchat/internal/model"
	"github.com/lanchat/lanchat/internal/network"
	"github.com/lanchat/lanchat/internal/ui"
)

var log = logrus.WithField("component", "cli")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join the chat on the local network",
	Long: `Join the chat with everyone else running lanchat on the local network.

Type a line to send it to everyone, or use one of the commands:
  /msg <nick> <text>    send a private message
  /away <message>       go away
  /back                 come back
  /nick <nick>          change nick
  /topic [text]         change or clear the topic
  /users                list users
  /send <nick> <file>   send a file
  /accept <id> [path]   accept a file offer
  /reject <id>          reject a file offer
  /cancel <id>          cancel a file transfer
  /transfers            list file transfers
  /quit                 log off and exit

Examples:
  lanchat chat
  lanchat chat --nick Alice --interface eth0
`,
	RunE: runChat,
}

var (
	chatNick      string
	chatInterface string
)

func init() {
	chatCmd.Flags().StringVar(&chatNick, "nick", "", "Nick name (default: from config or login name)")
	chatCmd.Flags().StringVar(&chatInterface, "interface", "", "Network interface to use")
	rootCmd.AddCommand(chatCmd)
}

// session is a running chat with its configuration
type session struct {
	ctrl       *chat.Controller
	console    *console
	settings   *config.Settings
	cfg        *config.Config
	configPath string
}

func runChat(cmd *cobra.Command, args []string) error {
	applyColorFlag(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if chatNick != "" {
		cfg.Nick = chatNick
	}
	if chatInterface != "" {
		cfg.NetworkInterface = chatInterface
	}

	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	logFile, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	me := identity.NewMe(cfg.Nick)
	settings := config.NewSettings(me, cfg)
	out := newConsole(os.Stdout)

	svc := network.NewService(network.Options{
		Me:          me,
		PrivateChat: !settings.IsNoPrivateChat(),
		Interface:   settings.NetworkInterface,
		Errors:      out,
	})
	s := &session{
		ctrl:       chat.NewController(settings, out, svc),
		console:    out,
		settings:   settings,
		cfg:        cfg,
		configPath: path,
	}

	settings.OnChange(func(setting config.Setting) {
		if setting == config.SettingNetworkInterface {
			log.WithField("interface", settings.NetworkInterface()).Info("network interface changed")
			s.ctrl.CheckNetwork()
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := config.Watch(ctx, path, settings.Apply); err != nil {
			log.WithError(err).Warn("watch config file")
		}
	}()

	fmt.Print(ui.RenderHeader(Version, me.Nick(), settings.NetworkInterface()))
	fmt.Print(ui.RenderHelpLines())

	out.spinner.Start()
	s.ctrl.LogOn()
	defer func() {
		s.ctrl.LogOff(false)
		s.ctrl.Shutdown()
		out.spinner.Stop()
		fmt.Println(ui.RenderDim("Goodbye!"))
	}()

	return s.readLoop(ctx)
}

// setupLogging sends the log to the log file so it does not mix with the
// chat output.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (*os.File, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, err
	}
	f, err := config.OpenLogFile(paths.LogFile())
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if err := config.ConfigureLogging(level, f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (s *session) readLoop(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			quit, err := s.handle(line)
			if err != nil {
				s.console.println(ui.RenderError(err))
			}
			if quit {
				return nil
			}
		}
	}
}

var errUnknownUser = errors.New("no such user")

func (s *session) user(nick string) (*model.User, error) {
	user := s.ctrl.Users().GetByNick(nick)
	if user == nil {
		return nil, fmt.Errorf("%w: %s", errUnknownUser, nick)
	}
	return user, nil
}

func transferID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid transfer id %q", arg)
	}
	return id, nil
}

// handle carries out one input line and returns true when the user quits
func (s *session) handle(line string) (bool, error) {
	cmd := parseCommand(line)
	me := s.ctrl.Me()

	switch cmd.name {
	case "":
		if cmd.args == "" {
			return false, nil
		}
		if err := s.ctrl.SendChatMessage(cmd.args); err != nil {
			return false, err
		}
		s.console.ShowUserMessage(me, cmd.args, s.settings.OwnColor())

	case "msg":
		nick, text := splitFirst(cmd.args)
		user, err := s.user(nick)
		if err != nil {
			return false, err
		}
		if err := s.ctrl.SendPrivateMessage(text, user); err != nil {
			return false, err
		}
		s.console.println(ui.RenderPrivateMessage(s.console.now(), me.Nick()+" -> "+user.Nick(), text, s.settings.OwnColor()))

	case "away":
		msg := cmd.args
		if msg == "" {
			msg = s.settings.AwayMessage()
		}
		return false, s.ctrl.GoAway(msg)

	case "back":
		return false, s.ctrl.ComeBack()

	case "nick":
		if err := s.ctrl.ChangeMyNick(cmd.args); err != nil {
			return false, err
		}
		s.cfg.Nick = me.Nick()
		if err := s.cfg.SaveFile(s.configPath); err != nil {
			log.WithError(err).Warn("save nick")
		}

	case "topic":
		return false, s.ctrl.ChangeTopic(cmd.args)

	case "users":
		s.console.println(ui.RenderUserList(userLines(s.ctrl.Users().List())))

	case "send":
		nick, path := splitFirst(cmd.args)
		user, err := s.user(nick)
		if err != nil {
			return false, err
		}
		_, err = s.ctrl.SendFile(user, path)
		return false, err

	case "accept":
		arg, saveAs := splitFirst(cmd.args)
		id, err := transferID(arg)
		if err != nil {
			return false, err
		}
		return false, s.ctrl.AcceptFile(id, saveAs)

	case "reject":
		id, err := transferID(cmd.args)
		if err != nil {
			return false, err
		}
		return false, s.ctrl.RejectFile(id)

	case "cancel":
		id, err := transferID(cmd.args)
		if err != nil {
			return false, err
		}
		return false, s.ctrl.CancelTransfer(id)

	case "transfers":
		s.console.println(ui.RenderTransfers(transferLines(s.ctrl.Transfers().All())))

	case "help":
		s.console.println(ui.RenderHelpLines())

	case "quit", "exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command /%s, type /help for the list", cmd.name)
	}
	return false, nil
}
