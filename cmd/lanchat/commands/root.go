package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanchat/lanchat/internal/config"
	"github.com/lanchat/lanchat/internal/identity"
	"github.com/lanchat/lanchat/internal/netutil"
	"github.com/lanchat/lanchat/internal/osdetect"
	"github.com/lanchat/lanchat/internal/ui"
)

var (
	// Version is set at build time
	Version = identity.Version
	// Commit is set at build time
	Commit = "none"
)

var rootCmd = &cobra.Command{
	Use:   "lanchat",
	Short: "lanchat - serverless chat for the local network",
	Long: `lanchat is a chat for everyone on the same local network. There is no
server: clients find each other with multicast, send private messages
directly over UDP and transfer files over TCP.

Use "lanchat [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.lanchat/config.json)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(interfacesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := osdetect.Detect()

		fmt.Printf("lanchat\n")
		fmt.Printf("  Version:  %s\n", Version)
		fmt.Printf("  Commit:   %s\n", Commit)
		fmt.Printf("  Client:   %s\n", identity.ClientName(Version))
		fmt.Printf("  Platform: %s\n", info.Long())
	},
}

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List the network interfaces lanchat can use",
	Long: `List the network interfaces that are up, support multicast and have an
IPv4 address. The name of one of them can be set as "network_interface"
in the config file, or with --interface when starting the chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag(cmd)
		utils := netutil.New(nil)
		usable := utils.UsableInterfaces()

		if len(usable) == 0 {
			fmt.Println("No usable network interfaces found.")
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Usable network interfaces (%d):\n\n", len(usable))
		for i := range usable {
			iface := &usable[i]
			name := iface.Name
			if name == cfg.NetworkInterface {
				name += ui.Color(ui.Green, " [selected]")
			}
			fmt.Printf("  %s\n", ui.Color(ui.Bold, name))
			fmt.Printf("    %s\n\n", ui.RenderDim(iface.IPv4Addresses()))
		}
		return nil
	},
}

func applyColorFlag(cmd *cobra.Command) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	ui.SetNoColor(noColor)
}

// configPath returns the --config flag, or the default config file
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	paths, err := config.GetPaths()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// loadConfig reads the config file and applies .env and environment
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadEnv()

	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if cfg.DownloadDir == "" {
		paths, err := config.GetPaths()
		if err != nil {
			return nil, err
		}
		cfg.DownloadDir = paths.DownloadDir
	}
	return cfg, nil
}
