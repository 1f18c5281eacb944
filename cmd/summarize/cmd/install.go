package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/summarize/internal/platformsvc"
)

var installPort int

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Print the service descriptor for registering the daemon with the OS",
	Long: `install builds and validates a platformsvc.Descriptor for running
"summarize serve" as a user-level background service, and prints it as
JSON. Writing the platform-specific unit (launchd plist, systemd user
unit, ...) from that descriptor is left to the host's own service
tooling; this command only produces the description.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().IntVar(&installPort, "port", 0, "port the installed service should listen on (0: config default)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(_ *cobra.Command, _ []string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	args := []string{"serve"}
	if installPort != 0 {
		args = append(args, "--port", fmt.Sprintf("%d", installPort))
	}

	descriptor := platformsvc.New(execPath, args)
	descriptor.RunAtLoad = true
	descriptor.KeepAlive = true

	if err := descriptor.Validate(); err != nil {
		return fmt.Errorf("invalid service descriptor: %w", err)
	}

	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling service descriptor: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
