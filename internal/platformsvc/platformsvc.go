// Package platformsvc declares the "install as a user service" contract: a
// small, OS-agnostic description of how the daemon should be registered with
// whatever service supervisor the host provides (launchd, systemd user
// units, Windows Task Scheduler). It generates nothing itself — an external
// installer consumes the Descriptor and writes the platform-specific unit.
package platformsvc

import (
	"fmt"
	"strings"
)

// Descriptor is everything a platform-specific installer needs to register
// the daemon as a user-level service.
type Descriptor struct {
	// Name is the service's identifier, used to build the unit/plist/task
	// name (e.g. "com.summarize.daemon" on launchd, "summarize" on systemd).
	Name string
	// DisplayName is a human-readable label shown by the OS's service
	// manager UI, if any.
	DisplayName string
	// Description is a one-line summary shown alongside DisplayName.
	Description string
	// ExecPath is the absolute path to the daemon binary.
	ExecPath string
	// Args are passed to ExecPath verbatim, in order.
	Args []string
	// WorkingDir is the directory the service runs from; empty means the
	// installer should pick a platform default (the user's home directory).
	WorkingDir string
	// LogPath is where stdout/stderr should be redirected; empty means the
	// installer should pick a platform default log location.
	LogPath string
	// Environment is additional environment variables the service process
	// should start with, beyond what the supervisor provides by default.
	Environment map[string]string
	// RunAtLoad reports whether the service should start automatically on
	// login/boot, as opposed to only when started manually.
	RunAtLoad bool
	// KeepAlive reports whether the supervisor should restart the service
	// if it exits unexpectedly.
	KeepAlive bool
}

// Validate checks that Descriptor has the fields every installer needs,
// regardless of which platform it targets.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("platformsvc: service name is required")
	}
	if strings.ContainsAny(d.Name, " /\\") {
		return fmt.Errorf("platformsvc: service name %q must not contain spaces or path separators", d.Name)
	}
	if strings.TrimSpace(d.ExecPath) == "" {
		return fmt.Errorf("platformsvc: exec path is required")
	}
	if !strings.HasPrefix(d.ExecPath, "/") && !strings.Contains(d.ExecPath, ":\\") {
		return fmt.Errorf("platformsvc: exec path %q must be absolute", d.ExecPath)
	}
	return nil
}

// DefaultName is the service identifier New assigns to every Descriptor.
const DefaultName = "summarize-daemon"

// New returns a Descriptor for the daemon binary at execPath listening on
// the given args, filling in the package defaults for everything else.
func New(execPath string, args []string) Descriptor {
	return Descriptor{
		Name:        DefaultName,
		DisplayName: "Summarize Daemon",
		Description: "Background service for the summarize content pipeline.",
		ExecPath:    execPath,
		Args:        args,
		RunAtLoad:   true,
		KeepAlive:   true,
	}
}
