package buildinfo

import (
	"fmt"
	"io"
	"runtime/debug"
)

const develVersion = "(devel)"

// Version is the main module version, or "(devel)" for local builds.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return develVersion
	}
	return info.Main.Version
}

func Dump(w io.Writer) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		_, err := fmt.Fprintln(w, develVersion)
		return err
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", info.Main.Path, Version()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "go %s\n", info.GoVersion); err != nil {
		return err
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision", "vcs.time", "vcs.modified":
			if _, err := fmt.Fprintf(w, "%s %s\n", setting.Key, setting.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
