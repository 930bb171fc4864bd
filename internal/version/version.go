package version

import "runtime/debug"

// Set through -ldflags at release time.
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
	Dirty   bool   `json:"dirty,omitempty"`
}

// Resolve returns the version string, appending the short VCS revision the
// binary was built from when it was not stamped through ldflags.
func Resolve() string {
	return Current().String()
}

func Current() Info {
	build, _ := debug.ReadBuildInfo()
	return resolve(Version, Commit, Date, build)
}

func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}

	out := i.Version + "-" + shortRevision(i.Commit)
	if i.Dirty {
		out += "-dirty"
	}
	return out
}

func resolve(base, commit, date string, build *debug.BuildInfo) Info {
	if base == "" {
		base = "0.0.0"
	}

	info := Info{Version: base, Commit: commit, Date: date}
	if commit != "" || build == nil {
		return info
	}

	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Commit = setting.Value
		case "vcs.time":
			info.Date = setting.Value
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
