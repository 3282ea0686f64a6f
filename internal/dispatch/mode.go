package dispatch

// SyncMode selects exactly one synchronization strategy per dispatch call.
type SyncMode string

const (
	// ModeFetchRemote installs from the remote manifest. Default mode.
	ModeFetchRemote SyncMode = "fetch-remote"

	// ModeDelegateHost hands the operation to the host tool's validator.
	ModeDelegateHost SyncMode = "delegate-host"

	// ModeCopyInstalled copies non-destructively from a marketplace
	// registration.
	ModeCopyInstalled SyncMode = "copy-installed"

	// ModeMirrorDev true-syncs every component category from a
	// development source tree. The most destructive mode.
	ModeMirrorDev SyncMode = "mirror-dev"

	// ModeAll runs the non-uninstall modes in priority order with one
	// shared backup.
	ModeAll SyncMode = "all"

	// ModeUninstall delegates to the uninstall orchestrator.
	ModeUninstall SyncMode = "uninstall"
)

// IsValid reports whether the mode is recognized.
func (m SyncMode) IsValid() bool {
	switch m {
	case ModeFetchRemote, ModeDelegateHost, ModeCopyInstalled, ModeMirrorDev, ModeAll, ModeUninstall:
		return true
	default:
		return false
	}
}

// String returns the string form of the mode.
func (m SyncMode) String() string {
	return string(m)
}

// allModeOrder is the fixed sequence run by ModeAll, least destructive
// first. Uninstall is never part of it.
var allModeOrder = []SyncMode{
	ModeDelegateHost,
	ModeCopyInstalled,
	ModeFetchRemote,
	ModeMirrorDev,
}
