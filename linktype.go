package capstonesys

// LinkType indicates how the capstone library is linked into the consumer.
type LinkType int

const (
	// Dynamic links against a shared library (.so, .dylib, .dll).
	Dynamic LinkType = iota + 1
	// Static links against an archive (.a, .lib).
	Static
)

// String returns the link kind as written in link-lib directives.
func (l LinkType) String() string {
	switch l {
	case Dynamic:
		return "dylib"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

// LibExtension returns the file extension of libraries for the target system.
func (l LinkType) LibExtension(target Target) string {
	switch {
	case target.IsMSVC():
		if l == Dynamic {
			return "dll"
		}
		return "lib"
	case target.IsApple():
		if l == Dynamic {
			return "dylib"
		}
		return "a"
	default:
		if l == Dynamic {
			return "so"
		}
		return "a"
	}
}

// LibraryFileName returns the on-disk name of the library artifact.
//
// MSVC libraries carry no "lib" prefix; every other toolchain does.
func (l LinkType) LibraryFileName(target Target, name string) string {
	if target.IsMSVC() {
		return name + "." + l.LibExtension(target)
	}
	return "lib" + name + "." + l.LibExtension(target)
}
