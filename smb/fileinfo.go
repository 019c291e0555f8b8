package smb

import "strings"

// OpenMode records which NT_CREATE_ANDX access/disposition pair was used to
// obtain FileInfo.fid, so a caller inspecting a FileInfo after an operation
// can tell what happened.
type OpenMode int

const (
	// OpenModeNone means the file has not been opened (fid == 0).
	OpenModeNone OpenMode = iota
	OpenModeRead
	OpenModeWrite
)

// FileInfo is the handle-like value record describing a remote path (spec
// §3). It is a plain value: construct one with the Connection that will use
// it, but never store a pointer back to the Connection inside it (spec §9
// DESIGN NOTES explicitly rejects that, to keep FileInfo a pure value and
// avoid a lifetime hazard).
type FileInfo struct {
	// Path is the directory portion, backslash-separated, not including
	// Filename. The share root's Path and Filename are both empty.
	Path     string
	Filename string
	IsFolder bool
	FileSize uint64

	// Fid and Mode are populated by a successful NT_CREATE_ANDX. Closing
	// the handle does not reset them.
	Fid  uint16
	Mode OpenMode
}

// CreateRootFileInfo returns the FileInfo representing the share root.
func CreateRootFileInfo() FileInfo {
	return FileInfo{IsFolder: true}
}

// CreateFileInfo builds the FileInfo for a child of parent named name. The
// child's Path is the parent's full path (parent.Path, with a trailing
// backslash, followed by parent.Filename) — not, as the original C
// implementation's buggy version did, a copy of the parent's own filename
// into the child. See spec §9 DESIGN NOTES: the original's
// `tango_create_file_info` has an apparent off-by-one and name-swap bug;
// this is the corrected construction.
func CreateFileInfo(parent FileInfo, name string, isFolder bool) FileInfo {
	return FileInfo{
		Path:     childPath(parent),
		Filename: name,
		IsFolder: isFolder,
	}
}

func childPath(parent FileInfo) string {
	if parent.Path == "" && parent.Filename == "" {
		// Parent is the share root: its children live directly under "\".
		return ""
	}
	base := parent.Path
	if base != "" && !strings.HasSuffix(base, "\\") {
		base += "\\"
	}
	return base + parent.Filename
}

// searchPattern builds the FIND_FIRST2 wildcard pattern for listing dir,
// matching tango_list_directory's `dir.path + dir.filename + "\*"`.
func searchPattern(dir FileInfo) string {
	full := dir.Path
	if full != "" && !strings.HasSuffix(full, "\\") {
		full += "\\"
	}
	full += dir.Filename
	return full + "\\*"
}

// fullPath is the NT_CREATE_ANDX-relative pathname for fi: a leading
// backslash followed by Path (if any) and Filename.
func fullPath(fi FileInfo) string {
	var b strings.Builder
	b.WriteByte('\\')
	if fi.Path != "" {
		b.WriteString(fi.Path)
		if !strings.HasSuffix(fi.Path, "\\") {
			b.WriteByte('\\')
		}
	}
	b.WriteString(fi.Filename)
	return b.String()
}
