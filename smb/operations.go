package smb

// maxListEntries bounds a single ListDirectory call; CLOSE_AFTER_REQUEST
// means there is no follow-up FIND_NEXT2 to pick up the rest, so a caller
// asking for more than the server returns in one TRANS2 response simply
// gets fewer entries back, not an error.
const maxListEntries = 0xFFFF

// ListDirectory lists the immediate children of dir, which must itself be
// a directory (spec §4.5 TRANS2/FIND_FIRST2; spec §3). "." and ".." are
// never returned.
func (c *Connection) ListDirectory(dir FileInfo) ([]FileInfo, error) {
	if c.status < StatusConnectedToShare {
		err := newError(ErrorGeneralSystemError, "list_directory: not connected to a share")
		c.setError(err)
		return nil, err
	}
	if !dir.IsFolder {
		err := newError(ErrorParameterInvalid, "list_directory: %q is not a directory", fullPath(dir))
		c.setError(err)
		return nil, err
	}

	entries, err := c.findFirst2(searchPattern(dir), maxListEntries)
	if err != nil {
		c.setError(asSMBError(err))
		return nil, err
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		fi := CreateFileInfo(dir, e.FileName, e.IsDirectory)
		fi.FileSize = e.EndOfFile
		out = append(out, fi)
	}
	return out, nil
}

// ReadFile opens fi for reading, reads up to length bytes starting at
// offset in a single READ_ANDX, and closes the handle (spec §6: "opens for
// read, reads once, closes"). A short final read is not an error; the returned
// slice is just shorter than length.
func (c *Connection) ReadFile(fi *FileInfo, offset uint64, length uint32) ([]byte, error) {
	if c.status < StatusConnectedToShare {
		err := newError(ErrorGeneralSystemError, "read_file: not connected to a share")
		c.setError(err)
		return nil, err
	}

	if err := c.ntCreate(fi, OpenModeRead); err != nil {
		c.setError(asSMBError(err))
		return nil, err
	}
	defer c.closeFile(fi.Fid)

	out := make([]byte, length)
	n, err := c.read(fi.Fid, offset, out)
	if err != nil {
		c.setError(asSMBError(err))
		return nil, err
	}
	return out[:n], nil
}

// WriteFile opens fi for writing (truncating any existing contents),
// writes data at offset in a single WRITE_ANDX, and closes the handle.
func (c *Connection) WriteFile(fi *FileInfo, offset uint64, data []byte) (int, error) {
	if c.status < StatusConnectedToShare {
		err := newError(ErrorGeneralSystemError, "write_file: not connected to a share")
		c.setError(err)
		return 0, err
	}

	if err := c.ntCreate(fi, OpenModeWrite); err != nil {
		c.setError(asSMBError(err))
		return 0, err
	}
	defer c.closeFile(fi.Fid)

	n, err := c.write(fi.Fid, offset, data)
	if err != nil {
		c.setError(asSMBError(err))
		return 0, err
	}
	return n, nil
}
