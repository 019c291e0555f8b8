// Command smbcat is a small exerciser for the smb package: connect to a
// share and run one operation against it.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fenwick-labs/smb1/smb"
	"github.com/jfjallid/golog"
)

func main() {
	var (
		share    = flag.String("share", "", `UNC share, e.g. \\host\share`)
		username = flag.String("user", "", "Username (empty for anonymous/guest)")
		password = flag.String("pass", "", "Password")
		domain   = flag.String("domain", "", "Domain")
		op       = flag.String("op", "echo", "Operation: echo, list, read, write")
		path     = flag.String("path", "", "Remote path for list/read/write, relative to the share root")
		offset   = flag.Uint64("offset", 0, "Byte offset for read/write")
		length   = flag.Uint("length", 4096, "Byte count for read")
		data     = flag.String("data", "", "Data to write (write only)")
		debug    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	logger := golog.Get("smbcat")
	if *debug {
		logger.Infoln("debug logging enabled")
	}

	if *share == "" {
		fmt.Fprintln(os.Stderr, "smbcat: -share is required")
		os.Exit(2)
	}

	conn, err := smb.NewConnection(smb.Options{
		Share:    *share,
		Username: *username,
		Password: *password,
		Domain:   *domain,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "smbcat: creating connection:", err)
		os.Exit(1)
	}

	if err := conn.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, "smbcat: connect:", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := run(conn, *op, *path, *offset, uint32(*length), *data); err != nil {
		fmt.Fprintln(os.Stderr, "smbcat:", *op, "failed:", err)
		os.Exit(1)
	}
}

func run(conn *smb.Connection, op, path string, offset uint64, length uint32, data string) error {
	switch op {
	case "echo":
		return conn.TestConnection()

	case "list":
		dir := fileAt(path, true)
		entries, err := conn.ListDirectory(dir)
		if err != nil {
			return err
		}
		for _, fi := range entries {
			kind := "f"
			if fi.IsFolder {
				kind = "d"
			}
			fmt.Printf("%s %10d %s\n", kind, fi.FileSize, fi.Filename)
		}
		return nil

	case "read":
		fi := fileAt(path, false)
		buf, err := conn.ReadFile(&fi, offset, length)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(buf)
		return err

	case "write":
		fi := fileAt(path, false)
		n, err := conn.WriteFile(&fi, offset, []byte(data))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes\n", n)
		return nil

	default:
		return fmt.Errorf("unknown -op %q (want echo, list, read or write)", op)
	}
}

// fileAt builds the FileInfo for a "/"- or "\"-separated path relative to
// the share root, without ever touching the network: every path segment
// but the last becomes an intermediate directory component.
func fileAt(path string, isFolder bool) smb.FileInfo {
	fi := smb.CreateRootFileInfo()
	path = strings.ReplaceAll(path, "/", `\`)
	path = strings.Trim(path, `\`)
	if path == "" {
		return fi
	}
	segments := strings.Split(path, `\`)
	for i, seg := range segments {
		last := i == len(segments)-1
		fi = smb.CreateFileInfo(fi, seg, !last || isFolder)
	}
	return fi
}

