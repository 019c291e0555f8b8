package smb

import "testing"

func TestCreateFileInfoChildOfRoot(t *testing.T) {
	root := CreateRootFileInfo()
	child := CreateFileInfo(root, "docs", true)

	if child.Path != "" {
		t.Errorf("Path = %q, want empty", child.Path)
	}
	if child.Filename != "docs" {
		t.Errorf("Filename = %q, want %q", child.Filename, "docs")
	}
	if fullPath(child) != `\docs` {
		t.Errorf("fullPath = %q, want %q", fullPath(child), `\docs`)
	}
}

func TestCreateFileInfoGrandchild(t *testing.T) {
	root := CreateRootFileInfo()
	dir := CreateFileInfo(root, "docs", true)
	file := CreateFileInfo(dir, "readme.txt", false)

	if file.Path != "docs" {
		t.Errorf("Path = %q, want %q", file.Path, "docs")
	}
	if fullPath(file) != `\docs\readme.txt` {
		t.Errorf("fullPath = %q, want %q", fullPath(file), `\docs\readme.txt`)
	}
}

func TestSearchPatternRoot(t *testing.T) {
	root := CreateRootFileInfo()
	if got, want := searchPattern(root), `\*`; got != want {
		t.Errorf("searchPattern(root) = %q, want %q", got, want)
	}
}

func TestSearchPatternSubdirectory(t *testing.T) {
	root := CreateRootFileInfo()
	dir := CreateFileInfo(root, "docs", true)
	if got, want := searchPattern(dir), `docs\*`; got != want {
		t.Errorf("searchPattern(dir) = %q, want %q", got, want)
	}
}

func TestFullPathDeepNesting(t *testing.T) {
	root := CreateRootFileInfo()
	a := CreateFileInfo(root, "a", true)
	b := CreateFileInfo(a, "b", true)
	c := CreateFileInfo(b, "c.txt", false)

	if got, want := fullPath(c), `\a\b\c.txt`; got != want {
		t.Errorf("fullPath = %q, want %q", got, want)
	}
}
