package store

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/obscuracam/obscurad/internal/apperr"
)

func tempMedia(t *testing.T) *Media {
	t.Helper()
	m, err := NewMedia(t.TempDir())
	if err != nil {
		t.Fatalf("NewMedia: %v", err)
	}
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := tempMedia(t)
	content := []byte("payload bytes")
	if err := m.Write("/a/b.txt", bytes.NewReader(content)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := m.Read("/a/b.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}

	if err := m.Delete("/a/b.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Read("/a/b.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read after delete = %v, want ErrNotFound", err)
	}
}

func TestOpenRootServesIndex(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/index.htm", strings.NewReader("<html>home</html>")); err != nil {
		t.Fatal(err)
	}

	obj, err := m.Open("/", false)
	if err != nil {
		t.Fatalf("Open /: %v", err)
	}
	defer obj.Close()
	if obj.ContentType != "text/html" {
		t.Errorf("content type = %q, want text/html", obj.ContentType)
	}
	data, _ := io.ReadAll(obj)
	if string(data) != "<html>home</html>" {
		t.Errorf("body = %q", data)
	}
}

func TestOpenDirectoryServesIndex(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/edit/index.htm", strings.NewReader("editor")); err != nil {
		t.Fatal(err)
	}

	obj, err := m.Open("/edit", false)
	if err != nil {
		t.Fatalf("Open /edit: %v", err)
	}
	defer obj.Close()
	if obj.ContentType != "text/html" {
		t.Errorf("content type = %q", obj.ContentType)
	}
}

func TestOpenSrcSuffixServesPlainText(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/page.htm", strings.NewReader("<p>hi</p>")); err != nil {
		t.Fatal(err)
	}

	obj, err := m.Open("/page.htm.src", false)
	if err != nil {
		t.Fatalf("Open .src: %v", err)
	}
	defer obj.Close()
	if obj.ContentType != "text/plain" {
		t.Errorf("content type = %q, want text/plain", obj.ContentType)
	}
	data, _ := io.ReadAll(obj)
	if string(data) != "<p>hi</p>" {
		t.Errorf("body = %q, want the underlying page bytes", data)
	}
}

func TestOpenContentTypes(t *testing.T) {
	m := tempMedia(t)
	cases := []struct {
		path  string
		ctype string
	}{
		{"/a.htm", "text/html"},
		{"/a.css", "text/css"},
		{"/a.js", "application/javascript"},
		{"/a.jpg", "image/jpeg"},
		{"/a.png", "image/png"},
		{"/A.JPG", "image/jpeg"},
		{"/a.weird", "text/plain"},
	}
	for _, tc := range cases {
		if err := m.Write(tc.path, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
		obj, err := m.Open(tc.path, false)
		if err != nil {
			t.Fatalf("Open %s: %v", tc.path, err)
		}
		if obj.ContentType != tc.ctype {
			t.Errorf("%s content type = %q, want %q", tc.path, obj.ContentType, tc.ctype)
		}
		obj.Close()
	}
}

func TestDownloadForcesOctetStream(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/a.jpg", strings.NewReader("jpeg")); err != nil {
		t.Fatal(err)
	}
	obj, err := m.Open("/a.jpg", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer obj.Close()
	if obj.ContentType != "application/octet-stream" {
		t.Errorf("content type = %q, want application/octet-stream", obj.ContentType)
	}
}

func TestOpenMissing(t *testing.T) {
	m := tempMedia(t)
	if _, err := m.Open("/nope.htm", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Open missing = %v, want ErrNotFound", err)
	}
}

func TestListRootAndErrors(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/one.txt", strings.NewReader("1")); err != nil {
		t.Fatal(err)
	}
	if err := m.Create("/sub"); err != nil {
		t.Fatal(err)
	}

	entries, err := m.List("/")
	if err != nil {
		t.Fatalf("List /: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}

	if _, err := m.List("/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("List missing = %v, want ErrNotFound", err)
	}
	if _, err := m.List("/one.txt"); !errors.Is(err, apperr.ErrNotADirectory) {
		t.Errorf("List file = %v, want ErrNotADirectory", err)
	}
}

func TestListIsNeverCached(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/x.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	first, _ := m.List("/")
	if err := m.Write("/y.txt", strings.NewReader("y")); err != nil {
		t.Fatal(err)
	}
	second, _ := m.List("/")
	if len(second) != len(first)+1 {
		t.Errorf("second list = %d entries, want %d", len(second), len(first)+1)
	}
}

func TestCreateFileAndDir(t *testing.T) {
	m := tempMedia(t)

	if err := m.Create("/notes.txt"); err != nil {
		t.Fatalf("Create file: %v", err)
	}
	data, err := m.Read("/notes.txt")
	if err != nil {
		t.Fatalf("Read created file: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("created file has %d bytes, want empty", len(data))
	}

	if err := m.Create("/photos"); err != nil {
		t.Fatalf("Create dir: %v", err)
	}
	if _, err := m.List("/photos"); err != nil {
		t.Errorf("List created dir: %v", err)
	}
}

func TestCreateRejectsRootAndExisting(t *testing.T) {
	m := tempMedia(t)
	if err := m.Create("/"); !errors.Is(err, apperr.ErrBadPath) {
		t.Errorf("Create root = %v, want ErrBadPath", err)
	}
	if err := m.Create("/dup.txt"); err != nil {
		t.Fatal(err)
	}
	if err := m.Create("/dup.txt"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("Create existing = %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteRecursive(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/top/a.txt", strings.NewReader("a")); err != nil {
		t.Fatal(err)
	}
	if err := m.Write("/top/nested/b.txt", strings.NewReader("b")); err != nil {
		t.Fatal(err)
	}
	if err := m.Write("/top/nested/deeper/c.txt", strings.NewReader("c")); err != nil {
		t.Fatal(err)
	}

	if err := m.Delete("/top"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, err := m.List("/")
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	for _, e := range entries {
		if e.Name == "top" {
			t.Error("deleted directory still listed in parent")
		}
	}
	if m.Exists("/top/nested/b.txt") {
		t.Error("descendant survived recursive delete")
	}
}

func TestDeleteRejectsRootAndMissing(t *testing.T) {
	m := tempMedia(t)
	if err := m.Delete("/"); !errors.Is(err, apperr.ErrBadPath) {
		t.Errorf("Delete root = %v, want ErrBadPath", err)
	}
	if err := m.Delete("/ghost"); !errors.Is(err, apperr.ErrBadPath) {
		t.Errorf("Delete missing = %v, want ErrBadPath", err)
	}
}

func TestWriteReplacesExistingNode(t *testing.T) {
	m := tempMedia(t)
	if err := m.Write("/swap", strings.NewReader("file v1")); err != nil {
		t.Fatal(err)
	}
	if err := m.Write("/swap", strings.NewReader("file v2")); err != nil {
		t.Fatalf("Write replace: %v", err)
	}
	got, _ := m.Read("/swap")
	if string(got) != "file v2" {
		t.Errorf("content = %q", got)
	}
}

func TestCreateNewIsExclusive(t *testing.T) {
	m := tempMedia(t)
	w, err := m.CreateNew("/photos/Image1.jpg")
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if _, err := w.Write([]byte("jpeg")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	if _, err := m.CreateNew("/photos/Image1.jpg"); err == nil {
		t.Error("second CreateNew for same path should fail")
	}
}

func TestTraversalBlocked(t *testing.T) {
	m := tempMedia(t)
	for _, p := range []string{"/../outside.txt", "/a/../../etc/passwd"} {
		if _, err := m.Read(p); err == nil {
			t.Errorf("Read %q should be rejected", p)
		}
		if err := m.Write(p, strings.NewReader("x")); err == nil {
			t.Errorf("Write %q should be rejected", p)
		}
	}
}
