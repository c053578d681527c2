package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	return path
}

func TestStreamArchivesFiles(t *testing.T) {
	dir := t.TempDir()
	files := []File{
		{Name: "scene_01.png", Path: writeTemp(t, dir, "scene_01.png", "first")},
		{Name: "scene_02.png", Path: writeTemp(t, dir, "scene_02.png", "second")},
	}

	var buf bytes.Buffer
	if err := Stream(&buf, files); err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive entries = %d, want 2", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("Open entry returned error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "first" {
		t.Fatalf("entry content = %q, want %q", data, "first")
	}
}

func TestStreamSkipsMissingSources(t *testing.T) {
	dir := t.TempDir()
	files := []File{
		{Name: "gone.png", Path: filepath.Join(dir, "gone.png")},
		{Name: "here.png", Path: writeTemp(t, dir, "here.png", "content")},
	}

	var buf bytes.Buffer
	if err := Stream(&buf, files); err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader returned error: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "here.png" {
		t.Fatalf("archive = %v, want only here.png", zr.File)
	}
}

func TestStreamRejectsEmptyList(t *testing.T) {
	var buf bytes.Buffer
	if err := Stream(&buf, nil); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("err = %v, want ErrNoFiles", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("bytes written = %d, want 0", buf.Len())
	}
}
