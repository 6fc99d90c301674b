package photo

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Smallest valid PNG header; DetectContentType only needs the signature.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSaveDataURL(t *testing.T) {
	s := testStore(t)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	ref, err := s.Save(payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(ref, ".png") {
		t.Errorf("ref = %q, want .png suffix", ref)
	}

	p, err := s.Path(ref)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(pngBytes) {
		t.Error("stored bytes differ from payload")
	}
}

func TestSaveRawBase64JPEG(t *testing.T) {
	s := testStore(t)
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)

	ref, err := s.Save(base64.StdEncoding.EncodeToString(jpeg))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Ext(ref) != ".jpg" {
		t.Errorf("ref = %q, want .jpg", ref)
	}
}

func TestSaveUniqueNames(t *testing.T) {
	s := testStore(t)
	payload := base64.StdEncoding.EncodeToString(pngBytes)

	a, err := s.Save(payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := s.Save(payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if a == b {
		t.Errorf("both saves returned %q", a)
	}
}

func TestSaveInvalid(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"not base64", "data:image/png;base64,!!!"},
		{"no comma", "data:image/png;base64"},
		{"text", base64.StdEncoding.EncodeToString([]byte("hello, world"))},
		{"too large", base64.StdEncoding.EncodeToString(append(pngBytes, make([]byte, MaxSize)...))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(tt.payload)
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("err = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s := testStore(t)

	for _, ref := range []string{"", "../etc/passwd", "a/b.png", ".hidden", "missing.png"} {
		if _, err := s.Path(ref); !errors.Is(err, ErrNotFound) {
			t.Errorf("Path(%q) err = %v, want ErrNotFound", ref, err)
		}
	}
}

func TestRemove(t *testing.T) {
	s := testStore(t)

	ref, err := s.Save(base64.StdEncoding.EncodeToString(pngBytes))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Remove(ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Path(ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("path after remove: err = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ref); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "photos"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}
