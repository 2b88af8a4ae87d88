package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDisk_PutOpenDelete(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	ctx := context.Background()
	key := NewKey("abc123", ".txt")

	if err := d.Put(ctx, key, strings.NewReader("hello"), &PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := d.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Errorf("content: got %q, want %q", data, "hello")
	}

	if err := d.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after delete: got %v, want ErrNotFound", err)
	}
	if err := d.Delete(ctx, key); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestDisk_RejectsEscapingKeys(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	for _, key := range []string{"", "/", "../etc/passwd", "attachments/../../x"} {
		if _, err := d.FullPath(key); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("FullPath(%q): got %v, want ErrInvalidPath", key, err)
		}
	}
}

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		allowed bool
	}{
		{"photo.JPG", ".jpg", true},
		{"spec.docx", ".docx", true},
		{"archive.zip", ".zip", true},
		{"script.sh", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckExtension(tt.name)
			if tt.allowed {
				if err != nil || got != tt.want {
					t.Errorf("CheckExtension(%q) = %q, %v", tt.name, got, err)
				}
				return
			}
			if !errors.Is(err, ErrExtensionNotAllowed) {
				t.Errorf("CheckExtension(%q): expected ErrExtensionNotAllowed, got %v", tt.name, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (1).pdf", "my_report__1_.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\notes.txt`, "notes.txt"},
		{"", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewKey_Unique(t *testing.T) {
	a, b := NewKey("p", ".png"), NewKey("p", ".png")
	if a == b {
		t.Error("expected unique keys")
	}
	if !strings.HasPrefix(a, "attachments/p/") || !strings.HasSuffix(a, ".png") {
		t.Errorf("unexpected key %q", a)
	}
}
