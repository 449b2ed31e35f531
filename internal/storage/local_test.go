package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l := NewLocal(LocalConfig{
		BaseDir: t.TempDir(),
		BaseURL: "http://127.0.0.1:8000",
	}, zap.NewNop())
	l.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return l
}

func TestLocalStoreWritesFileAndReturnsURL(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)

	url, err := l.Store(context.Background(), []byte("payload"), "Site Report.pdf", "projects", "rec-1", "documents")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	want := "http://127.0.0.1:8000/uploads/projects/rec-1/documents/site-report-1700000000000.pdf"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}

	data, err := os.ReadFile(filepath.Join(l.baseDir, "uploads", "projects", "rec-1", "documents", "site-report-1700000000000.pdf"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("stored content = %q", data)
	}
}

func TestLocalStoreTransliteratesArabicNames(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)

	url, err := l.Store(context.Background(), []byte("x"), "تقرير الموقع.pdf", "projects", "rec-2", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	name := url[strings.LastIndex(url, "/")+1:]
	if strings.ContainsAny(name, " ر") {
		t.Fatalf("filename not transliterated: %q", name)
	}
	if !strings.HasSuffix(name, "-1700000000000.pdf") {
		t.Fatalf("filename missing stamp or extension: %q", name)
	}
}

func TestLocalDeleteRemovesStoredFile(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)

	url, err := l.Store(context.Background(), []byte("x"), "a.pdf", "contracts", "rec-3", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !l.Delete(url) {
		t.Fatal("Delete returned false for stored file")
	}
	if l.Delete(url) {
		t.Fatal("Delete returned true for already removed file")
	}
}

func TestLocalDeleteRefusesOutsideUploadRoot(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)

	outside := filepath.Join(l.baseDir, "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []string{
		"http://evil.example/uploads/projects/rec/a.pdf",
		"http://127.0.0.1:8000/secret.txt",
		"http://127.0.0.1:8000/uploads/../secret.txt",
	}
	for _, u := range cases {
		if l.Delete(u) {
			t.Fatalf("Delete(%q) = true, want refusal", u)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside upload root was touched: %v", err)
	}
}

func TestLocalDeleteFolderPrunesEmptyCategory(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)

	if _, err := l.Store(context.Background(), []byte("x"), "a.pdf", "estimates", "rec-4", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !l.DeleteFolder("estimates", "rec-4") {
		t.Fatal("DeleteFolder returned false")
	}
	if _, err := os.Stat(filepath.Join(l.baseDir, "uploads", "estimates")); !os.IsNotExist(err) {
		t.Fatalf("empty category dir not pruned: %v", err)
	}
}

func TestLocalDeleteFolderKeepsCategoryWithOtherRecords(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)

	ctx := context.Background()
	if _, err := l.Store(ctx, []byte("x"), "a.pdf", "estimates", "rec-5", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := l.Store(ctx, []byte("x"), "b.pdf", "estimates", "rec-6", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !l.DeleteFolder("estimates", "rec-5") {
		t.Fatal("DeleteFolder returned false")
	}
	if _, err := os.Stat(filepath.Join(l.baseDir, "uploads", "estimates", "rec-6")); err != nil {
		t.Fatalf("sibling record folder lost: %v", err)
	}
}

func TestLocalDeleteFolderMissingRecord(t *testing.T) {
	t.Parallel()
	l := newTestLocal(t)
	if l.DeleteFolder("estimates", "nope") {
		t.Fatal("DeleteFolder returned true for missing folder")
	}
}
