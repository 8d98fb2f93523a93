package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const vocabBody = "[PAD]\n[UNK]\n[CLS]\n[SEP]\n[MASK]\n食べ\n##ます\n"

func sha256hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// newVocabServer serves body for the vocab resolve path and counts hits.
func newVocabServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/resolve/main/vocab.txt") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// ---------------------------------------------------------------------------
// VocabPath
// ---------------------------------------------------------------------------

func TestVocabPath(t *testing.T) {
	got, err := VocabPath("data", "cl-tohoku/bert-base-japanese-v2")
	if err != nil {
		t.Fatalf("VocabPath error = %v", err)
	}
	want := filepath.Join("data", "cl-tohoku", "bert-base-japanese-v2", "vocab.txt")
	if got != want {
		t.Errorf("VocabPath = %q; want %q", got, want)
	}
}

func TestVocabPath_RejectsInvalidRepo(t *testing.T) {
	for _, repo := range []string{"", "single", "a/b/c", "../x", "org/..", "/name", "org/"} {
		t.Run(repo, func(t *testing.T) {
			if _, err := VocabPath("data", repo); !errors.Is(err, ErrInvalidRepo) {
				t.Errorf("VocabPath(%q) error = %v; want ErrInvalidRepo", repo, err)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	got := ResolveURL("https://huggingface.co/", "cl-tohoku/bert-base-japanese", "main")
	want := "https://huggingface.co/cl-tohoku/bert-base-japanese/resolve/main/vocab.txt?download=true"
	if got != want {
		t.Errorf("ResolveURL = %q; want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// DownloadVocab
// ---------------------------------------------------------------------------

func TestDownloadVocab_WritesFileAndLock(t *testing.T) {
	srv, _ := newVocabServer(t, http.StatusOK, vocabBody)
	out := t.TempDir()

	path, err := DownloadVocab(context.Background(), DownloadOptions{
		Repo:    "cl-tohoku/bert-base-japanese",
		OutDir:  out,
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("DownloadVocab error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded vocab: %v", err)
	}
	if string(raw) != vocabBody {
		t.Errorf("content = %q; want %q", raw, vocabBody)
	}

	lock := readLockManifest(filepath.Join(filepath.Dir(path), lockFilename))
	rec, ok := lock.Files[VocabFilename]
	if !ok {
		t.Fatal("lock manifest missing vocab record")
	}
	if rec.SHA256 != sha256hex(vocabBody) {
		t.Errorf("lock sha256 = %q; want %q", rec.SHA256, sha256hex(vocabBody))
	}
	if rec.Revision != DefaultRevision {
		t.Errorf("lock revision = %q; want %q", rec.Revision, DefaultRevision)
	}
	if lock.Repo != "cl-tohoku/bert-base-japanese" {
		t.Errorf("lock repo = %q; want cl-tohoku/bert-base-japanese", lock.Repo)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestDownloadVocab_ReusesExistingFile(t *testing.T) {
	srv, hits := newVocabServer(t, http.StatusOK, vocabBody)
	out := t.TempDir()

	path, err := VocabPath(out, "org/model")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("local\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := DownloadVocab(context.Background(), DownloadOptions{Repo: "org/model", OutDir: out, BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("DownloadVocab error = %v", err)
	}
	if got != path {
		t.Errorf("path = %q; want %q", got, path)
	}
	if hits.Load() != 0 {
		t.Errorf("server hits = %d; want 0", hits.Load())
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "local\n" {
		t.Errorf("existing file was overwritten: %q", raw)
	}
}

func TestDownloadVocab_RefetchesOnPinnedMismatch(t *testing.T) {
	srv, hits := newVocabServer(t, http.StatusOK, vocabBody)
	out := t.TempDir()

	path, _ := VocabPath(out, "org/model")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := DownloadVocab(context.Background(), DownloadOptions{
		Repo:    "org/model",
		OutDir:  out,
		BaseURL: srv.URL,
		SHA256:  sha256hex(vocabBody),
	})
	if err != nil {
		t.Fatalf("DownloadVocab error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d; want 1", hits.Load())
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != vocabBody {
		t.Errorf("content = %q; want fresh download", raw)
	}
}

func TestDownloadVocab_ChecksumMismatchRemovesFile(t *testing.T) {
	srv, _ := newVocabServer(t, http.StatusOK, vocabBody)
	out := t.TempDir()

	_, err := DownloadVocab(context.Background(), DownloadOptions{
		Repo:    "org/model",
		OutDir:  out,
		BaseURL: srv.URL,
		SHA256:  strings.Repeat("0", 64),
	})
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("error = %v; want checksum mismatch", err)
	}
	path, _ := VocabPath(out, "org/model")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("mismatched file should be removed, stat err = %v", err)
	}
}

func TestDownloadVocab_ForceRedownloads(t *testing.T) {
	srv, hits := newVocabServer(t, http.StatusOK, vocabBody)
	out := t.TempDir()
	opts := DownloadOptions{Repo: "org/model", OutDir: out, BaseURL: srv.URL}

	if _, err := DownloadVocab(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	opts.Force = true
	if _, err := DownloadVocab(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d; want 2", hits.Load())
	}
}

func TestDownloadVocab_AccessDenied(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, _ := newVocabServer(t, status, "")
			_, err := DownloadVocab(context.Background(), DownloadOptions{
				Repo:    "org/gated",
				OutDir:  t.TempDir(),
				BaseURL: srv.URL,
			})
			var denied *ErrAccessDenied
			if !errors.As(err, &denied) {
				t.Fatalf("error = %v; want *ErrAccessDenied", err)
			}
			if denied.Repo != "org/gated" {
				t.Errorf("Repo = %q; want org/gated", denied.Repo)
			}
		})
	}
}

func TestDownloadVocab_NotFound(t *testing.T) {
	srv, _ := newVocabServer(t, http.StatusNotFound, "")
	_, err := DownloadVocab(context.Background(), DownloadOptions{
		Repo:    "org/missing",
		OutDir:  t.TempDir(),
		BaseURL: srv.URL,
	})
	if err == nil || !strings.Contains(err.Error(), "cannot download vocab.txt") {
		t.Fatalf("error = %v; want download failure", err)
	}
}

func TestDownloadVocab_SendsBearerToken(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(vocabBody))
	}))
	defer srv.Close()

	_, err := DownloadVocab(context.Background(), DownloadOptions{
		Repo:    "org/model",
		OutDir:  t.TempDir(),
		BaseURL: srv.URL,
		HFToken: "hf_secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := auth.Load().(string); got != "Bearer hf_secret" {
		t.Errorf("Authorization = %q; want Bearer hf_secret", got)
	}
}

func TestDownloadVocab_RejectsMalformedPin(t *testing.T) {
	_, err := DownloadVocab(context.Background(), DownloadOptions{
		Repo:   "org/model",
		OutDir: t.TempDir(),
		SHA256: "abc",
	})
	if err == nil {
		t.Fatal("expected error for malformed sha256 pin")
	}
}

// ---------------------------------------------------------------------------
// lock manifest
// ---------------------------------------------------------------------------

func TestReadLockManifest_MissingOrCorrupt(t *testing.T) {
	tmp := t.TempDir()
	if got := readLockManifest(filepath.Join(tmp, "absent.json")); got.Files == nil {
		t.Error("missing manifest should yield non-nil Files")
	}

	bad := filepath.Join(tmp, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := readLockManifest(bad); got.Files == nil || got.Repo != "" {
		t.Errorf("corrupt manifest = %+v; want empty", got)
	}
}

func TestDownloadVocab_LockPinReusedForRevision(t *testing.T) {
	srv, hits := newVocabServer(t, http.StatusOK, vocabBody)
	out := t.TempDir()
	opts := DownloadOptions{Repo: "org/model", OutDir: out, BaseURL: srv.URL}

	path, err := DownloadVocab(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	// Tamper with the local copy: the recorded checksum must trigger a refetch.
	if err := os.WriteFile(path, []byte("tampered\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DownloadVocab(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d; want 2", hits.Load())
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != vocabBody {
		t.Errorf("content = %q; want restored vocab", raw)
	}
}
