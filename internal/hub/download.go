// Package hub fetches WordPiece vocabulary files from the Hugging Face hub
// and keeps them in a local directory tree keyed by repository id.
package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hub endpoint used when DownloadOptions.BaseURL is empty.
	DefaultBaseURL = "https://huggingface.co"
	// DefaultRevision is the branch resolved when no revision is pinned.
	DefaultRevision = "main"
	// VocabFilename is the file fetched from every repository.
	VocabFilename = "vocab.txt"

	lockFilename = "vocab.lock.json"
)

// ErrInvalidRepo is returned for repository ids that are not of the form org/name.
var ErrInvalidRepo = errors.New("invalid hub repository id")

type DownloadOptions struct {
	Repo     string
	Revision string
	OutDir   string
	HFToken  string
	// SHA256 pins the expected checksum. When empty, the checksum recorded in
	// the lock manifest for the same revision is used, if any.
	SHA256 string
	// Force re-downloads even when a local copy exists.
	Force   bool
	BaseURL string
	Client  *http.Client
	Stdout  io.Writer
}

type ErrAccessDenied struct {
	Repo string
	Msg  string
}

func (e *ErrAccessDenied) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("access denied for %s", e.Repo)
}

var shaHexPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// VocabPath composes <outDir>/<org>/<name>/vocab.txt from a repository id.
func VocabPath(outDir, repo string) (string, error) {
	parts, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	return filepath.Join(outDir, parts[0], parts[1], VocabFilename), nil
}

func splitRepo(repo string) ([]string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %q (want org/name)", ErrInvalidRepo, repo)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\:`) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
		}
	}
	return parts, nil
}

// DownloadVocab makes sure the vocabulary of opts.Repo exists locally and
// returns its path. An existing file is reused unless a known checksum
// disagrees with it or opts.Force is set.
func DownloadVocab(ctx context.Context, opts DownloadOptions) (string, error) {
	if opts.Repo == "" {
		return "", fmt.Errorf("repo is required")
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if opts.Revision == "" {
		opts.Revision = DefaultRevision
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 0}
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.SHA256 != "" && !isSHA256Hex(opts.SHA256) {
		return "", fmt.Errorf("pinned sha256 %q is not a 64-digit hex digest", opts.SHA256)
	}

	localPath, err := VocabPath(opts.OutDir, opts.Repo)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create vocab dir: %w", err)
	}

	lockPath := filepath.Join(dir, lockFilename)
	lock := readLockManifest(lockPath)
	lock.Repo = opts.Repo

	expected := strings.ToLower(opts.SHA256)
	if expected == "" {
		if lr, ok := lock.Files[VocabFilename]; ok && lr.Revision == opts.Revision && isSHA256Hex(lr.SHA256) {
			expected = strings.ToLower(lr.SHA256)
		}
	}

	if !opts.Force {
		actual, exists, err := existingChecksum(localPath)
		if err != nil {
			return "", err
		}
		if exists && (expected == "" || actual == expected) {
			fmt.Fprintf(opts.Stdout, "skip %s (exists, sha256=%s)\n", localPath, actual)
			if err := recordLock(lockPath, lock, opts.Revision, actual); err != nil {
				return "", err
			}
			return localPath, nil
		}
		if exists {
			fmt.Fprintf(opts.Stdout, "checksum mismatch for %s, downloading again\n", localPath)
		}
	}

	fmt.Fprintf(opts.Stdout, "download %s@%s -> %s\n", opts.Repo, opts.Revision, localPath)
	actual, err := downloadWithProgress(ctx, opts, localPath)
	if err != nil {
		return "", err
	}
	if expected != "" && actual != expected {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("checksum mismatch for %s: expected %s got %s", opts.Repo, expected, actual)
	}
	fmt.Fprintf(opts.Stdout, "verified %s (sha256=%s)\n", localPath, actual)

	if err := recordLock(lockPath, lock, opts.Revision, actual); err != nil {
		return "", err
	}
	return localPath, nil
}

func recordLock(path string, lock lockManifest, revision, sum string) error {
	lock.Generated = time.Now().UTC().Format(time.RFC3339)
	lock.Files[VocabFilename] = lockRecord{Revision: revision, SHA256: sum}
	return writeLockManifest(path, lock)
}

func existingChecksum(path string) (string, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat existing file: %w", err)
	}
	if fi.IsDir() {
		return "", false, fmt.Errorf("expected file at %s, found directory", path)
	}
	sum, err := fileSHA256(path)
	if err != nil {
		return "", false, err
	}
	return sum, true, nil
}

func downloadWithProgress(ctx context.Context, opts DownloadOptions, outPath string) (string, error) {
	url := ResolveURL(opts.BaseURL, opts.Repo, opts.Revision)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	setAuth(req, opts.HFToken)

	resp, err := opts.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &ErrAccessDenied{
			Repo: opts.Repo,
			Msg:  fmt.Sprintf("access denied for %s; provide HF_TOKEN or --hf-token", opts.Repo),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("cannot download %s from %s: %s", VocabFilename, url, resp.Status)
	}

	tmp := outPath + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	h := sha256.New()
	mw := io.MultiWriter(fh, h)

	var written int64
	buf := make([]byte, 64*1024)
	total := resp.ContentLength
	lastPrint := time.Now()
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			wn, writeErr := mw.Write(buf[:n])
			if writeErr != nil {
				_ = fh.Close()
				_ = os.Remove(tmp)
				return "", fmt.Errorf("write temp file: %w", writeErr)
			}
			written += int64(wn)
			if time.Since(lastPrint) > 700*time.Millisecond {
				if total > 0 {
					pct := float64(written) * 100 / float64(total)
					fmt.Fprintf(opts.Stdout, "  progress: %.1f%% (%d/%d bytes)\n", pct, written, total)
				} else {
					fmt.Fprintf(opts.Stdout, "  progress: %d bytes\n", written)
				}
				lastPrint = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = fh.Close()
			_ = os.Remove(tmp)
			return "", fmt.Errorf("download read failed: %w", readErr)
		}
	}

	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move temp file into place: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ResolveURL returns the download URL of the vocabulary at revision.
func ResolveURL(baseURL, repo, revision string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s?download=true", strings.TrimRight(baseURL, "/"), repo, revision, VocabFilename)
}

func setAuth(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func isSHA256Hex(v string) bool {
	return shaHexPattern.MatchString(v)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file for checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
