// Package workspace materializes pull request source trees into ephemeral
// directories from GitHub tarball archives.
package workspace

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Workspace = (*TarballWorkspace)(nil)

// maxFileSize caps a single extracted file. Source trees with larger files
// are rejected rather than risking disk exhaustion on a hostile archive.
const maxFileSize = 64 << 20

// TarballWorkspace implements the Workspace port by downloading the tree as a
// gzip tarball through the GitHub API and extracting it into a fresh
// temporary directory per run.
type TarballWorkspace struct {
	client  driven.GitHubClient
	baseDir string // Parent for per-run directories; empty means os.TempDir.
}

// New creates a TarballWorkspace downloading trees via the given client.
func New(client driven.GitHubClient, baseDir string) *TarballWorkspace {
	return &TarballWorkspace{client: client, baseDir: baseDir}
}

// Checkout downloads and extracts the tree at the event's head SHA.
func (w *TarballWorkspace) Checkout(ctx context.Context, event model.PullRequestEvent) (string, error) {
	body, err := w.client.DownloadTarball(ctx, event.RepoFullName, event.HeadSHA)
	if err != nil {
		return "", err
	}
	defer body.Close()

	dir, err := os.MkdirTemp(w.baseDir, "formatgate-run-")
	if err != nil {
		return "", fmt.Errorf("create workspace dir: %w", err)
	}

	if err := extract(dir, body); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("extract tarball for %s@%s: %w", event.RepoFullName, event.HeadSHA, err)
	}

	return dir, nil
}

// Cleanup removes the workspace directory.
func (w *TarballWorkspace) Cleanup(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", dir, err)
	}
	return nil
}

// extract unpacks a gzip tarball into dir, stripping the archive's top-level
// directory (GitHub prefixes every entry with "owner-repo-sha/").
func extract(dir string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		rel := stripRoot(hdr.Name)
		if rel == "" {
			continue
		}

		target, err := securePath(dir, rel)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", rel, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent for %s: %w", rel, err)
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", rel, err)
			}
		default:
			// Symlinks and other special entries are skipped; the formatter
			// only needs regular source files.
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	_, err = io.Copy(f, io.LimitReader(r, maxFileSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("file exceeds %d byte limit", int64(maxFileSize))
	}
	return nil
}

// stripRoot drops the first path component of a tar entry name.
func stripRoot(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// securePath joins rel under dir, rejecting traversal outside the workspace.
func securePath(dir, rel string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("tar entry %q escapes workspace", rel)
	}
	return target, nil
}
