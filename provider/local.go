package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
)

type localFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (l *localFileInfo) Name() string       { return l.name }
func (l *localFileInfo) Size() int64        { return l.size }
func (l *localFileInfo) IsDir() bool        { return l.isDir }
func (l *localFileInfo) ModTime() time.Time { return l.modTime }

func wrapOSFileInfo(info os.FileInfo) FileInfo {
	return &localFileInfo{
		name:    info.Name(),
		size:    info.Size(),
		isDir:   info.IsDir(),
		modTime: info.ModTime(),
	}
}

// LocalProvider implements the Provider interface for the local
// filesystem, rooted at basePath.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new LocalProvider rooted at basePath.
// If basePath is empty, paths are used as given.
func NewLocalProvider(basePath string) *LocalProvider {
	return &LocalProvider{basePath: basePath}
}

func (p *LocalProvider) resolve(path string) string {
	if p.basePath == "" {
		return path
	}
	return filepath.Join(p.basePath, filepath.Clean(path))
}

func (p *LocalProvider) Stat(ctx context.Context, path string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := os.Stat(p.resolve(path))
	if err != nil {
		return nil, err
	}
	return wrapOSFileInfo(info), nil
}

func (p *LocalProvider) List(ctx context.Context, path string) ([]FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(p.resolve(path))
	if err != nil {
		return nil, err
	}

	var infos []FileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue // skip files that disappeared between ReadDir and Info
		}
		infos = append(infos, wrapOSFileInfo(info))
	}
	return infos, nil
}

func (p *LocalProvider) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return os.Open(p.resolve(path))
}

func (p *LocalProvider) OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := p.resolve(path)

	// MkdirAll treats an already-existing parent as success, so two
	// concurrent writers racing on the same missing directory are safe.
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	return &localWriteCloser{
		File:     file,
		fullPath: fullPath,
		metadata: metadata,
	}, nil
}

// localWriteCloser wraps an os.File and restores the source timestamp
// on close, since writing updates the mtime.
type localWriteCloser struct {
	*os.File
	fullPath string
	metadata FileInfo
}

func (l *localWriteCloser) Close() error {
	if err := l.File.Close(); err != nil {
		return err
	}

	if l.metadata != nil && !l.metadata.ModTime().IsZero() {
		// Best effort; a failed utimes does not fail the transfer.
		_ = os.Chtimes(l.fullPath, time.Now(), l.metadata.ModTime())
	}

	return nil
}
