package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Usage reports how much storage the local data occupies. Quota is what the
// data could grow to: its current size plus the free space on its volume.
type Usage struct {
	Used       uint64  `json:"used"`
	Quota      uint64  `json:"quota"`
	Percentage float64 `json:"percentage"`
}

// GetStorageUsage measures the manager's usage paths. Any failure yields a
// zero Usage; the cause is logged.
func (m *Manager) GetStorageUsage(ctx context.Context) Usage {
	var used uint64
	for _, root := range m.usagePaths {
		n, err := dirSize(ctx, root)
		if err != nil {
			m.logger.Warn("measuring storage usage", zap.String("path", root), zap.Error(err))
			return Usage{}
		}
		used += n
	}
	free, err := freeSpace(existingParent(m.usagePaths[0]))
	if err != nil {
		m.logger.Warn("reading free space", zap.Error(err))
		return Usage{}
	}
	u := Usage{Used: used, Quota: used + free}
	if u.Quota > 0 {
		u.Percentage = float64(u.Used) / float64(u.Quota) * 100
	}
	return u
}

// dirSize sums regular file sizes under root. A missing root is empty.
func dirSize(ctx context.Context, root string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}

// existingParent walks up from path to the first directory that exists.
func existingParent(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
