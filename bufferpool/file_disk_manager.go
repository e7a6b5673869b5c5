package bufferpool

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// FileDiskManager is a DiskManager backed by a single OS file, pages
// addressed by pageID*PageSize byte offset. It is the durable
// counterpart to InMemDiskManager.
type FileDiskManager struct {
	mu sync.Mutex
	fd *os.File
}

// NewFileDiskManager opens (creating if necessary) dataFile as the
// backing store for a buffer pool.
func NewFileDiskManager(dataFile string) (*FileDiskManager, error) {
	fd, err := os.OpenFile(dataFile, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open data file")
	}
	return &FileDiskManager{fd: fd}, nil
}

// ReadPage implements DiskManager.
func (d *FileDiskManager) ReadPage(pageID PageID, buf []byte) error {
	if pageID < 0 {
		return errors.Errorf("read page: invalid page id %d", pageID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := int64(pageID) * int64(PageSize)
	info, err := d.fd.Stat()
	if err != nil {
		return errors.Wrap(err, "stat data file")
	}
	if offset+int64(PageSize) > info.Size() {
		// never written: zero-fill, per the disk manager contract.
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	if _, err := d.fd.ReadAt(buf, offset); err != nil {
		return errors.Wrap(err, "read data file")
	}
	return nil
}

// WritePage implements DiskManager.
func (d *FileDiskManager) WritePage(pageID PageID, buf []byte) error {
	if pageID < 0 {
		return errors.Errorf("write page: invalid page id %d", pageID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := int64(pageID) * int64(PageSize)
	if _, err := d.fd.WriteAt(buf, offset); err != nil {
		return errors.Wrap(err, "write data file")
	}
	return nil
}

// FileSize returns the current size of the backing file.
func (d *FileDiskManager) FileSize() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, err := d.fd.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close implements DiskManager.
func (d *FileDiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd.Close()
}
