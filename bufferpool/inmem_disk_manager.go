package bufferpool

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// InMemDiskManager is a DiskManager that keeps pages in a growable byte
// slice and spills to a temp file once it has accumulated more than
// thresholdPages worth of data. It is meant for tests and demos, not
// durability: nothing here survives a process restart once the temp file
// is removed on Close.
type InMemDiskManager struct {
	thresholdPages int
	highestPage    int // one past the highest page index ever written

	spilled bool
	fd      *os.File

	data []byte
}

// NewInMemDiskManager returns an in-memory disk manager that spills to a
// temp file after thresholdPages pages have been written.
func NewInMemDiskManager(thresholdPages int) *InMemDiskManager {
	return &InMemDiskManager{
		thresholdPages: thresholdPages,
		data:           make([]byte, 0),
	}
}

func (d *InMemDiskManager) growTo(pageID PageID) error {
	need := int(pageID) + 1
	if need <= d.highestPage {
		return nil
	}
	if !d.spilled {
		for d.highestPage < need {
			d.data = append(d.data, make([]byte, PageSize)...)
			d.highestPage++
		}
		if d.highestPage > d.thresholdPages {
			if err := d.spillToDisk(); err != nil {
				return err
			}
		}
		return nil
	}
	size := int64(need) * int64(PageSize)
	if _, err := d.fd.WriteAt([]byte{0}, size-1); err != nil {
		return errors.Wrap(err, "extend spill file")
	}
	d.highestPage = need
	return nil
}

func (d *InMemDiskManager) spillToDisk() error {
	fileUUID, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(err, "generate spill file name")
	}
	// TODO(latticedb) tell the OS not to cache this file once we have a way to do that portably
	fd, err := os.CreateTemp("", fmt.Sprintf("latticedb-spill-%s", fileUUID.String()))
	if err != nil {
		return errors.Wrap(err, "create spill file")
	}
	if _, err := fd.WriteAt(d.data, 0); err != nil {
		return errors.Wrap(err, "write spill file")
	}
	d.fd = fd
	d.data = nil
	d.spilled = true
	return nil
}

// ReadPage implements DiskManager.
func (d *InMemDiskManager) ReadPage(pageID PageID, buf []byte) error {
	if pageID < 0 {
		return errors.Errorf("read page: invalid page id %d", pageID)
	}
	if int(pageID) >= d.highestPage {
		// never written: zero-fill, per the disk manager contract.
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	offset := int64(pageID) * int64(PageSize)
	if !d.spilled {
		copy(buf, d.data[offset:offset+int64(PageSize)])
		return nil
	}
	if _, err := d.fd.ReadAt(buf, offset); err != nil {
		return errors.Wrap(err, "read spill file")
	}
	return nil
}

// WritePage implements DiskManager.
func (d *InMemDiskManager) WritePage(pageID PageID, buf []byte) error {
	if pageID < 0 {
		return errors.Errorf("write page: invalid page id %d", pageID)
	}
	if err := d.growTo(pageID); err != nil {
		return err
	}
	offset := int64(pageID) * int64(PageSize)
	if !d.spilled {
		copy(d.data[offset:offset+int64(PageSize)], buf)
		return nil
	}
	if _, err := d.fd.WriteAt(buf, offset); err != nil {
		return errors.Wrap(err, "write spill file")
	}
	return nil
}

// FileSize reports the on-disk size backing this disk manager, 0 if it
// has never spilled.
func (d *InMemDiskManager) FileSize() int64 {
	if !d.spilled {
		return 0
	}
	info, err := d.fd.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close implements DiskManager.
func (d *InMemDiskManager) Close() error {
	if d.fd == nil {
		return nil
	}
	name := d.fd.Name()
	if err := d.fd.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
