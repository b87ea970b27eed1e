// Package executor implements the Pass Executor of spec §4.D: the
// write/verify loop that drives one pass of one method against one block
// device, using an aligned buffer and a Pattern Source.
//
// Grounded on the boundary-interface style of internal/storage/interfaces.go
// (small, verb-named methods returning wrapped errors) and on the
// cancellation-channel idiom of internal/game/table.go's gameLoop.
package executor

import (
	"errors"
	"io"
	"log"
	"os"
	"syscall"
)

// BlockDevice is the minimal surface the Pass Executor needs from a target
// device. Production code backs it with an *os.File opened O_RDWR on the
// raw block device node; tests back it with an in-memory spy.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Size() (int64, error)
}

// FatalError wraps a BlockDevice error that the Wipe Worker must treat as
// unretriable: ENOSPC, EIO or EFAULT.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return "executor: fatal " + e.Op + ": " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// classify wraps err as a *FatalError when it carries one of the
// unretriable errno values, per spec §4.D's failure classification.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EFAULT) {
		return &FatalError{Op: op, Err: err}
	}
	return err
}

// osFileDevice backs BlockDevice with a real file descriptor.
type osFileDevice struct {
	f *os.File
}

// OpenDevice opens path for raw read/write access.
func OpenDevice(path string) (BlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, classify("open", err)
	}
	return &osFileDevice{f: f}, nil
}

func (d *osFileDevice) ReadAt(p []byte, off int64) (int, error) {
	n, err := d.f.ReadAt(p, off)
	return n, classify("read", err)
}

func (d *osFileDevice) WriteAt(p []byte, off int64) (int, error) {
	n, err := d.f.WriteAt(p, off)
	return n, classify("write", err)
}

func (d *osFileDevice) Sync() error {
	return classify("sync", d.f.Sync())
}

// Size queries the device's length with two independent probes — stat(2)
// and lseek(SEEK_END) — and logs a "last-odd-block" warning if they
// disagree, per spec §9's open question on the source's discrepancy
// detection. Block device nodes report a zero regular size from stat(2),
// so the seek-derived value is authoritative whenever the two diverge.
func (d *osFileDevice) Size() (int64, error) {
	statSize, statErr := d.statSize()

	end, err := d.f.Seek(0, io.SeekEnd)
	if err != nil {
		if statErr != nil {
			return 0, classify("stat", statErr)
		}
		return statSize, nil
	}
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return 0, classify("seek", err)
	}

	if statErr == nil && statSize > 0 && statSize != end {
		log.Printf("executor: device %s size discrepancy: stat(2) reports %d bytes, lseek(SEEK_END) reports %d bytes; using the lseek value", d.f.Name(), statSize, end)
	}
	return end, nil
}

func (d *osFileDevice) statSize() (int64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, classify("stat", err)
	}
	return info.Size(), nil
}

func (d *osFileDevice) Close() error { return d.f.Close() }
