package executor

import (
	"context"
	"errors"
	"log"

	"wipeengine/internal/pattern"
	"wipeengine/internal/wipe"
)

// errShortWrite marks a write that remained short after one retry.
var errShortWrite = errors.New("executor: persistent short write")

// Direction selects whether Execute writes the pattern to the device or
// reads it back and compares.
type Direction int

const (
	Write Direction = iota
	Verify
)

const (
	minBufferSize = 64 * 1024
	maxBufferSize = 1024 * 1024
)

// chooseBufferSize picks the smallest power-of-two multiple of sectorSize
// that is at least 64 KiB, capped at 1 MiB, per spec §4.D. A small fixed
// buffer (rather than the largest one that fits) keeps progress reporting
// and mid-pass cancellation responsive on large devices.
func chooseBufferSize(sectorSize int64) int64 {
	if sectorSize <= 0 {
		sectorSize = 512
	}

	size := int64(minBufferSize)
	for size%sectorSize != 0 {
		size *= 2
		if size > maxBufferSize {
			return sectorSize
		}
	}
	return size
}

// ProgressFunc is called after every successful chunk with the new offset.
type ProgressFunc func(offset int64)

// Outcome is the result of one Execute call: one pass, one direction.
type Outcome struct {
	BytesProcessed int64
	PassErrors     int
	VerifyErrors   int64
	FsyncErrors    int
	Status         wipe.Result
}

// Execute runs the Pass Executor algorithm of spec §4.D against dev: either
// writing src's bytes across the whole device, or reading the device back
// and comparing it against src's bytes. syncEvery is the sync policy `S`:
// 0 means "sync once at the end", N>0 means "sync every N writes".
func Execute(ctx context.Context, dev BlockDevice, deviceSize, sectorSize int64, src *pattern.Source, dir Direction, syncEvery int, progress ProgressFunc) (Outcome, error) {
	bufSize := chooseBufferSize(sectorSize)
	buf := make([]byte, bufSize)
	var refBuf []byte
	if dir == Verify {
		refBuf = make([]byte, bufSize)
	}

	var out Outcome
	var offset int64
	var writes int

	syncNow := func() {
		if err := dev.Sync(); err != nil {
			out.FsyncErrors++
		}
	}

	for offset < deviceSize {
		select {
		case <-ctx.Done():
			syncNow()
			out.Status = wipe.ResultCancelled
			return out, nil
		default:
		}

		n := bufSize
		if remaining := deviceSize - offset; remaining < n {
			n = remaining
		}
		chunk := buf[:n]

		switch dir {
		case Write:
			src.Fill(chunk)
			wrote, err := writeAllWithRetry(dev, chunk, offset)
			if err != nil {
				if fe, ok := asFatal(err); ok {
					out.PassErrors++
					out.Status = wipe.ResultFatalIO
					_ = fe
					return out, nil
				}
				if tail := oddFinalTail(offset, n, deviceSize, sectorSize); tail > 0 {
					rounded := n - tail
					if rounded > 0 {
						if w2, err2 := writeAllWithRetry(dev, chunk[:rounded], offset); err2 == nil {
							out.BytesProcessed += int64(w2)
							writes++
							if syncEvery > 0 && writes%syncEvery == 0 {
								syncNow()
							}
						} else {
							out.PassErrors++
						}
					}
					log.Printf("executor: device rejected a sub-sector final transfer; skipping last %d-byte partial sector at offset %d", tail, offset+rounded)
					offset += n
					if progress != nil {
						progress(offset)
					}
					continue
				}
				out.PassErrors++
				// persistent short write (writeAllWithRetry already
				// retried once) or another non-fatal write error:
				// skip the offending chunk and continue from the next one.
				offset += n
				continue
			}
			out.BytesProcessed += int64(wrote)
			writes++

			if syncEvery > 0 && writes%syncEvery == 0 {
				syncNow()
			}

		case Verify:
			ref := refBuf[:n]
			src.Fill(ref)
			read, err := dev.ReadAt(chunk, offset)
			if err != nil && read == 0 {
				if fe, ok := asFatal(err); ok {
					out.PassErrors++
					out.Status = wipe.ResultFatalIO
					_ = fe
					return out, nil
				}
				out.PassErrors++
				offset += n
				continue
			}
			out.BytesProcessed += int64(read)
			for i := 0; i < read; i++ {
				if chunk[i] != ref[i] {
					out.VerifyErrors++
				}
			}
		}

		offset += n
		if progress != nil {
			progress(offset)
		}
	}

	// Flush the pass: S==0 means "one sync at the end"; S>0 still needs a
	// final flush whenever the last S-sized batch of writes was partial,
	// per spec §8 invariant 4's ⌊W/S⌋ + (1 if W mod S != 0) formula.
	if dir == Write && (syncEvery == 0 || writes%syncEvery != 0) {
		syncNow()
	}

	out.Status = wipe.ResultOK
	return out, nil
}

// oddFinalTail returns the size of the trailing partial sector in the
// device's last chunk, or 0 when the chunk isn't both final and
// sub-sector-sized — the common case on well-formed devices. Spec §9's
// "last-odd-block" open question: a device whose size isn't a multiple of
// its sector size gets one sub-sector write attempt before the tail is
// rounded down and skipped.
func oddFinalTail(offset, n, deviceSize, sectorSize int64) int64 {
	if sectorSize <= 0 || offset+n != deviceSize {
		return 0
	}
	return n % sectorSize
}

// writeAllWithRetry writes buf to dev at off, retrying once on a short
// write before giving up on that chunk (spec §4.D error policy).
func writeAllWithRetry(dev BlockDevice, buf []byte, off int64) (int, error) {
	n, err := dev.WriteAt(buf, off)
	if err != nil {
		return n, err
	}
	if n == len(buf) {
		return n, nil
	}

	remaining := buf[n:]
	n2, err2 := dev.WriteAt(remaining, off+int64(n))
	if err2 != nil {
		return n + n2, err2
	}
	if n+n2 == len(buf) {
		return n + n2, nil
	}
	// Persistent short write: report what we managed and let the caller
	// record a pass error and move past this chunk.
	return n + n2, errShortWrite
}

func asFatal(err error) (*FatalError, bool) {
	fe, ok := err.(*FatalError)
	return fe, ok
}
