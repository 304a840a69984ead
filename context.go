package picodump

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// dumpContext owns the output buffer for the lifetime of one dump. The write
// cursor only moves forward; back-patches go through writeAt and never move
// it.
type dumpContext struct {
	target Target
	buf    []byte
	rva    uint32

	signature             uint32
	version               uint16
	implementationVersion uint16

	allModules bool
	log        *logrus.Entry
}

func newDumpContext(target Target, maxSize int, log *logrus.Entry) *dumpContext {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &dumpContext{
		target: target,
		buf:    make([]byte, maxSize),
		log:    log,
	}
}

func (dc *dumpContext) append(data []byte) error {
	if int(dc.rva)+len(data) > len(dc.buf) {
		return errors.Wrapf(ErrDumpTooLarge, "append of %d bytes at rva %#x", len(data), dc.rva)
	}
	copy(dc.buf[dc.rva:], data)
	dc.rva += uint32(len(data))
	return nil
}

// writeUint32At back-patches a previously reserved field. The caller must
// have appended past the patched offset already; the cursor never moves.
func (dc *dumpContext) writeUint32At(rva uint32, v uint32) {
	binary.LittleEndian.PutUint32(dc.buf[rva:], v)
}

// erase scrubs the dump from memory. It runs regardless of whether the dump
// succeeded, so no secret material outlives the context.
func (dc *dumpContext) erase() {
	for i := range dc.buf {
		dc.buf[i] = 0
	}
	dc.rva = 0
}
