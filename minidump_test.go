package picodump

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeTarget stands in for the live process view: a handful of regions with
// known contents, two allow-listed modules and fixed version fields.
type fakeTarget struct {
	info      OSInfo
	modules   []*Module
	regions   []*MemoryRegion
	memory    map[uint64][]byte
	partial   map[uint64]bool
	failReads bool
	failQuery bool
	noModules bool
}

func (t *fakeTarget) OSInfo() (*OSInfo, error) {
	info := t.info
	return &info, nil
}

func (t *fakeTarget) Modules(allModules bool) ([]*Module, error) {
	if t.noModules {
		return nil, ErrNoImportantModules
	}
	return t.modules, nil
}

func (t *fakeTarget) QueryRegion(addr uint64) (*MemoryRegion, error) {
	if t.failQuery {
		return nil, errors.New("query refused")
	}
	for _, r := range t.regions {
		if r.Base+r.Size > addr {
			region := *r
			return &region, nil
		}
	}
	return nil, nil
}

func (t *fakeTarget) ReadMemory(addr uint64, buf []byte) error {
	if t.failReads {
		return errors.New("read refused")
	}
	if t.partial[addr] {
		return errors.Wrapf(ErrPartialCopy, "range at %#x", addr)
	}
	if b, ok := t.memory[addr]; ok {
		copy(buf, b)
		return nil
	}
	for i := range buf {
		buf[i] = byte(addr) ^ byte(i)
	}
	return nil
}

const (
	testHeapBase   = 0x0000000000010000
	testLsasrvBase = 0x00007ff800000000
	testMsvBase    = 0x00007ff800100000
)

func newTestTarget() *fakeTarget {
	lsasrvPage := makePEPage(0x2000, 0xcafe, 0x61514171)
	msvPage := makePEPage(0x1000, 0xbeef, 0x61514172)

	heap := make([]byte, 0x2000)
	for i := range heap {
		heap[i] = byte(i % 251)
	}

	return &fakeTarget{
		info: OSInfo{
			ProcessorArchitecture: processorArchitectureAMD64,
			MajorVersion:          10,
			MinorVersion:          0,
			BuildNumber:           19045,
			PlatformID:            2,
			CSDVersion:            "CSD",
		},
		modules: []*Module{
			{Base: testLsasrvBase, Size: 0x2000, Checksum: 0xcafe, Timestamp: 0x61514171, Path: `C:\Windows\System32\lsasrv.dll`},
			{Base: testMsvBase, Size: 0x1000, Checksum: 0xbeef, Timestamp: 0x61514172, Path: `C:\Windows\System32\msv1_0.dll`},
		},
		regions: []*MemoryRegion{
			{Base: testHeapBase, Size: 0x2000, State: memCommit, Protect: 0x04, Type: 0x20000},
			{Base: 0x20000, Size: 0x1000, State: 0x2000, Protect: 0x04, Type: 0x20000},           // reserved
			{Base: 0x30000, Size: 0x1000, State: memCommit, Protect: pageNoAccess, Type: 0x20000}, // no access
			{Base: 0x40000, Size: 0x1000, State: memCommit, Protect: 0x04 | pageGuard, Type: 0x20000},
			{Base: 0x50000, Size: 0x1000, State: memCommit, Protect: 0x02, Type: memMapped},
			{Base: 0x60000, Size: 0x1000, State: memCommit, Protect: 0x20, Type: memImage}, // image outside the allow-list
			{Base: testLsasrvBase, Size: 0x2000, State: memCommit, Protect: 0x20, Type: memImage},
			{Base: testMsvBase, Size: 0x1000, State: memCommit, Protect: 0x20, Type: memImage},
		},
		memory: map[uint64][]byte{
			testHeapBase:   heap,
			testLsasrvBase: lsasrvPage,
			testMsvBase:    msvPage,
		},
		partial: map[uint64]bool{},
	}
}

func newTestContext(t *fakeTarget, maxSize int) *dumpContext {
	dc := newDumpContext(t, maxSize, nil)
	dc.signature = MiniDumpSignature
	dc.version = MiniDumpVersion
	dc.implementationVersion = MiniDumpImplementationVersion
	return dc
}

// parsedDump is a minimal consumer for the produced container, standing in
// for the reference reader.
type parsedDump struct {
	signature   uint32
	version     uint16
	implVersion uint16
	streamCount uint32
	dirRVA      uint32

	dirs [3]struct {
		typ  streamType
		size uint32
		rva  uint32
	}

	csdRVA  uint32
	csdName string

	modules []struct {
		base      uint64
		size      uint32
		checksum  uint32
		timestamp uint32
		nameRVA   uint32
		name      string
	}

	memCount    uint64
	memBaseRVA  uint64
	descriptors []struct {
		start uint64
		size  uint64
	}
}

func decodeDumpString(t *testing.T, b []byte, rva uint32) string {
	t.Helper()
	require.Less(t, int(rva)+4, len(b), "string prefix out of bounds")
	byteLen := binary.LittleEndian.Uint32(b[rva:])
	require.LessOrEqual(t, int(rva)+4+int(byteLen), len(b), "string body out of bounds")
	chars := make([]uint16, byteLen/2)
	for i := range chars {
		chars[i] = binary.LittleEndian.Uint16(b[int(rva)+4+2*i:])
	}
	for len(chars) > 0 && chars[len(chars)-1] == 0 {
		chars = chars[:len(chars)-1]
	}
	return string(utf16.Decode(chars))
}

func parseDump(t *testing.T, b []byte) *parsedDump {
	t.Helper()
	var d parsedDump
	require.GreaterOrEqual(t, len(b), sizeOfHeader+3*sizeOfDirectory)

	d.signature = binary.LittleEndian.Uint32(b[0:])
	d.version = binary.LittleEndian.Uint16(b[4:])
	d.implVersion = binary.LittleEndian.Uint16(b[6:])
	d.streamCount = binary.LittleEndian.Uint32(b[8:])
	d.dirRVA = binary.LittleEndian.Uint32(b[12:])
	require.Equal(t, uint32(3), d.streamCount)
	require.Equal(t, uint32(sizeOfHeader), d.dirRVA)

	for i := 0; i < 3; i++ {
		off := sizeOfHeader + i*sizeOfDirectory
		d.dirs[i].typ = streamType(binary.LittleEndian.Uint32(b[off:]))
		d.dirs[i].size = binary.LittleEndian.Uint32(b[off+4:])
		d.dirs[i].rva = binary.LittleEndian.Uint32(b[off+8:])
	}

	sys := d.dirs[0].rva
	d.csdRVA = binary.LittleEndian.Uint32(b[sys+24:])
	d.csdName = decodeDumpString(t, b, d.csdRVA)

	mod := d.dirs[1].rva
	count := binary.LittleEndian.Uint32(b[mod:])
	for i := uint32(0); i < count; i++ {
		off := mod + 4 + i*sizeOfMiniDumpModule
		var m struct {
			base      uint64
			size      uint32
			checksum  uint32
			timestamp uint32
			nameRVA   uint32
			name      string
		}
		m.base = binary.LittleEndian.Uint64(b[off:])
		m.size = binary.LittleEndian.Uint32(b[off+8:])
		m.checksum = binary.LittleEndian.Uint32(b[off+12:])
		m.timestamp = binary.LittleEndian.Uint32(b[off+16:])
		m.nameRVA = binary.LittleEndian.Uint32(b[off+20:])
		m.name = decodeDumpString(t, b, m.nameRVA)
		d.modules = append(d.modules, m)
	}

	mem := d.dirs[2].rva
	d.memCount = binary.LittleEndian.Uint64(b[mem:])
	d.memBaseRVA = binary.LittleEndian.Uint64(b[mem+8:])
	for i := uint64(0); i < d.memCount; i++ {
		off := uint64(mem) + 16 + 16*i
		d.descriptors = append(d.descriptors, struct {
			start uint64
			size  uint64
		}{
			start: binary.LittleEndian.Uint64(b[off:]),
			size:  binary.LittleEndian.Uint64(b[off+8:]),
		})
	}
	return &d
}

func TestWriteDumpLayout(t *testing.T) {
	target := newTestTarget()
	dc := newTestContext(target, defaultMaxDumpSize)
	require.NoError(t, dc.writeDump())

	out := dc.buf[:dc.rva]
	d := parseDump(t, out)

	require.Equal(t, MiniDumpSignature, d.signature)
	require.Equal(t, MiniDumpVersion, d.version)
	require.Equal(t, MiniDumpImplementationVersion, d.implVersion)

	require.Equal(t, systemInfoStream, d.dirs[0].typ)
	require.Equal(t, moduleListStream, d.dirs[1].typ)
	require.Equal(t, memory64ListStream, d.dirs[2].typ)

	// Every stream window lies inside the artifact and none overlap.
	for i, dir := range d.dirs {
		require.Greater(t, dir.rva, uint32(0), "stream %d rva", i)
		require.LessOrEqual(t, int(dir.rva)+int(dir.size), len(out), "stream %d window", i)
		for j := i + 1; j < 3; j++ {
			other := d.dirs[j]
			disjoint := dir.rva+dir.size <= other.rva || other.rva+other.size <= dir.rva
			require.True(t, disjoint, "streams %d and %d overlap", i, j)
		}
	}

	require.Equal(t, uint32(sizeOfSystemInfoStream), d.dirs[0].size)
	require.Equal(t, "CSD", d.csdName)

	require.Len(t, d.modules, 2)
	require.Equal(t, uint32(4+2*sizeOfMiniDumpModule), d.dirs[1].size)
	require.Equal(t, uint64(testLsasrvBase), d.modules[0].base)
	require.Equal(t, uint32(0xcafe), d.modules[0].checksum)
	require.Equal(t, uint32(0x61514171), d.modules[0].timestamp)
	require.Equal(t, `C:\Windows\System32\lsasrv.dll`, d.modules[0].name)
	require.Equal(t, `C:\Windows\System32\msv1_0.dll`, d.modules[1].name)
	for _, m := range d.modules {
		require.Less(t, m.nameRVA, d.dirs[1].rva, "name must precede the record that references it")
	}

	// Only the heap and the two allow-listed images made it in, ascending
	// and non-overlapping, and the blob length matches the descriptor sum.
	require.Equal(t, uint64(3), d.memCount)
	require.Equal(t, uint64(d.dirs[2].rva)+uint64(d.dirs[2].size), d.memBaseRVA)
	var sum uint64
	for i, desc := range d.descriptors {
		sum += desc.size
		if i > 0 {
			prev := d.descriptors[i-1]
			require.Greater(t, desc.start, prev.start)
			require.GreaterOrEqual(t, desc.start, prev.start+prev.size)
		}
	}
	require.Equal(t, uint64(len(out))-d.memBaseRVA, sum)
	require.Equal(t, uint64(testHeapBase), d.descriptors[0].start)
	require.Equal(t, uint64(testLsasrvBase), d.descriptors[1].start)
	require.Equal(t, uint64(testMsvBase), d.descriptors[2].start)

	// The blob carries the target's bytes in descriptor order.
	heap := target.memory[testHeapBase]
	require.Equal(t, heap, out[d.memBaseRVA:d.memBaseRVA+uint64(len(heap))])
	lsasrvOffset := d.memBaseRVA + d.descriptors[0].size
	require.Equal(t, target.memory[testLsasrvBase][:0x1000], out[lsasrvOffset:lsasrvOffset+0x1000])
}

func TestWriteDumpInvalidSignature(t *testing.T) {
	target := newTestTarget()
	dc := newTestContext(target, defaultMaxDumpSize)

	sig, version, implVersion, err := generateInvalidSignature()
	require.NoError(t, err)
	dc.signature = sig
	dc.version = version
	dc.implementationVersion = implVersion
	require.NoError(t, dc.writeDump())

	out := dc.buf[:dc.rva]
	require.NotEqual(t, []byte("MDMP"), out[:4])

	// Patching the first eight bytes back yields a loadable container.
	binary.LittleEndian.PutUint32(out[0:], MiniDumpSignature)
	binary.LittleEndian.PutUint16(out[4:], MiniDumpVersion)
	binary.LittleEndian.PutUint16(out[6:], MiniDumpImplementationVersion)
	d := parseDump(t, out)
	require.Equal(t, MiniDumpSignature, d.signature)
	require.Len(t, d.modules, 2)
}

func TestGenerateInvalidSignatureNeverCanonical(t *testing.T) {
	for i := 0; i < 256; i++ {
		sig, _, _, err := generateInvalidSignature()
		require.NoError(t, err)
		require.NotEqual(t, MiniDumpSignature, sig)
	}
}

func TestWriteDumpTooLarge(t *testing.T) {
	target := newTestTarget()
	dc := newTestContext(target, sizeOfHeader+3*sizeOfDirectory+16)

	err := dc.writeDump()
	require.ErrorIs(t, err, ErrDumpTooLarge)
	// The writer failed before the SystemInfo body went in.
	require.Equal(t, uint32(sizeOfHeader+3*sizeOfDirectory), dc.rva)

	dc.erase()
	for i, b := range dc.buf {
		require.Zero(t, b, "byte %d not scrubbed", i)
	}
	require.Zero(t, dc.rva)
}

func TestWriteDumpPartialCopyHole(t *testing.T) {
	target := newTestTarget()
	target.partial[testHeapBase] = true
	dc := newTestContext(target, defaultMaxDumpSize)
	require.NoError(t, dc.writeDump())

	d := parseDump(t, dc.buf[:dc.rva])
	require.Equal(t, uint64(3), d.memCount)
	require.Equal(t, uint64(0x2000), d.descriptors[0].size)
	hole := dc.buf[d.memBaseRVA : d.memBaseRVA+d.descriptors[0].size]
	for _, b := range hole {
		require.Zero(t, b)
	}
}

func TestWriteDumpAllReadsFail(t *testing.T) {
	target := newTestTarget()
	target.failReads = true
	dc := newTestContext(target, defaultMaxDumpSize)
	require.ErrorIs(t, dc.writeDump(), ErrReadFailed)
}

func TestWriteDumpQueryFailure(t *testing.T) {
	target := newTestTarget()
	target.failQuery = true
	dc := newTestContext(target, defaultMaxDumpSize)
	require.ErrorIs(t, dc.writeDump(), ErrAddressSpaceQueryFailed)
}

func TestWriteDumpNoModules(t *testing.T) {
	target := newTestTarget()
	target.noModules = true
	dc := newTestContext(target, defaultMaxDumpSize)
	require.ErrorIs(t, dc.writeDump(), ErrNoImportantModules)
}
