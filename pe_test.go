package picodump

import (
	"encoding/binary"
	"testing"
)

// makePEPage builds the first page of a minimal mapped image with the given
// optional-header fields.
func makePEPage(sizeOfImage, checksum, timestamp uint32) []byte {
	page := make([]byte, 0x1000)
	binary.LittleEndian.PutUint16(page[0:], imageDOSSignature)
	binary.LittleEndian.PutUint32(page[0x3c:], 0x100)
	binary.LittleEndian.PutUint32(page[0x100:], imageNTSignature)
	binary.LittleEndian.PutUint32(page[0x108:], timestamp)
	optional := 0x100 + 24
	binary.LittleEndian.PutUint32(page[optional+56:], sizeOfImage)
	binary.LittleEndian.PutUint32(page[optional+64:], checksum)
	return page
}

func TestParsePEHeader(t *testing.T) {
	page := makePEPage(0x2a000, 0x30f9c, 0x61514171)
	pe, err := parsePEHeader(page)
	if err != nil {
		t.Fatal(err)
	}
	if pe.SizeOfImage != 0x2a000 || pe.CheckSum != 0x30f9c || pe.TimeDateStamp != 0x61514171 {
		t.Fatalf("unexpected header fields: %+v", pe)
	}
}

func TestParsePEHeaderRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":            {},
		"short":            make([]byte, 0x20),
		"bad dos magic":    make([]byte, 0x1000),
		"nt out of bounds": func() []byte {
			b := make([]byte, 0x1000)
			binary.LittleEndian.PutUint16(b[0:], imageDOSSignature)
			binary.LittleEndian.PutUint32(b[0x3c:], 0xff00)
			return b
		}(),
		"bad nt magic": func() []byte {
			b := make([]byte, 0x1000)
			binary.LittleEndian.PutUint16(b[0:], imageDOSSignature)
			binary.LittleEndian.PutUint32(b[0x3c:], 0x100)
			return b
		}(),
	}
	for name, page := range cases {
		if _, err := parsePEHeader(page); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
