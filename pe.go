package picodump

import (
	"encoding/binary"
	"errors"
)

const (
	imageDOSSignature uint16 = 0x5a4d     // "MZ"
	imageNTSignature  uint32 = 0x00004550 // "PE\0\0"
)

var errBadImage = errors.New("not a PE image")

// peInfo is the slice of the PE headers the module records need.
type peInfo struct {
	TimeDateStamp uint32
	CheckSum      uint32
	SizeOfImage   uint32
}

// parsePEHeader recovers timestamp, checksum and image size from the first
// page of a mapped image. The offsets are fixed by the format: the COFF
// header follows the NT signature, the optional header follows the COFF
// header.
func parsePEHeader(b []byte) (*peInfo, error) {
	if len(b) < 0x40 || binary.LittleEndian.Uint16(b[0:2]) != imageDOSSignature {
		return nil, errBadImage
	}
	ntOffset := binary.LittleEndian.Uint32(b[0x3c:])
	if int(ntOffset)+24+68 > len(b) {
		return nil, errBadImage
	}
	if binary.LittleEndian.Uint32(b[ntOffset:]) != imageNTSignature {
		return nil, errBadImage
	}
	optional := ntOffset + 24
	return &peInfo{
		TimeDateStamp: binary.LittleEndian.Uint32(b[ntOffset+8:]),
		SizeOfImage:   binary.LittleEndian.Uint32(b[optional+56:]),
		CheckSum:      binary.LittleEndian.Uint32(b[optional+64:]),
	}, nil
}
