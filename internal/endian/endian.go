// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package endian holds the byte-order helpers shared by the SCT packages.
package endian

import "encoding/binary"

type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endianness) String() string {
	if e == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

func Swap16(x uint16) uint16 {
	return x<<8 | x>>8
}

func Swap32(x uint32) uint32 {
	return x>>24 | x>>8&0x0000ff00 | x<<8&0x00ff0000 | x<<24
}

// ReverseBitPairs turns AABBCCDD into DDCCBBAA
func ReverseBitPairs(x byte) byte {
	return x>>6 | x>>2&0x0c | x<<2&0x30 | x<<6
}
