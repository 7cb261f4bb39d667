package common

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Segments splits a 16-byte IPv6 address into its 8 big-endian segments.
func Segments(ip net.IP) (segs [8]uint16) {
	if len(ip) != 16 {
		panic(fmt.Sprintf("IPV6 only. %s", ip))
	}
	for i := range segs {
		segs[i] = binary.BigEndian.Uint16(ip[2*i:])
	}
	return
}

// FromSegments is the inverse of Segments.
func FromSegments(segs [8]uint16) net.IP {
	ip := make(net.IP, 16)
	for i, s := range segs {
		binary.BigEndian.PutUint16(ip[2*i:], s)
	}
	return ip
}
