/*
Package mape derives MAP-E (RFC 7597) tunnel parameters from a customer IPv6
address: the shared IPv4 address, the PSID, the CE tunnel endpoint address,
the border relay to tunnel toward, and the external port ranges this
customer is allowed to source from.
*/
package mape

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"gomape/common"
)

var (
	ErrNotIPv6            = errors.New("not an ipv6 address")
	ErrUnknownPrefix      = errors.New("unknown prefix")
	ErrUnrecognizedPrefix = errors.New("unrecognized prefix")
	ErrPortNotInRange     = errors.New("port not in any range")
)

// Params is the full MAP-E parameter set for one customer address.
// Everything is fixed at derivation time except PortRanges, which shrinks as
// the caller excludes ports.
type Params struct {
	Addr       net.IP
	IPv4Addr   net.IP
	BRAddr     net.IP
	EdgeAddr   net.IP
	PSID       uint8
	PortRanges []PortRange
}

// Calculate derives the parameter set for addr. It either returns the whole
// set or fails - a prefix the tables don't know never produces a partial
// result.
func Calculate(addr net.IP) (*Params, error) {
	ip := addr.To16()
	if ip == nil || addr.To4() != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotIPv6, addr)
	}
	segs := common.Segments(ip)
	prefix, ok := ipv4Prefixes[prefixKey{segs[0], segs[1]}]
	if !ok {
		return nil, fmt.Errorf("%w: %x:%x", ErrUnknownPrefix, segs[0], segs[1])
	}

	psid := ip[6]
	// Low half of the v4 address rides in the address's third segment.
	ipv4 := net.IPv4(prefix[0], prefix[1], ip[4], ip[5]).To4()

	prefix31 := uint32(segs[0])<<16 | uint32(segs[1]&0xfffe)
	br, err := borderRelay(prefix31)
	if err != nil {
		return nil, err
	}

	return &Params{
		Addr:       addr,
		IPv4Addr:   ipv4,
		BRAddr:     br,
		EdgeAddr:   edgeAddr(segs, ipv4, psid),
		PSID:       psid,
		PortRanges: defaultPortRanges(psid),
	}, nil
}

// edgeAddr packs the derived v4 address and PSID into the CE interface
// identifier. The byte placements follow the provider convention, including
// the doubled-up use of the third and fourth v4 octets - the BR expects
// exactly this layout, do not tidy it up.
func edgeAddr(segs [8]uint16, ipv4 net.IP, psid uint8) net.IP {
	return common.FromSegments([8]uint16{
		segs[0],
		segs[1],
		uint16(ipv4[2])<<8 | uint16(ipv4[3]),
		uint16(psid) << 8,
		uint16(ipv4[0]),
		uint16(ipv4[1])<<8 | uint16(ipv4[2]),
		uint16(ipv4[3]) << 8,
		uint16(psid) << 8,
	})
}

// borderRelay picks the BR serving the /31-aligned prefix value.
func borderRelay(prefix31 uint32) (net.IP, error) {
	for _, r := range borderRelays {
		if prefix31 >= r.lo && prefix31 < r.hi {
			return r.addr, nil
		}
	}
	return nil, fmt.Errorf("%w: %#x", ErrUnrecognizedPrefix, prefix31)
}

func (p *Params) String() string {
	rs := make([]string, 0, len(p.PortRanges))
	for _, r := range p.PortRanges {
		rs = append(rs, r.String())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "IPv4 Addr (CE IPv4 Address): %s\n", p.IPv4Addr)
	fmt.Fprintf(&b, "CE IPv6 Addr: %s\n", p.EdgeAddr)
	fmt.Fprintf(&b, "Port Ranges: %s\n", strings.Join(rs, ", "))
	fmt.Fprintf(&b, "PSID: %d\n", p.PSID)
	fmt.Fprintf(&b, "Border Relay Address (BR Address): %s", p.BRAddr)
	return b.String()
}
