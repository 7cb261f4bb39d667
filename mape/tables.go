package mape

import "net"

// Provisioning data for the supported providers. The two tables below are
// maintained in lockstep: every prefix pair in ipv4Prefixes must fall inside
// one of the borderRelays ranges, or derivation will fail halfway through.

type prefixKey struct {
	seg0, seg1 uint16
}

// ipv4Prefixes maps the first two segments of the customer address to the
// high half of the shared IPv4 address.
var ipv4Prefixes = map[prefixKey][2]byte{
	{0x2404, 0x7a80}: {133, 200},
	{0x2404, 0x7a84}: {133, 206},
	{0x240b, 0x0010}: {106, 72},
	{0x240b, 0x0011}: {106, 73},
	{0x240b, 0x0012}: {14, 8},
	{0x240b, 0x0250}: {14, 10},
	{0x240b, 0x0251}: {14, 11},
	{0x240b, 0x0252}: {14, 12},
	{0x240b, 0x0253}: {14, 13},
}

// brRange assigns one border relay to a run of /31-aligned prefixes.
// lo..hi is half-open over the 31-bit aligned value of the leading segments.
type brRange struct {
	lo, hi uint32
	addr   net.IP
}

var borderRelays = []brRange{
	{0x24047a80, 0x24047a84, net.ParseIP("2001:260:700:1::1:275")},
	{0x24047a84, 0x24047a88, net.ParseIP("2001:260:700:1::1:276")},
	{0x240b0010, 0x240b0014, net.ParseIP("2404:9200:225:100::64")},
	{0x240b0250, 0x240b0254, net.ParseIP("2404:9200:225:100::64")},
}
