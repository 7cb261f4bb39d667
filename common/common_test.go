package common

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegments(t *testing.T) {
	ip := net.ParseIP("2404:7a80:102:500:85:c801:200:500")
	segs := Segments(ip)
	require.Equal(t, [8]uint16{0x2404, 0x7a80, 0x0102, 0x0500, 0x0085, 0xc801, 0x0200, 0x0500}, segs)
	require.Equal(t, ip, FromSegments(segs))

	require.Panics(t, func() { Segments(net.IP{1, 2, 3, 4}) })
}

func TestParseServices(t *testing.T) {
	data := []byte(`# Network services, Internet style
ssh		22/tcp
domain		53/tcp		# Domain Name Server
domain		53/udp
http		80/tcp		www		# WorldWideWeb HTTP
bad-line
bad-port	x/tcp
`)
	services := ParseServices(data)
	require.Len(t, services, 4)

	ssh := GetServByName(services, "ssh")
	require.NotNil(t, ssh)
	require.Equal(t, uint16(22), ssh.Port)
	require.Equal(t, "tcp", ssh.Protocol)

	www := GetServByName(services, "www")
	require.NotNil(t, www)
	require.Equal(t, uint16(80), www.Port)

	require.Nil(t, GetServByName(services, "gopher"))
}

func TestResolvePort(t *testing.T) {
	services := ParseServices([]byte("ssh 22/tcp\n"))

	port, err := ResolvePort(services, "4176")
	require.Nil(t, err)
	require.Equal(t, uint16(4176), port)

	port, err = ResolvePort(services, "ssh")
	require.Nil(t, err)
	require.Equal(t, uint16(22), port)

	_, err = ResolvePort(services, "gopher")
	require.ErrorIs(t, err, ErrUnknownService)

	_, err = ResolvePort(nil, "70000")
	require.ErrorIs(t, err, ErrUnknownService)
}
