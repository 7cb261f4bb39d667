package setup

import (
	"net"
	"testing"

	"gomape/mape"

	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	opts := Options{WAN: "eth0"}.withDefaults()
	require.Equal(t, "mape", opts.Tunnel)
	require.Equal(t, "eth0", opts.WAN)
	require.Equal(t, 1460, opts.MTU)

	opts = Options{Tunnel: "tun0", WAN: "ppp0", MTU: 1280}.withDefaults()
	require.Equal(t, "tun0", opts.Tunnel)
	require.Equal(t, 1280, opts.MTU)
}

func TestSnatRuleArgs(t *testing.T) {
	ip := net.ParseIP("133.200.1.2").To4()
	args := snatRuleArgs("mape", "tcp", ip, mape.PortRange{Start: 4176, End: 4191})
	require.Equal(t, []string{
		"-t", "nat", "-A", "GOMAPE",
		"-o", "mape", "-p", "tcp",
		"-j", "SNAT", "--to-source", "133.200.1.2:4176-4191",
	}, args)
}
