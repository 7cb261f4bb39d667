package setup

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"
)

const protocolIPv6ICMP = 58

// Check sends one ICMPv6 echo request to the border relay and waits for the
// reply. A reachable BR is a good sign the provisioning data still matches
// reality. Needs the same privileges as Apply.
func Check(ctx context.Context, br net.IP, timeout time.Duration) error {
	conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
	if err != nil {
		return fmt.Errorf("open icmpv6 socket: %w", err)
	}
	defer conn.Close()

	msg := icmp.Message{
		Type: ipv6.ICMPTypeEchoRequest,
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: 1, Data: []byte("gomape")},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(wire, &net.IPAddr{IP: br}); err != nil {
		return fmt.Errorf("send echo request to %s: %w", br, err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("no reply from %s: %w", br, err)
		}
		reply, err := icmp.ParseMessage(protocolIPv6ICMP, buf[:n])
		if err != nil {
			log.Debug().Err(err).Msgf("Ignoring unparseable ICMPv6 packet from %s", peer)
			continue
		}
		if reply.Type == ipv6.ICMPTypeEchoReply {
			log.Info().Msgf("Border relay %s reachable (reply from %s)", br, peer)
			return nil
		}
		// Something else on the raw socket (NDP and friends), keep waiting.
	}
}
