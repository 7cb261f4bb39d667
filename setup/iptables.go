package setup

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"gomape/mape"

	"github.com/rs/zerolog/log"
)

// natChain is the nat-table chain that owns every rule we add. Keeping them
// in one chain makes teardown a flush and delete instead of per-rule
// bookkeeping.
const natChain = "GOMAPE"

type ipTables struct {
	cmd string
}

func newIPTables() *ipTables {
	return &ipTables{cmd: "iptables"}
}

// snatRuleArgs builds the rule spec pinning outbound traffic on tunnel to
// one of the allowed external ranges. The kernel picks ports only from
// start-end, which is the whole point of MAP-E port sharing.
func snatRuleArgs(tunnel, proto string, ip net.IP, r mape.PortRange) []string {
	return []string{
		"-t", "nat", "-A", natChain,
		"-o", tunnel, "-p", proto,
		"-j", "SNAT", "--to-source", fmt.Sprintf("%s:%d-%d", ip, r.Start, r.End),
	}
}

func (fw *ipTables) install(ctx context.Context, p *mape.Params, tunnel string) error {
	if len(p.PortRanges) == 0 {
		return fmt.Errorf("no port ranges left to NAT with")
	}

	// Recreate the chain from scratch, rules from an earlier run would
	// otherwise stack up. -N fails harmlessly when the chain exists.
	_ = fw.exec(ctx, "-t", "nat", "-N", natChain)
	if err := fw.exec(ctx, "-t", "nat", "-F", natChain); err != nil {
		return err
	}

	for _, r := range p.PortRanges {
		for _, proto := range []string{"tcp", "udp"} {
			if err := fw.exec(ctx, snatRuleArgs(tunnel, proto, p.IPv4Addr, r)...); err != nil {
				return err
			}
		}
	}
	// ICMP has no ports and iptables refuses a port range for it; plain
	// SNAT to the shared address, the kernel picks the echo ids.
	if err := fw.exec(ctx, "-t", "nat", "-A", natChain,
		"-o", tunnel, "-p", "icmp",
		"-j", "SNAT", "--to-source", p.IPv4Addr.String()); err != nil {
		return err
	}

	// Hook the chain up last, so traffic never sees it half built.
	if err := fw.exec(ctx, "-t", "nat", "-C", "POSTROUTING", "-j", natChain); err == nil {
		return nil
	}
	return fw.exec(ctx, "-t", "nat", "-A", "POSTROUTING", "-j", natChain)
}

func (fw *ipTables) remove(ctx context.Context) error {
	// The jump has to go before the chain can be deleted. Any step may fail
	// if an earlier teardown got part way, keep going regardless.
	_ = fw.exec(ctx, "-t", "nat", "-D", "POSTROUTING", "-j", natChain)
	_ = fw.exec(ctx, "-t", "nat", "-F", natChain)
	_ = fw.exec(ctx, "-t", "nat", "-X", natChain)
	return nil
}

func (fw *ipTables) exec(ctx context.Context, args ...string) error {
	log.Debug().Msgf("%s %s", fw.cmd, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, fw.cmd, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %v: %v: %s", fw.cmd, args, err, out)
	}
	return nil
}
