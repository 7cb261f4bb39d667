/*
Package setup applies a derived MAP-E parameter set to the running system:
an ip4ip6 tunnel toward the border relay, the CE address on the WAN device,
a default IPv4 route through the tunnel, and one SNAT rule per allowed port
range. It needs root, everything in here talks to the kernel.
*/
package setup

import (
	"context"
	"fmt"
	"net"

	"gomape/mape"

	"github.com/rs/zerolog/log"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Options selects the device names used on the way up and down.
type Options struct {
	Tunnel string `yaml:"name"`
	WAN    string `yaml:"wan"`
	MTU    int    `yaml:"mtu"`
}

func (o Options) withDefaults() Options {
	if o.Tunnel == "" {
		o.Tunnel = "mape"
	}
	if o.MTU == 0 {
		// 1500 minus the 40 byte outer IPv6 header.
		o.MTU = 1460
	}
	return o
}

// Apply brings the tunnel up for p. It is safe to run again after a config
// change; a tunnel left over from an earlier run is replaced.
func Apply(ctx context.Context, p *mape.Params, opts Options) error {
	opts = opts.withDefaults()
	wan, err := netlink.LinkByName(opts.WAN)
	if err != nil {
		return fmt.Errorf("wan device %s: %w", opts.WAN, err)
	}

	// The CE address lives on the WAN device, the BR routes the outer v6
	// packets there.
	ceAddr := &netlink.Addr{IPNet: &net.IPNet{IP: p.EdgeAddr, Mask: net.CIDRMask(64, 128)}}
	if err := netlink.AddrReplace(wan, ceAddr); err != nil {
		return fmt.Errorf("add ce address %s: %w", p.EdgeAddr, err)
	}

	if stale, err := netlink.LinkByName(opts.Tunnel); err == nil {
		log.Debug().Msgf("Removing stale tunnel %s", opts.Tunnel)
		if err := netlink.LinkDel(stale); err != nil {
			return fmt.Errorf("remove stale tunnel %s: %w", opts.Tunnel, err)
		}
	}
	tun := &netlink.Ip6tnl{
		LinkAttrs: netlink.LinkAttrs{Name: opts.Tunnel, MTU: opts.MTU},
		Local:     p.EdgeAddr,
		Remote:    p.BRAddr,
		Proto:     unix.IPPROTO_IPIP,
		Ttl:       64,
	}
	if err := netlink.LinkAdd(tun); err != nil {
		return fmt.Errorf("create tunnel %s: %w", opts.Tunnel, err)
	}
	link, err := netlink.LinkByName(opts.Tunnel)
	if err != nil {
		return fmt.Errorf("tunnel %s vanished after creation: %w", opts.Tunnel, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("tunnel %s up: %w", opts.Tunnel, err)
	}

	// The tunnel carries our share of the public v4 address.
	v4Addr := &netlink.Addr{IPNet: &net.IPNet{IP: p.IPv4Addr, Mask: net.CIDRMask(32, 32)}}
	if err := netlink.AddrReplace(link, v4Addr); err != nil {
		return fmt.Errorf("add v4 address %s: %w", p.IPv4Addr, err)
	}

	defaultRoute := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst:       &net.IPNet{IP: net.IPv4zero, Mask: net.CIDRMask(0, 32)},
		Scope:     netlink.SCOPE_LINK,
		Protocol:  unix.RTPROT_STATIC,
	}
	if err := netlink.RouteReplace(defaultRoute); err != nil {
		return fmt.Errorf("default route via %s: %w", opts.Tunnel, err)
	}

	log.Info().Msgf("Tunnel %s up: local %s remote %s, v4 %s", opts.Tunnel, p.EdgeAddr, p.BRAddr, p.IPv4Addr)
	return newIPTables().install(ctx, p, opts.Tunnel)
}

// Destroy undoes Apply. Pieces that are already gone are skipped, so it is
// safe to run after a partial setup.
func Destroy(ctx context.Context, p *mape.Params, opts Options) error {
	opts = opts.withDefaults()
	if err := newIPTables().remove(ctx); err != nil {
		return err
	}

	if wan, err := netlink.LinkByName(opts.WAN); err == nil {
		ceAddr := &netlink.Addr{IPNet: &net.IPNet{IP: p.EdgeAddr, Mask: net.CIDRMask(64, 128)}}
		if err := netlink.AddrDel(wan, ceAddr); err != nil {
			log.Debug().Err(err).Msgf("CE address %s already gone from %s", p.EdgeAddr, opts.WAN)
		}
	}

	link, err := netlink.LinkByName(opts.Tunnel)
	if err != nil {
		log.Debug().Msgf("Tunnel %s not present, nothing to remove", opts.Tunnel)
		return nil
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("remove tunnel %s: %w", opts.Tunnel, err)
	}
	log.Info().Msgf("Tunnel %s removed", opts.Tunnel)
	return nil
}
