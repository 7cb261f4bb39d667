package mape

import "fmt"

// PortRange is an inclusive span of external ports.
type PortRange struct {
	Start, End uint16
}

func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// defaultPortRanges returns the 15 sixteen-port blocks psid owns, one per
// 4096-port block of the port space. Block 0 holds the well-known ports and
// is never handed out.
func defaultPortRanges(psid uint8) []PortRange {
	ranges := make([]PortRange, 0, 15)
	for i := uint16(1); i <= 15; i++ {
		start := i<<12 + uint16(psid)<<4
		ranges = append(ranges, PortRange{Start: start, End: start + 0xf})
	}
	return ranges
}

// excludePort removes port from whichever range contains it. A range can
// shrink, split in two, or disappear when it was one port wide. changed is
// false if no range held the port.
func excludePort(ranges []PortRange, port uint16) (out []PortRange, changed bool) {
	out = make([]PortRange, 0, len(ranges)+1)
	for _, r := range ranges {
		switch {
		case port == r.Start:
			changed = true
			if r.Start != r.End {
				out = append(out, PortRange{r.Start + 1, r.End})
			}
		case port == r.End:
			changed = true
			out = append(out, PortRange{r.Start, r.End - 1})
		case r.Start < port && port < r.End:
			changed = true
			out = append(out, PortRange{r.Start, port - 1}, PortRange{port + 1, r.End})
		default:
			out = append(out, r)
		}
	}
	return
}

// ExcludePort carves port out of the current range set, so NAT never maps
// it. The set is only replaced when the port was actually in a range;
// otherwise ErrPortNotInRange is returned and the set is left alone.
func (p *Params) ExcludePort(port uint16) error {
	out, changed := excludePort(p.PortRanges, port)
	if !changed {
		return fmt.Errorf("%w: %d", ErrPortNotInRange, port)
	}
	p.PortRanges = out
	return nil
}
