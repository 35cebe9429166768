// Package addrrange turns a CIDR block or an address/mask pair into an
// enumerable IPv4 address range.
//
// A Range is described per octet: each of the four octets spans an
// inclusive interval starting at the network octet and covering
// 255 XOR mask octet further values. The cartesian product of the four
// intervals is every address in the block, network and broadcast included.
package addrrange

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// ErrInvalidInput is returned for malformed addresses, masks and prefixes.
var ErrInvalidInput = errors.New("invalid input")

// Interval is an inclusive range of octet values.
type Interval struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Len returns the number of values in the interval.
func (i Interval) Len() int {
	return i.Hi - i.Lo + 1
}

// Range is an IPv4 address block described by its network address and mask.
type Range struct {
	Network [4]uint8
	Mask    [4]uint8
}

// Parse builds a Range from either CIDR notation (mask empty) or an
// explicit dotted address and dotted mask.
func Parse(spec, mask string) (Range, error) {
	spec = strings.TrimSpace(spec)
	mask = strings.TrimSpace(mask)
	if spec == "" {
		return Range{}, fmt.Errorf("%w: no address given", ErrInvalidInput)
	}

	var (
		r   Range
		err error
	)
	if mask == "" {
		addr, prefix, ok := strings.Cut(spec, "/")
		if !ok || strings.Contains(prefix, "/") {
			return Range{}, fmt.Errorf("%w: %q is not in address/prefix notation", ErrInvalidInput, spec)
		}
		n, convErr := atoiDigits(prefix)
		if convErr != nil {
			return Range{}, fmt.Errorf("%w: prefix %q is not an integer", ErrInvalidInput, prefix)
		}
		if r.Mask, err = MaskFromPrefix(n); err != nil {
			return Range{}, err
		}
		spec = addr
	} else {
		if r.Mask, err = parseQuad(mask); err != nil {
			return Range{}, fmt.Errorf("mask: %w", err)
		}
	}

	addr, err := parseQuad(spec)
	if err != nil {
		return Range{}, fmt.Errorf("address: %w", err)
	}
	for i := range addr {
		r.Network[i] = addr[i] & r.Mask[i]
	}
	if err := r.validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// FromIntervals rebuilds a Range from its per-octet intervals.
func FromIntervals(iv [4]Interval) (Range, error) {
	var r Range
	for i, v := range iv {
		span := v.Hi - v.Lo
		if v.Lo < 0 || v.Lo > 255 || span < 0 || span > 255 {
			return Range{}, fmt.Errorf("%w: interval %d [%d,%d] out of bounds", ErrInvalidInput, i, v.Lo, v.Hi)
		}
		r.Network[i] = uint8(v.Lo)
		r.Mask[i] = uint8(255 ^ span)
	}
	if err := r.validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// MaskFromPrefix converts a CIDR prefix length to a dotted mask.
func MaskFromPrefix(prefix int) ([4]uint8, error) {
	var m [4]uint8
	if prefix < 0 || prefix > 32 {
		return m, fmt.Errorf("%w: prefix /%d outside 0-32", ErrInvalidInput, prefix)
	}
	full, rem := prefix/8, prefix%8
	for i := 0; i < full; i++ {
		m[i] = 255
	}
	if full < 4 {
		m[full] = 0xff << (8 - rem)
	}
	return m, nil
}

// Intervals returns the per-octet enumeration intervals.
func (r Range) Intervals() [4]Interval {
	var iv [4]Interval
	for i := range r.Network {
		lo := int(r.Network[i])
		iv[i] = Interval{Lo: lo, Hi: lo + int(255^r.Mask[i])}
	}
	return iv
}

// Size is the number of addresses in the block, network and broadcast included.
func (r Range) Size() int {
	n := 1
	for _, iv := range r.Intervals() {
		n *= iv.Len()
	}
	return n
}

// HostCount is the number of usable host addresses.
func (r Range) HostCount() int {
	return r.Size() - 2
}

// Hosts yields every usable host address in enumeration order, skipping
// the network and broadcast addresses.
func (r Range) Hosts() iter.Seq[string] {
	iv := r.Intervals()
	last := r.Size() - 1
	return func(yield func(string) bool) {
		n := 0
		for a := iv[0].Lo; a <= iv[0].Hi; a++ {
			for b := iv[1].Lo; b <= iv[1].Hi; b++ {
				for c := iv[2].Lo; c <= iv[2].Hi; c++ {
					for d := iv[3].Lo; d <= iv[3].Hi; d++ {
						if n != 0 && n != last {
							if !yield(formatQuad(a, b, c, d)) {
								return
							}
						}
						n++
					}
				}
			}
		}
	}
}

// Addresses collects Hosts into a slice.
func (r Range) Addresses() []string {
	out := make([]string, 0, min(max(r.HostCount(), 0), 1<<16))
	for addr := range r.Hosts() {
		out = append(out, addr)
	}
	return out
}

// Prefix returns the prefix length and whether the mask is contiguous.
func (r Range) Prefix() (int, bool) {
	bits := 0
	seenZero := false
	for _, o := range r.Mask {
		for i := 7; i >= 0; i-- {
			if o&(1<<i) != 0 {
				if seenZero {
					return 0, false
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	return bits, true
}

// CIDR renders the range as address/prefix, falling back to String for
// non-contiguous masks.
func (r Range) CIDR() string {
	if p, ok := r.Prefix(); ok {
		return fmt.Sprintf("%s/%d", quadString(r.Network), p)
	}
	return r.String()
}

// Addr returns the network address in dotted form.
func (r Range) Addr() string {
	return quadString(r.Network)
}

// Netmask returns the mask in dotted form.
func (r Range) Netmask() string {
	return quadString(r.Mask)
}

// String renders the range as address/dotted-mask.
func (r Range) String() string {
	return quadString(r.Network) + "/" + quadString(r.Mask)
}

// validate rejects blocks whose network octets are not aligned to the mask
// and blocks without usable hosts (/31, /32).
func (r Range) validate() error {
	for i := range r.Network {
		if r.Network[i]&r.Mask[i] != r.Network[i] {
			return fmt.Errorf("%w: octet %d of %s is not aligned to mask %s",
				ErrInvalidInput, i+1, quadString(r.Network), quadString(r.Mask))
		}
	}
	if r.HostCount() < 1 {
		return fmt.Errorf("%w: %s has no usable host addresses", ErrInvalidInput, r)
	}
	return nil
}

func parseQuad(s string) ([4]uint8, error) {
	var q [4]uint8
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return q, fmt.Errorf("%w: %q is not a dotted quad", ErrInvalidInput, s)
	}
	for i, p := range parts {
		v, err := atoiDigits(p)
		if err != nil || v > 255 {
			return q, fmt.Errorf("%w: octet %q in %q is not 0-255", ErrInvalidInput, p, s)
		}
		q[i] = uint8(v)
	}
	return q, nil
}

// atoiDigits parses an unsigned decimal. Unlike strconv.Atoi it rejects
// signs and empty input.
func atoiDigits(s string) (int, error) {
	if s == "" || len(s) > 3 {
		return 0, strconv.ErrSyntax
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func quadString(q [4]uint8) string {
	return formatQuad(int(q[0]), int(q[1]), int(q[2]), int(q[3]))
}

func formatQuad(a, b, c, d int) string {
	return strconv.Itoa(a) + "." + strconv.Itoa(b) + "." + strconv.Itoa(c) + "." + strconv.Itoa(d)
}
