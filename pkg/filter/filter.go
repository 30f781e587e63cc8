// Package filter matches configuration filter parsers against a request
// filter and merges their per-module setting changes, resolving conflicts
// by specificity. It is the Go analogue of Dovecot's config-filter.c.
package filter

import "net/netip"

// Filter is both a match mask (on a Parser) and a concrete query (the
// context of a request): the zero value of every field means "unset".
// A leading '!' on Service means "not equal to".
type Filter struct {
	Service   string
	LocalName string // space-separated DNS wildcard patterns
	LocalNet  netip.Prefix
	RemoteNet netip.Prefix
}

// Mask and Query are the same shape under different names, matching the
// two roles a Filter plays: the match criteria carried by a Parser, and
// the concrete request being matched against it.
type Mask = Filter
type Query = Filter

// ModuleParser holds one named module's settings as touched by a single
// Parser. Settings is nil when this Parser doesn't touch the module.
type ModuleParser struct {
	Name     string
	Settings map[string]string
}

// Parser is a filter mask plus the ordered per-module settings it
// contributes, and its origin for diagnostics.
type Parser struct {
	Filter      Filter
	Parsers     []ModuleParser
	FileAndLine string
}

// netBits reports the prefix length of p, treating an unset/invalid
// prefix as bits == 0 -- the sentinel this package uses for "no CIDR
// constraint", per the low-bits-ignored convention below.
func netBits(p netip.Prefix) int {
	if !p.IsValid() {
		return 0
	}
	bits := p.Bits()
	if bits < 0 {
		return 0
	}
	return bits
}

// prefixContains reports whether candidate's address falls within mask's
// network. Two masks with equal bits but differing low bits are treated
// as equal: mask is re-masked to its own prefix length before the
// containment check, ignoring any address bits beyond it.
func prefixContains(mask, candidate netip.Prefix) bool {
	network := mask.Masked()
	return network.Contains(candidate.Addr())
}
