package filter

import "strings"

// Matches reports whether query satisfies mask, per spec.md §4.5:
// service equality/negation, then local_name, then CIDR containment.
func Matches(mask, query Filter) bool {
	if !matchesService(mask, query) {
		return false
	}
	return matchesRest(mask, query)
}

func matchesService(mask, query Filter) bool {
	if mask.Service == "" {
		return true
	}
	if query.Service == "" {
		return false
	}
	if strings.HasPrefix(mask.Service, "!") {
		return query.Service != mask.Service[1:]
	}
	return query.Service == mask.Service
}

// matchesRest checks everything but service: local_name, then remote and
// local CIDR containment, in that order (mirrors config_filter_match_rest).
func matchesRest(mask, query Filter) bool {
	if mask.LocalName != "" {
		if query.LocalName == "" {
			return false
		}
		if !matchLocalName(mask.LocalName, query.LocalName) {
			return false
		}
	}
	if netBits(mask.RemoteNet) != 0 {
		if netBits(query.RemoteNet) == 0 {
			return false
		}
		if !prefixContains(mask.RemoteNet, query.RemoteNet) {
			return false
		}
	}
	if netBits(mask.LocalNet) != 0 {
		if netBits(query.LocalNet) == 0 {
			return false
		}
		if !prefixContains(mask.LocalNet, query.LocalNet) {
			return false
		}
	}
	return true
}

// matchLocalName splits mask's space-separated token list and reports
// whether any token matches name via DNS wildcard.
func matchLocalName(maskNames, name string) bool {
	for _, token := range strings.Fields(maskNames) {
		if dnsMatchWildcard(token, name) {
			return true
		}
	}
	return false
}

// dnsMatchWildcard matches name against pattern, where a leading "*."
// matches any single- or multi-label prefix (unlike a TLS certificate
// wildcard, which matches exactly one label).
func dnsMatchWildcard(pattern, name string) bool {
	pattern = strings.ToLower(pattern)
	name = strings.ToLower(name)
	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(name, "."+rest)
	}
	return name == pattern
}
