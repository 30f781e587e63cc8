package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// MatchResult is everything Find observes about a query's matches,
// exposed to the caller per spec.md §6.
type MatchResult struct {
	// Matches is sorted ascending-specificity: least specific first,
	// the order Merge expects to apply them in.
	Matches []*Parser

	ServiceUsesLocal  bool
	ServiceUsesRemote bool
	UsedLocal         bool
	UsedRemote        bool

	// SpecificServices lists services seen on masks that were excluded
	// from Matches only by a service mismatch. Populated only when
	// query.Service == "".
	SpecificServices []string
}

// Find scans parsers, collecting every one whose mask matches query (via
// Matches), and reports the dimensions those matches touched.
func Find(parsers []*Parser, query Filter) *MatchResult {
	result := &MatchResult{}
	seenServices := make(map[string]bool)

	var matched []*Parser
	for _, p := range parsers {
		mask := p.Filter
		if !matchesService(mask, query) {
			if query.Service == "" && mask.Service != "" && !seenServices[mask.Service] && parserHasChanges(p) {
				seenServices[mask.Service] = true
				result.SpecificServices = append(result.SpecificServices, mask.Service)
			}
			continue
		}

		usesLocal := mask.LocalName != "" || netBits(mask.LocalNet) > 0
		usesRemote := netBits(mask.RemoteNet) > 0
		if usesLocal {
			result.ServiceUsesLocal = true
		}
		if usesRemote {
			result.ServiceUsesRemote = true
		}

		if !matchesRest(mask, query) {
			continue
		}
		if usesLocal {
			result.UsedLocal = true
		}
		if usesRemote {
			result.UsedRemote = true
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return moreSpecific(matched[i].Filter, matched[j].Filter) < 0
	})
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	result.Matches = matched
	return result
}

func parserHasChanges(p *Parser) bool {
	for _, m := range p.Parsers {
		if len(m.Settings) > 0 {
			return true
		}
	}
	return false
}

// moreSpecific orders filters by descending specificity: negative means a
// is more specific than b. Local_name constraints rank first, then
// local_bits descending, then remote_bits descending, then a service
// constraint beats none.
func moreSpecific(a, b Filter) int {
	if (a.LocalName != "") != (b.LocalName != "") {
		if a.LocalName != "" {
			return -1
		}
		return 1
	}

	if ab, bb := netBits(a.LocalNet), netBits(b.LocalNet); ab != bb {
		if ab > bb {
			return -1
		}
		return 1
	}

	if ab, bb := netBits(a.RemoteNet), netBits(b.RemoteNet); ab != bb {
		if ab > bb {
			return -1
		}
		return 1
	}

	if (a.Service != "") != (b.Service != "") {
		if a.Service != "" {
			return -1
		}
		return 1
	}
	return 0
}

// isSuperset reports whether sup's constraints are weakly looser than
// sub's on every dimension: sup.LocalBits <= sub.LocalBits,
// sup.RemoteBits <= sub.RemoteBits, and sup doesn't constrain
// local_name/service unless sub does too.
//
// Per the source's ambiguous diagnostic branch, this is strict: it
// returns false rather than matching when sup constrains local_name and
// sub doesn't. Merge logs that case at debug level instead.
func isSuperset(sup, sub Filter) bool {
	if netBits(sup.LocalNet) > netBits(sub.LocalNet) {
		return false
	}
	if netBits(sup.RemoteNet) > netBits(sub.RemoteNet) {
		return false
	}
	if sup.LocalName != "" && sub.LocalName == "" {
		return false
	}
	if sup.Service != "" && sub.Service == "" {
		return false
	}
	return true
}

// ConflictError is returned by Merge when two non-superset-related
// matches both change the same setting key.
type ConflictError struct {
	Key         string
	FileAndLine string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Conflict in setting %s found from filter at %s", e.Key, e.FileAndLine)
}

// Merge applies matches (ascending specificity, as returned by Find) onto
// a base copy of the least-specific match's settings, per spec.md §4.6.
// Each subsequent, more specific match overrides the destination; a
// conflicting key is only an error when the previous, less-specific match
// isn't a superset of the current one.
func Merge(ctx context.Context, logger *slog.Logger, matches []*Parser) ([]ModuleParser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(matches) == 0 {
		return nil, nil
	}

	dest := cloneModuleParsers(matches[0].Parsers)
	for i := 1; i < len(matches); i++ {
		prev, cur := matches[i-1].Filter, matches[i].Filter
		permissive := isSuperset(prev, cur)
		if !permissive && prev.LocalName != "" && cur.LocalName == "" {
			logger.DebugContext(ctx, "filter is not a superset: local_name constraint unmatched",
				"local_name", prev.LocalName)
		}

		var err error
		dest, err = applyChanges(dest, matches[i], permissive)
		if err != nil {
			return nil, err
		}
	}
	return dest, nil
}

// applyChanges merges src's per-module settings onto dest, in place of
// settings_parser_apply_changes. When permissive is false, a key already
// set in dest to a different value is reported as a conflict; otherwise
// src's value always wins (it is the more specific match).
func applyChanges(dest []ModuleParser, src *Parser, permissive bool) ([]ModuleParser, error) {
	for _, sm := range src.Parsers {
		idx := -1
		for i := range dest {
			if dest[i].Name == sm.Name {
				idx = i
				break
			}
		}
		if idx == -1 {
			dest = append(dest, ModuleParser{Name: sm.Name, Settings: cloneSettings(sm.Settings)})
			continue
		}

		if dest[idx].Settings == nil {
			dest[idx].Settings = make(map[string]string)
		}
		for k, v := range sm.Settings {
			if existing, ok := dest[idx].Settings[k]; ok && existing != v && !permissive {
				return nil, &ConflictError{Key: k, FileAndLine: src.FileAndLine}
			}
			dest[idx].Settings[k] = v
		}
	}
	return dest, nil
}

func cloneModuleParsers(src []ModuleParser) []ModuleParser {
	dest := make([]ModuleParser, len(src))
	for i, m := range src {
		dest[i] = ModuleParser{Name: m.Name, Settings: cloneSettings(m.Settings)}
	}
	return dest
}

func cloneSettings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dest := make(map[string]string, len(src))
	for k, v := range src {
		dest[k] = v
	}
	return dest
}
