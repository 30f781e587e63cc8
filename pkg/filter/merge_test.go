package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mainSettings(kv ...string) []ModuleParser {
	settings := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		settings[kv[i]] = kv[i+1]
	}
	return []ModuleParser{{Name: "main", Settings: settings}}
}

// TestMerge_S5_SupersetOverrideIsNotAConflict is scenario S5: P2 is more
// specific than P1 and P1 is a superset of P2, so P2's value wins with no
// conflict reported.
func TestMerge_S5_SupersetOverrideIsNotAConflict(t *testing.T) {
	p1 := &Parser{Filter: Filter{Service: "imap"}, Parsers: mainSettings("x", "A"), FileAndLine: "conf:1"}
	p2 := &Parser{
		Filter:      Filter{Service: "imap", RemoteNet: prefix("10.0.0.0/8")},
		Parsers:     mainSettings("x", "B"),
		FileAndLine: "conf:2",
	}

	query := Filter{Service: "imap", RemoteNet: prefix("10.1.2.3/32")}
	result := Find([]*Parser{p1, p2}, query)
	require.Len(t, result.Matches, 2)

	merged, err := Merge(context.Background(), nil, result.Matches)
	require.NoError(t, err)
	assert.Equal(t, "B", merged[0].Settings["x"])
}

// TestMerge_S6_NonSupersetConflict is scenario S6: neither filter is a
// superset of the other (one constrains local, the other remote), so a
// shared setting key is reported as a conflict.
func TestMerge_S6_NonSupersetConflict(t *testing.T) {
	p1 := &Parser{Filter: Filter{LocalNet: prefix("192.168.0.0/16")}, Parsers: mainSettings("x", "A"), FileAndLine: "conf:10"}
	p2 := &Parser{Filter: Filter{RemoteNet: prefix("10.0.0.0/8")}, Parsers: mainSettings("x", "B"), FileAndLine: "conf:20"}

	query := Filter{LocalNet: prefix("192.168.1.1/32"), RemoteNet: prefix("10.5.5.5/32")}
	result := Find([]*Parser{p1, p2}, query)
	require.Len(t, result.Matches, 2)

	_, err := Merge(context.Background(), nil, result.Matches)
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "x", conflict.Key)
	assert.Contains(t, err.Error(), "Conflict in setting x")
}

// TestMerge_Property8_SpecificityOrderIsStableUnderSupersetChains checks
// that, when every pair in the match set is superset-related, swapping
// the parsers' input order doesn't change the merged result.
func TestMerge_Property8_SpecificityOrderIsStableUnderSupersetChains(t *testing.T) {
	base := &Parser{Filter: Filter{Service: "imap"}, Parsers: mainSettings("x", "A"), FileAndLine: "conf:1"}
	mid := &Parser{
		Filter:      Filter{Service: "imap", RemoteNet: prefix("10.0.0.0/8")},
		Parsers:     mainSettings("x", "B"),
		FileAndLine: "conf:2",
	}
	specific := &Parser{
		Filter:      Filter{Service: "imap", RemoteNet: prefix("10.0.0.0/16")},
		Parsers:     mainSettings("x", "C"),
		FileAndLine: "conf:3",
	}
	query := Filter{Service: "imap", RemoteNet: prefix("10.0.1.1/32")}

	forward := Find([]*Parser{base, mid, specific}, query)
	merged1, err := Merge(context.Background(), nil, forward.Matches)
	require.NoError(t, err)

	reversed := Find([]*Parser{specific, mid, base}, query)
	merged2, err := Merge(context.Background(), nil, reversed.Matches)
	require.NoError(t, err)

	assert.Equal(t, "C", merged1[0].Settings["x"])
	assert.Equal(t, merged1[0].Settings["x"], merged2[0].Settings["x"])
}

// TestMerge_Property9_ConflictNamesTheKey covers property 9 directly.
func TestMerge_Property9_ConflictNamesTheKey(t *testing.T) {
	p1 := &Parser{Filter: Filter{LocalNet: prefix("192.168.0.0/16")}, Parsers: mainSettings("mail_location", "A"), FileAndLine: "conf:5"}
	p2 := &Parser{Filter: Filter{RemoteNet: prefix("10.0.0.0/8")}, Parsers: mainSettings("mail_location", "B"), FileAndLine: "conf:6"}
	query := Filter{LocalNet: prefix("192.168.1.1/32"), RemoteNet: prefix("10.5.5.5/32")}

	result := Find([]*Parser{p1, p2}, query)
	_, err := Merge(context.Background(), nil, result.Matches)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail_location")
}

func TestFind_NoMatchesReturnsEmpty(t *testing.T) {
	p1 := &Parser{Filter: Filter{Service: "imap"}}
	result := Find([]*Parser{p1}, Filter{Service: "pop3"})
	assert.Empty(t, result.Matches)
}

func TestFind_SpecificServicesOnlyWhenQueryServiceUnset(t *testing.T) {
	p1 := &Parser{Filter: Filter{Service: "imap"}, Parsers: mainSettings("x", "A")}
	p2 := &Parser{Filter: Filter{Service: "pop3"}, Parsers: mainSettings("x", "B")}

	withNoService := Find([]*Parser{p1, p2}, Filter{})
	assert.ElementsMatch(t, []string{"imap", "pop3"}, withNoService.SpecificServices)

	withService := Find([]*Parser{p1, p2}, Filter{Service: "imap"})
	assert.Empty(t, withService.SpecificServices)
}

func TestFind_UsedLocalAndRemoteFlags(t *testing.T) {
	p1 := &Parser{Filter: Filter{RemoteNet: prefix("10.0.0.0/8")}}
	result := Find([]*Parser{p1}, Filter{RemoteNet: prefix("10.1.1.1/32")})
	assert.True(t, result.UsedRemote)
	assert.False(t, result.UsedLocal)
	assert.True(t, result.ServiceUsesRemote)
}

func TestMerge_EmptyMatchesIsNoop(t *testing.T) {
	merged, err := Merge(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, merged)
}

func TestMerge_NonConflictingKeysInSameModuleDontCollide(t *testing.T) {
	p1 := &Parser{Filter: Filter{Service: "imap"}, Parsers: mainSettings("x", "A")}
	p2 := &Parser{
		Filter:  Filter{Service: "imap", RemoteNet: prefix("10.0.0.0/8")},
		Parsers: []ModuleParser{{Name: "main", Settings: map[string]string{"y": "Z"}}},
	}
	query := Filter{Service: "imap", RemoteNet: prefix("10.1.1.1/32")}

	result := Find([]*Parser{p1, p2}, query)
	merged, err := Merge(context.Background(), nil, result.Matches)
	require.NoError(t, err)
	assert.Equal(t, "A", merged[0].Settings["x"])
	assert.Equal(t, "Z", merged[0].Settings["y"])
}
