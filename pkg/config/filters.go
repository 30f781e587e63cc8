package config

import (
	"fmt"
	"net/netip"

	"github.com/marmos91/mailidx/pkg/filter"
)

// FilterConfig is one config_filter block: a match mask plus the setting
// overrides it contributes, as loaded from YAML.
type FilterConfig struct {
	Service   string `mapstructure:"service" yaml:"service"`
	LocalName string `mapstructure:"local_name" yaml:"local_name"`
	LocalNet  string `mapstructure:"local_net" yaml:"local_net"`
	RemoteNet string `mapstructure:"remote_net" yaml:"remote_net"`

	Settings map[string]string `mapstructure:"settings" yaml:"settings"`

	// FileAndLine identifies this block's origin for conflict
	// diagnostics. Viper/mapstructure don't expose YAML node positions,
	// so this is either set explicitly in the block or synthesized by
	// BuildParsers from the block's position in the file.
	FileAndLine string `mapstructure:"file_and_line" yaml:"file_and_line,omitempty"`
}

func (f FilterConfig) buildFilter() (filter.Filter, error) {
	out := filter.Filter{Service: f.Service, LocalName: f.LocalName}

	if f.LocalNet != "" {
		p, err := netip.ParsePrefix(f.LocalNet)
		if err != nil {
			return filter.Filter{}, fmt.Errorf("local_net: %w", err)
		}
		out.LocalNet = p
	}
	if f.RemoteNet != "" {
		p, err := netip.ParsePrefix(f.RemoteNet)
		if err != nil {
			return filter.Filter{}, fmt.Errorf("remote_net: %w", err)
		}
		out.RemoteNet = p
	}
	return out, nil
}

// BuildParsers converts config_filter blocks into filter.Parser values
// ready for filter.Find/filter.Merge.
func BuildParsers(path string, blocks []FilterConfig) ([]*filter.Parser, error) {
	parsers := make([]*filter.Parser, 0, len(blocks))
	for i, b := range blocks {
		mask, err := b.buildFilter()
		if err != nil {
			return nil, fmt.Errorf("config_filter[%d]: %w", i, err)
		}

		fileAndLine := b.FileAndLine
		if fileAndLine == "" {
			fileAndLine = fmt.Sprintf("%s:config_filter[%d]", path, i)
		}

		parsers = append(parsers, &filter.Parser{
			Filter:      mask,
			Parsers:     []filter.ModuleParser{{Name: "main", Settings: b.Settings}},
			FileAndLine: fileAndLine,
		})
	}
	return parsers, nil
}
