// Package allocconfig loads the tunables an allocator pass built on top of
// the liveness core needs: how many physical registers are available per
// class, and which optional behaviors (subrange tracking, the coalescer
// overlap exemption) are enabled for this run. It follows the same
// load-a-TOML-file-into-a-tagged-struct shape used for the rest of this
// project's configuration.
package allocconfig

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// FileName is the conventional name of an allocator config file, mirrored
// next to a project's own build configuration.
const FileName = "regalloc.toml"

// RegClassBudget names how many physical registers of one class the
// target exposes to the allocator.
type RegClassBudget struct {
	Name  string `toml:"name"`
	Count int    `toml:"count"`
}

// Config is the full set of allocator tunables.
type Config struct {
	// Classes lists the register classes available for allocation and
	// their physical register budgets.
	Classes []RegClassBudget `toml:"classes"`

	// EnableSubranges turns on subregister-aware (lane-mask) liveness
	// tracking. Disabling it keeps every live interval as a single
	// whole-register range, which is cheaper but coarser.
	EnableSubranges bool `toml:"enable_subranges"`

	// EnableCoalescerExemption makes overlap queries ignore overlap
	// caused solely by a coalescable copy at a block boundary.
	EnableCoalescerExemption bool `toml:"enable_coalescer_exemption"`
}

// Default returns the configuration used when no file is present: a
// single generic-purpose class with a conservative register budget and
// both optional behaviors enabled.
func Default() *Config {
	return &Config{
		Classes:                  []RegClassBudget{{Name: "gpr", Count: 14}},
		EnableSubranges:          true,
		EnableCoalescerExemption: true,
	}
}

// Load reads and parses an allocator config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("allocconfig: read %s: %w", path, err)
	}
	cfg := Default()
	cfg.Classes = nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("allocconfig: parse %s: %w", path, err)
	}
	if len(cfg.Classes) == 0 {
		cfg.Classes = Default().Classes
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("allocconfig: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem with the config at once, rather than just
// the first: a class with a non-positive budget, and any class name
// repeated across entries.
func (c *Config) Validate() error {
	var err error
	seen := make(map[string]bool, len(c.Classes))
	for _, cls := range c.Classes {
		if cls.Count <= 0 {
			err = multierr.Append(err, fmt.Errorf("class %q has a non-positive register budget %d", cls.Name, cls.Count))
		}
		if seen[cls.Name] {
			err = multierr.Append(err, fmt.Errorf("class %q is configured more than once", cls.Name))
		}
		seen[cls.Name] = true
	}
	return err
}

// BudgetFor returns the register budget for the named class, or 0 if the
// class is not configured.
func (c *Config) BudgetFor(name string) int {
	for _, cls := range c.Classes {
		if cls.Name == name {
			return cls.Count
		}
	}
	return 0
}
