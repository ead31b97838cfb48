// Package dialect loads an optional YAML configuration that extends the
// G-code front end's fixed defaults without touching source: the set of
// command names that take the RAW argument mode (M117 and ECHO by
// default) and the set of function names a demo collaborator accepts in
// expression calls.
package dialect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbctl/gcodefe/collab"
	"github.com/mbctl/gcodefe/lexer"
)

// Config is the on-disk shape of a dialect file.
//
//	raw_commands:
//	  - M117
//	  - ECHO
//	  - MSG
//	functions:
//	  - abs
//	  - min
//	  - max
type Config struct {
	RawCommands []string `yaml:"raw_commands"`
	Functions   []string `yaml:"functions"`
}

// Load reads and parses a dialect file at path. An empty raw_commands list
// is rejected: a dialect with no RAW commands at all is almost certainly a
// typo'd file, not an intentional choice, since M117/ECHO are how this
// firmware family displays messages.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dialect file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing dialect file: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating dialect file: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.RawCommands != nil && len(cfg.RawCommands) == 0 {
		return fmt.Errorf("raw_commands: explicit empty list not allowed, omit the key to use defaults")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.RawCommands == nil {
		cfg.RawCommands = []string{"M117", "ECHO"}
	}
}

// RawPredicate returns a lexer.RawPredicate recognizing exactly the command
// names listed in cfg.RawCommands.
func (cfg *Config) RawPredicate() lexer.RawPredicate {
	set := make(map[string]bool, len(cfg.RawCommands))
	for _, name := range cfg.RawCommands {
		set[name] = true
	}
	return func(name string) bool { return set[name] }
}

// FunctionSet returns cfg.Functions as a lookup set, for callers that want
// to reject unregistered function calls before evaluation rather than at
// the collab.Evaluator's builtin-table miss.
func (cfg *Config) FunctionSet() map[string]bool {
	set := make(map[string]bool, len(cfg.Functions))
	for _, name := range cfg.Functions {
		set[name] = true
	}
	return set
}

// FilterBuiltins narrows all down to the subset named in cfg.Functions. An
// empty or omitted Functions list is not a restriction (unlike
// raw_commands's explicit-empty rejection, a dialect file with no
// function allowlist at all simply declines to opine) — every builtin in
// all passes through unfiltered.
func (cfg *Config) FilterBuiltins(all []*collab.Builtin) []*collab.Builtin {
	if len(cfg.Functions) == 0 {
		return all
	}
	set := cfg.FunctionSet()
	out := make([]*collab.Builtin, 0, len(all))
	for _, b := range all {
		if set[b.Name] {
			out = append(out, b)
		}
	}
	return out
}
