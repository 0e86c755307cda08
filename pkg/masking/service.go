// Package masking redacts credentials and wallet material from tool
// input/output before it reaches the journal: a single process-wide set
// of pattern groups selected by config.MaskingConfig, simplified down
// from a per-MCP-server custom-pattern registry.
package masking

import (
	"fmt"
	"regexp"

	"github.com/perpctl/tradeagent/pkg/config"
)

// compiledPattern is the resolved, ready-to-apply form of a builtinPattern.
type compiledPattern struct {
	Name string
	Regex *regexp.Regexp
	Replacement string
}

// Service applies the configured masking pattern groups and code maskers
// to text before it is written to the journal or handed to a notifier.
type Service struct {
	enabled bool
	patterns []*compiledPattern
	maskers []Masker
}

// New compiles the pattern groups named in cfg.Groups. An unknown group
// name is ignored rather than rejected, so a typo in a low-stakes
// setting doesn't fail config load.
func New(cfg *config.MaskingConfig) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return &Service{enabled: false}, nil
	}

	all := builtinPatterns()
	groups := builtinPatternGroups()
	codeMaskerNames := make(map[string]bool)
	for _, n := range builtinCodeMaskers() {
		codeMaskerNames[n] = true
	}

	seen := make(map[string]bool)
	svc := &Service{enabled: true}
	for _, group := range cfg.Groups {
		names, ok := groups[group]
		if !ok {
			continue
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true

			if codeMaskerNames[name] {
				svc.maskers = append(svc.maskers, newMaskerByName(name))
				continue
			}
			p, ok := all[name]
			if !ok {
				continue
			}
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return nil, fmt.Errorf("masking: compiling pattern %s: %w", name, err)
			}
			svc.patterns = append(svc.patterns, &compiledPattern{Name: name, Regex: re, Replacement: p.Replacement})
		}
	}
	return svc, nil
}

func newMaskerByName(name string) Masker {
	switch name {
	case "wallet_key":
		return newWalletKeyMasker()
	default:
		return nil
	}
}

// Mask redacts every configured pattern/masker match in data. Fail-closed
// per the terminal-state wording of this repository's masking
// requirement ("mask ... before they are journaled"): a nil Service or
// one built from a disabled config leaves data untouched only because
// masking was deliberately turned off, never because of a runtime error
// mid-redaction — every masker/regex below is a pure string operation
// that cannot itself fail once compiled.
func (s *Service) Mask(data string) string {
	if s == nil || !s.enabled || data == "" {
		return data
	}

	masked := data
	for _, m := range s.maskers {
		if m != nil && m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}

// MaskToolResult redacts a tool's JSON-encoded output before it is
// stored in the journal's tool-call trace.
func (s *Service) MaskToolResult(resultJSON string) string {
	return s.Mask(resultJSON)
}
