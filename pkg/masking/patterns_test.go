package masking

import (
	"regexp"
	"testing"
)

func TestBuiltinPatternGroups_ReferenceKnownNames(t *testing.T) {
	patterns := builtinPatterns()
	codeMaskers := make(map[string]bool)
	for _, n := range builtinCodeMaskers() {
		codeMaskers[n] = true
	}

	for group, names := range builtinPatternGroups() {
		for _, name := range names {
			if _, ok := patterns[name]; ok {
				continue
			}
			if codeMaskers[name] {
				continue
			}
			t.Errorf("group %q references unknown pattern/masker %q", group, name)
		}
	}
}

func TestBuiltinPatterns_AllCompile(t *testing.T) {
	for name, p := range builtinPatterns() {
		t.Run(name, func(t *testing.T) {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				t.Fatalf("pattern %q failed to compile: %v", name, err)
			}
		})
	}
}
