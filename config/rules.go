package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules holds the heuristic tables used by cleanup, expansion and
// network blocking. Every list can be replaced from a YAML rules file.
type Rules struct {
	// ConsentPhrases are case-insensitive labels of consent/dismiss controls.
	ConsentPhrases []string `yaml:"consent_phrases"`

	// ConsentSelectors are the element kinds scanned for consent controls.
	ConsentSelectors []string `yaml:"consent_selectors"`

	// SuppressSubstrings are id/class fragments hidden by the suppression stylesheet.
	SuppressSubstrings []string `yaml:"suppress_substrings"`

	// ExpandPhrases are labels of "show more" style controls.
	ExpandPhrases []string `yaml:"expand_phrases"`

	// BlockPatterns are case-insensitive regular expressions matched
	// against full request URLs at the "complete" cleanup level.
	BlockPatterns []string `yaml:"block_patterns"`
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	return Rules{
		ConsentPhrases: []string{
			// en
			"accept all", "accept", "agree", "i agree", "allow all", "allow",
			"reject all", "reject", "deny", "decline", "consent", "got it",
			"ok", "okay", "close", "no thanks",
			// fr
			"tout accepter", "accepter", "refuser", "tout refuser",
			"paramètres des cookies", "continuer sans accepter",
			// de
			"alle akzeptieren", "akzeptieren", "ablehnen", "zustimmen",
			// es
			"aceptar todo", "aceptar", "rechazar", "rechazar todo",
			// it
			"accetta tutto", "accetta", "rifiuta", "rifiuta tutto",
			// pt
			"aceitar tudo", "aceitar", "rejeitar", "rejeitar tudo",
		},
		ConsentSelectors: []string{
			"button",
			"[role=button]",
			"input[type=button]",
			"input[type=submit]",
			"a",
			"[data-testid],[data-test]",
		},
		SuppressSubstrings: []string{
			"cookie", "consent", "gdpr", "banner", "overlay",
			"popover", "modal", "subscribe", "newsletter",
		},
		ExpandPhrases: []string{
			"show more", "show all", "view more", "read more", "load more", "expand",
			"afficher plus", "lire la suite", "voir plus",
			"mehr anzeigen", "mehr lesen",
			"ver más", "leer más", "cargar más",
			"mostra di più", "leggi di più",
		},
		BlockPatterns: []string{
			`doubleclick\.net`,
			`googlesyndication\.com`,
			`adservice\.google\.com`,
			`adsystem\.com`,
			`adnxs\.com`,
			`criteo\.com`,
			`taboola\.com`,
			`outbrain\.com`,
			`facebook\.net`,
			`connect\.facebook\.net`,
			`quantserve\.com`,
			`moatads\.com`,
			`scorecardresearch\.com`,
			`zedo\.com`,
			`rubiconproject\.com`,
			`1rx\.io`,
		},
	}
}

// LoadRules reads a YAML rules file. Lists absent from the file stay empty;
// use Merge to fall back on another rule set.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, err
	}
	r.normalize()
	return r, nil
}

// Merge returns r with every non-empty list of override replacing its own.
func (r Rules) Merge(override Rules) Rules {
	if len(override.ConsentPhrases) > 0 {
		r.ConsentPhrases = override.ConsentPhrases
	}
	if len(override.ConsentSelectors) > 0 {
		r.ConsentSelectors = override.ConsentSelectors
	}
	if len(override.SuppressSubstrings) > 0 {
		r.SuppressSubstrings = override.SuppressSubstrings
	}
	if len(override.ExpandPhrases) > 0 {
		r.ExpandPhrases = override.ExpandPhrases
	}
	if len(override.BlockPatterns) > 0 {
		r.BlockPatterns = override.BlockPatterns
	}
	return r
}

// Validate compiles every block pattern.
func (r Rules) Validate() error {
	for _, p := range r.BlockPatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("invalid block pattern %q: %w", p, err)
		}
	}
	return nil
}

// normalize lowercases phrases and drops blanks.
func (r *Rules) normalize() {
	r.ConsentPhrases = cleanList(r.ConsentPhrases, true)
	r.ExpandPhrases = cleanList(r.ExpandPhrases, true)
	r.SuppressSubstrings = cleanList(r.SuppressSubstrings, true)
	r.ConsentSelectors = cleanList(r.ConsentSelectors, false)
	r.BlockPatterns = cleanList(r.BlockPatterns, false)
}

func cleanList(in []string, lower bool) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if lower {
			s = strings.ToLower(s)
		}
		out = append(out, s)
	}
	return out
}
