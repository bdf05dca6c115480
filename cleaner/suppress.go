package cleaner

import (
	"fmt"
	"strings"
)

// SuppressionCSS builds the stylesheet that hides every element whose id or
// class contains one of substrings and keeps the body scrollable.
func SuppressionCSS(substrings []string) string {
	var b strings.Builder
	sels := make([]string, 0, 2*len(substrings))
	for _, s := range substrings {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		q := cssString(strings.ToLower(s))
		sels = append(sels, fmt.Sprintf(`[id*=%s i]`, q), fmt.Sprintf(`[class*=%s i]`, q))
	}
	if len(sels) > 0 {
		b.WriteString(strings.Join(sels, ",\n"))
		b.WriteString(" {\n  display: none !important;\n  visibility: hidden !important;\n  opacity: 0 !important;\n}\n")
	}
	b.WriteString("html, body {\n  overflow: auto !important;\n}\n")
	return b.String()
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}
