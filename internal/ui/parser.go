package ui

import "strings"

// ParseCSS parses the small CSS subset the overlays use: ".class" and "#id"
// selectors, comma-separated selector lists, and "key: value;" declarations.
// No combinators, no nesting, no @rules, so blocks never contain braces.
// /* */ comments are allowed anywhere.
func ParseCSS(content string) (*Stylesheet, error) {
	sheet := &Stylesheet{}
	rest := stripComments(content)
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		size := strings.IndexByte(rest[open:], '}')
		if size < 0 {
			break
		}
		selectors := splitSelectors(rest[:open])
		props := parseDeclarations(rest[open+1 : open+size])
		rest = rest[open+size+1:]
		for _, sel := range selectors {
			// Each selector gets its own map so later overrides stay independent.
			p := make(map[string]string, len(props))
			for k, v := range props {
				p[k] = v
			}
			sheet.Rules = append(sheet.Rules, Rule{Selector: sel, Props: p})
		}
	}
	return sheet, nil
}

func stripComments(s string) string {
	var b strings.Builder
	for {
		open := strings.Index(s, "/*")
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:open])
		end := strings.Index(s[open+2:], "*/")
		if end < 0 {
			return b.String()
		}
		s = s[open+2+end+2:]
	}
}

// splitSelectors splits a comma-separated selector list, keeping only .class
// and #id entries.
func splitSelectors(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		sel := strings.TrimSpace(part)
		if len(sel) < 2 || (sel[0] != '.' && sel[0] != '#') {
			continue
		}
		out = append(out, sel)
	}
	return out
}

func parseDeclarations(body string) map[string]string {
	props := make(map[string]string)
	for _, decl := range strings.Split(body, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" {
			props[k] = v
		}
	}
	return props
}
