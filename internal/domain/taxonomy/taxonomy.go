// Package taxonomy maps domain sector labels to provider search keywords
// and matches raw results back against requested sectors.
package taxonomy

import "strings"

// sectorKeywords is the static sector table. Labels are matched
// case-insensitively; unknown labels fall back to themselves.
var sectorKeywords = map[string][]string{
	"tecnologia":   {"software", "desarrollo", "IT", "tecnología", "informática", "digital"},
	"construccion": {"construcción", "obra", "edificación", "arquitectura", "ingeniería"},
	"salud":        {"salud", "médico", "clínica", "hospital", "sanitario", "farmacia"},
	"educacion":    {"educación", "formación", "academia", "colegio", "universidad"},
	"finanzas":     {"finanzas", "banco", "seguros", "inversión", "financiero"},
	"retail":       {"comercio", "tienda", "retail", "venta", "distribución"},
	"industria":    {"industria", "fabricación", "producción", "manufactura"},
	"servicios":    {"servicios", "consultoría", "asesoría", "gestión"},
}

// KeywordsFor returns the ordered provider keywords for a sector label.
// Unknown labels degrade to the label itself; never empty.
func KeywordsFor(label string) []string {
	if kws, ok := sectorKeywords[strings.ToLower(strings.TrimSpace(label))]; ok {
		out := make([]string, len(kws))
		copy(out, kws)
		return out
	}
	return []string{label}
}

// SearchTermFor returns the OR-joined provider search term for a sector.
func SearchTermFor(label string) string {
	return strings.Join(KeywordsFor(label), " OR ")
}

// Matches reports whether a raw result's name or category tags match the
// sector, by case-insensitive substring in either direction.
func Matches(label, name string, categories []string) bool {
	name = strings.ToLower(name)
	for _, kw := range KeywordsFor(label) {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(name, kw) {
			return true
		}
		for _, cat := range categories {
			cat = strings.ToLower(cat)
			if strings.Contains(cat, kw) || strings.Contains(kw, cat) {
				return true
			}
		}
	}
	return false
}

// MatchesAny reports whether the result matches at least one of the
// requested sectors (OR semantics). An empty sector list matches everything.
func MatchesAny(labels []string, name string, categories []string) bool {
	if len(labels) == 0 {
		return true
	}
	for _, l := range labels {
		if Matches(l, name, categories) {
			return true
		}
	}
	return false
}
