package extractor

import (
	"fmt"
	"strings"

	"thooimai-go/internal/dataset"
)

const promptTemplate = `You are an AI system for a city cleanliness management platform in %[1]s, Tamil Nadu, India.

A citizen has reported a waste issue. Below is their description in English:

"%[2]s"

Extract the following structured information and return ONLY valid JSON (no markdown, no code fences):

{
  "priority": "high or medium or low",
  "area": "name of the area or locality mentioned (e.g. Arapalayam, or unknown)",
  "ward": "ward number or name if mentioned (e.g. Ward 12, or unknown)"
}

Priority Rules:
- "high"   -> large heap, health hazard, near hospital/school, burning waste, stray animals
- "medium" -> overflowing bin, moderate plastic waste, blocked drain
- "low"    -> small litter, minor complaint
%[3]s`

// BuildPrompt renders the extraction prompt, listing known localities when given.
func BuildPrompt(english, city string, localities []dataset.Locality) string {
	return fmt.Sprintf(promptTemplate, city, english, localityHint(localities))
}

func localityHint(localities []dataset.Locality) string {
	if len(localities) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nKnown localities (prefer these exact spellings when one is mentioned):\n")
	for _, l := range localities {
		b.WriteString("- " + l.Area)
		if len(l.Wards) > 0 {
			b.WriteString(" (" + strings.Join(l.Wards, ", ") + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}
