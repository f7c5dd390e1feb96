package gemini

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CharacterSheet renders a character as stable "key: value" lines. It is also the fallback prompt
// when Gemini is not configured.
func CharacterSheet(c Character) string {
	var lines []string
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", label, value))
		}
	}

	add("Name", c.Name)
	if c.Age != nil {
		add("Age", fmt.Sprintf("%d", *c.Age))
	}
	add("Nationality", c.Nationality)
	add("Occupation", c.Occupation)
	add("Description", c.Description)
	lines = append(lines, flatten("Attribute", c.Attributes)...)
	lines = append(lines, flatten("Facial feature", c.FacialFeatures)...)
	add("Base prompt", c.BasePrompt)

	return strings.Join(lines, "\n")
}

func flatten(label string, m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s %s: %s", label, k, s))
	}
	return out
}

// DescribeFeatures joins attribute and facial feature values into a comma separated phrase.
func DescribeFeatures(attributes, facial map[string]interface{}) string {
	var parts []string
	for _, m := range []map[string]interface{}{attributes, facial} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := strings.TrimSpace(fmt.Sprintf("%v", m[k])); s != "" && m[k] != nil {
				parts = append(parts, s+" "+humanize(k))
			}
		}
	}
	return strings.Join(parts, ", ")
}

// humanize turns camelCase keys into lower-case words: "eyeColor" -> "eye color".
func humanize(key string) string {
	var sb strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		if r == '_' {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SheetComposer builds prompts without calling Gemini. It is used when no API key is configured.
type SheetComposer struct{}

func (SheetComposer) ComposePrompt(_ context.Context, c Character, message string) (string, error) {
	sheet := CharacterSheet(c)
	if strings.TrimSpace(message) == "" {
		return sheet, nil
	}
	return sheet + "\n" + strings.TrimSpace(message), nil
}
