// ABOUTME: This file implements the pure filename-to-record parser (no-intro/goodtools style tags)
// ABOUTME: Extracts the base title, bracketed tags, and a region classification from a raw filename
package parser

import (
	"strings"
)

// regionVocabulary is the lowercased set of tag pieces recognized as a
// region rather than a language, company, or dump-flag tag.
var regionVocabulary = map[string]bool{
	"usa": true, "japan": true, "europe": true, "world": true, "asia": true,
	"australia": true, "brazil": true, "canada": true, "china": true,
	"denmark": true, "finland": true, "france": true, "germany": true,
	"greece": true, "hong kong": true, "israel": true, "italy": true,
	"korea": true, "netherlands": true, "norway": true, "poland": true,
	"portugal": true, "russia": true, "spain": true, "sweden": true,
	"taiwan": true, "uk": true, "united kingdom": true,
}

// Parsed is the structured output of Parse: a base title with the
// bracketed tags and region classification lifted out of it.
type Parsed struct {
	BaseName string
	Tags     []string
	Region   string
}

// Parse extracts base_name, tags, and region from a raw filename as
// specified in §4.1. It is pure and carries no state.
func Parse(filename string) Parsed {
	stripped := stripExtension(filename)

	tags := extractTags(stripped)
	base := baseName(stripped)

	region := ""
	for _, tag := range tags {
		if region == "" && isRegionTag(tag) {
			region = tag
		}
	}

	return Parsed{BaseName: base, Tags: tags, Region: region}
}

// stripExtension removes everything from the last '.' onward.
func stripExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx <= 0 {
		return filename
	}
	return filename[:idx]
}

// baseName returns the portion preceding the first '(' or '[', trimmed.
func baseName(stripped string) string {
	idx := firstBracket(stripped)
	if idx < 0 {
		return strings.TrimSpace(stripped)
	}
	return strings.TrimSpace(stripped[:idx])
}

func firstBracket(s string) int {
	paren := strings.IndexByte(s, '(')
	bracket := strings.IndexByte(s, '[')
	switch {
	case paren < 0:
		return bracket
	case bracket < 0:
		return paren
	case paren < bracket:
		return paren
	default:
		return bracket
	}
}

// extractTags pulls every substring enclosed by matching ( ) or [ ] pairs,
// in order of appearance, non-greedily.
func extractTags(s string) []string {
	var tags []string

	var open byte
	var close byte
	start := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		if start < 0 {
			switch c {
			case '(':
				open, close = '(', ')'
				start = i + 1
			case '[':
				open, close = '[', ']'
				start = i + 1
			}
			continue
		}
		if c == close {
			tags = append(tags, s[start:i])
			start = -1
		} else if c == open {
			// Nested opener of the same kind: keep matching to the
			// nearest closer (non-greedy with respect to this pair).
			continue
		}
	}

	return tags
}

// isRegionTag implements §4.1's 50% vocabulary-membership rule: split the
// tag on ',' or '+', lowercase each piece, and classify the tag as a
// region when at least half of its pieces are in regionVocabulary.
func isRegionTag(tag string) bool {
	pieces := splitTag(tag)
	if len(pieces) == 0 {
		return false
	}

	hits := 0
	for _, p := range pieces {
		if regionVocabulary[strings.ToLower(strings.TrimSpace(p))] {
			hits++
		}
	}

	return hits*2 >= len(pieces)
}

func splitTag(tag string) []string {
	return strings.FieldsFunc(tag, func(r rune) bool {
		return r == ',' || r == '+'
	})
}
