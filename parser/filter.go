package parser

import "strings"

// nonGameTerms is the lowercased vocabulary of filename suffixes/tags that
// mark a file as ineligible for enrichment (§4.2).
var nonGameTerms = []string{
	"manual", "update", "bios", "soundtrack", "bin", "cue", "txt",
	"nfo", "sav", "m3u", "pdf", "dat",
}

// Eligible reports whether filename is eligible for enrichment. It is
// ineligible when it ends with ".<term>", contains "(<term>)" or
// "[<term>]", or ends with " <term>", for any term in nonGameTerms.
func Eligible(filename string) bool {
	lower := strings.ToLower(filename)

	for _, term := range nonGameTerms {
		if strings.HasSuffix(lower, "."+term) {
			return false
		}
		if strings.Contains(lower, "("+term+")") {
			return false
		}
		if strings.Contains(lower, "["+term+"]") {
			return false
		}
		if strings.HasSuffix(lower, " "+term) {
			return false
		}
	}

	return true
}
