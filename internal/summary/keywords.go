package summary

import (
	"regexp"
	"sort"
	"strings"
)

// stopwords excluded from keyword extraction. English-only: multi-lingual
// tokenization is out of scope.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by for from has have in is it its
		of on or that the this to was were will with not no than then they them their there here
		we you your our i he she his her him its about into over under after before more most some
		such only also been being do does did can could should would may might must`) {
		stopwords[w] = struct{}{}
	}
}

var wordRe = regexp.MustCompile(`\p{L}[\p{L}\p{N}'-]+`)

// defaultMaxKeywords is used when a provider config leaves MaxKeywords unset.
const defaultMaxKeywords = 5

// ExtractKeywords returns up to max frequency-ranked terms from text, stopwords
// filtered, ties broken alphabetically for deterministic output.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = 5
	}
	freq := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len(w) < 3 {
			continue
		}
		freq[w]++
	}
	terms := make([]string, 0, len(freq))
	for w := range freq {
		terms = append(terms, w)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}
