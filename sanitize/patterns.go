// Package sanitize removes or obscures personally identifiable information
// from conversation and survey data before any external disclosure.
package sanitize

import "regexp"

// Category identifies a class of PII detected in free text.
type Category string

const (
	CategoryEmail         Category = "EMAIL"
	CategoryPhone         Category = "PHONE"
	CategorySSN           Category = "SSN"
	CategoryCreditCard    Category = "CREDIT_CARD"
	CategoryIPAddress     Category = "IP_ADDRESS"
	CategoryStreetAddress Category = "ADDRESS_STREET"
	CategoryName          Category = "POTENTIAL_NAME"
)

// Pattern pairs a PII category with its matcher. Every call site shares the
// same ordered table so detection coverage is defined in exactly one place.
type Pattern struct {
	Category Category
	Regex    *regexp.Regexp
}

// basePatterns is the fixed detection order; categories earlier in the table
// consume their spans before later categories scan.
var basePatterns = []Pattern{
	{CategoryEmail, regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{CategoryPhone, regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)},
	{CategorySSN, regexp.MustCompile(`\b[0-9]{3}-?[0-9]{2}-?[0-9]{4}\b`)},
	{CategoryCreditCard, regexp.MustCompile(`\b(?:[0-9]{4}[-\s]?){3}[0-9]{4}\b`)},
	{CategoryIPAddress, regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)},
	{CategoryStreetAddress, regexp.MustCompile(`(?i)\b[0-9]+\s+[A-Za-z0-9\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Circle|Cir)\b`)},
}

// namePattern only runs when name detection is enabled; honorific-prefixed
// names are the one shape that can be matched without heavy false positives.
var namePattern = Pattern{
	Category: CategoryName,
	Regex:    regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+[A-Z][a-z]+\s+[A-Z][a-z]+\b`),
}

// DetectionTable returns the ordered pattern table for the given
// configuration. The returned slice must not be modified.
func DetectionTable(enableNameDetection bool) []Pattern {
	if !enableNameDetection {
		return basePatterns
	}
	table := make([]Pattern, 0, len(basePatterns)+1)
	table = append(table, basePatterns...)
	table = append(table, namePattern)
	return table
}

// Match is a single PII detection.
type Match struct {
	Category Category
	Start    int
	End      int
	Text     string
}

// Detect scans text with the given table and returns every match in document
// order. Used both by the sanitizer itself and by tests verifying that
// sanitized output re-scans clean.
func Detect(text string, table []Pattern) []Match {
	var matches []Match
	for _, p := range table {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Category: p.Category,
				Start:    loc[0],
				End:      loc[1],
				Text:     text[loc[0]:loc[1]],
			})
		}
	}
	return matches
}
