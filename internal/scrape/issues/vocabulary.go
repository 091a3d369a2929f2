// Package issues turns the magazine archive's PDF directory listing into
// portal.IssueRecord candidates derived from each PDF's filename.
package issues

// Vocabulary lists the festival names that mark a special edition.
type Vocabulary struct {
	// SpecialTypes are matched against the lowercased title in order; the first hit wins.
	SpecialTypes []string
	// SpecialKeyword marks an issue special without naming a type.
	SpecialKeyword string
}

// DefaultVocabulary returns the festival vocabulary used by the archive.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		SpecialTypes: []string{
			"janmastami", "kartik", "diwali", "ramanavami", "narsimha",
			"radhastami", "gaura purnima", "varaha", "hanuman", "bhadra purnima",
		},
		SpecialKeyword: "special",
	}
}
