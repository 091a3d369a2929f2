package issues

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vedicportal/portal/internal/portal"
)

var (
	issueNumberPattern = regexp.MustCompile(`(?i)Issue\s*(\d+)`)
	datePattern        = regexp.MustCompile(`(\d{4})-(\d{2})`)
	whitespaceRun      = regexp.MustCompile(`\s+`)

	// Applied in order to the underscore-expanded name.
	titleStrippers = []*regexp.Regexp{
		regexp.MustCompile(`^\d+\s*-\s*`),
		regexp.MustCompile(`(?i)Bhagavata\s*Pradipika\s*Issue\s*\d+\s*-?\s*`),
		regexp.MustCompile(`\s*-\s*\d{4}-\d{2}.*$`),
		regexp.MustCompile(`(?i)\.pdf.*$`),
	}
	titleUnescaper = strings.NewReplacer("%27", "'", "%20", " ")
)

// ParseFilename derives an IssueRecord (without PDFURL) from a decoded PDF
// filename. It reports false when the name carries no issue number.
func (v Vocabulary) ParseFilename(filename string) (portal.IssueRecord, bool) {
	name := strings.Replace(filename, ".pdf", "", 1)
	name = strings.ReplaceAll(name, "_", " ")

	m := issueNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return portal.IssueRecord{}, false
	}
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return portal.IssueRecord{}, false
	}

	record := portal.IssueRecord{
		IssueNumber: number,
		Title:       cleanTitle(name),
		Date:        issueDate(name),
		PDFFilename: filename,
	}
	record.IsSpecial, record.SpecialType = v.classify(record.Title)
	return record, true
}

func issueDate(name string) string {
	m := datePattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2]
}

func cleanTitle(name string) string {
	title := name
	for _, p := range titleStrippers {
		title = p.ReplaceAllString(title, "")
	}
	title = titleUnescaper.Replace(strings.TrimSpace(title))
	// Hyphens joining words in the filename read as spaces.
	title = strings.ReplaceAll(title, "-", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(title, " "))
}

func (v Vocabulary) classify(title string) (bool, *string) {
	lower := strings.ToLower(title)
	special := false
	var specialType *string
	for _, t := range v.SpecialTypes {
		if strings.Contains(lower, t) {
			special = true
			specialType = &t
			break
		}
	}
	if v.SpecialKeyword != "" && strings.Contains(lower, v.SpecialKeyword) {
		special = true
	}
	return special, specialType
}
