// Package fallback serves the static data returned when an upstream page cannot
// be scraped.
package fallback

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/vedicportal/portal/internal/portal"
)

//go:embed data/*.json
var files embed.FS

type blogFile struct {
	Blogs []portal.BlogEntry `json:"blogs"`
}

type issueFile struct {
	Issues []portal.IssueRecord `json:"issues"`
}

// Blogs returns the embedded popular blog list in file order.
func Blogs() ([]portal.BlogEntry, error) {
	var f blogFile
	if err := decode("data/popular-blogs.json", &f); err != nil {
		return nil, err
	}
	return f.Blogs, nil
}

// Issues returns the embedded magazine issue list, newest issue first.
func Issues() ([]portal.IssueRecord, error) {
	var f issueFile
	if err := decode("data/pradipika-issues.json", &f); err != nil {
		return nil, err
	}
	return f.Issues, nil
}

func decode(name string, v any) error {
	raw, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
