package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogsLoadsEmbeddedList(t *testing.T) {
	t.Parallel()

	blogs, err := Blogs()
	require.NoError(t, err)
	require.NotEmpty(t, blogs)
	seen := map[string]bool{}
	for _, b := range blogs {
		assert.NotEmpty(t, b.Title)
		assert.True(t, strings.HasPrefix(b.URL, "https://iskcondesiretree.com/profiles/blogs/"), b.URL)
		assert.False(t, seen[b.URL], "duplicate url %s", b.URL)
		seen[b.URL] = true
	}
}

func TestIssuesLoadsEmbeddedListNewestFirst(t *testing.T) {
	t.Parallel()

	issues, err := Issues()
	require.NoError(t, err)
	require.Len(t, issues, 12)
	assert.Equal(t, 103, issues[0].IssueNumber)
	assert.Equal(t, 92, issues[len(issues)-1].IssueNumber)
	for i := 1; i < len(issues); i++ {
		assert.Greater(t, issues[i-1].IssueNumber, issues[i].IssueNumber)
	}

	kartik := issues[3]
	assert.Equal(t, 100, kartik.IssueNumber)
	assert.True(t, kartik.IsSpecial)
	require.NotNil(t, kartik.SpecialType)
	assert.Equal(t, "kartik", *kartik.SpecialType)
	assert.Nil(t, issues[0].SpecialType)
	assert.Equal(t, "2026-01", issues[0].Date)
}
