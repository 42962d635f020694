package section

import (
	"strings"

	"github.com/hpungsan/chattoc/internal/errors"
)

// FormatExport flattens summaries into one "#<position> <badge> <title>" line per entry.
// An empty index returns ErrNothingToExport rather than an empty string.
func FormatExport(page string, items []Summary) (string, error) {
	if len(items) == 0 {
		return "", errors.NewNothingToExport(page)
	}
	var b strings.Builder
	for i, s := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Label())
		b.WriteByte(' ')
		b.WriteString(string(s.Badge))
		b.WriteByte(' ')
		b.WriteString(s.Title)
	}
	return b.String(), nil
}
