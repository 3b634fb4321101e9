package taxonomy

import (
	"errors"
	"fmt"
)

// ErrEmptyTaxonomy is returned when the extract parses cleanly but yields no
// tags at all.
var ErrEmptyTaxonomy = errors.New("taxonomy: no tags found in extract")

// MalformedError reports an extract that cannot be interpreted as a taxonomy.
// Sheet and Row locate the offending input where that is known; Row is
// 1-based and zero when the problem is not tied to a single row.
type MalformedError struct {
	Sheet  string
	Row    int
	Reason string
}

func (e *MalformedError) Error() string {
	switch {
	case e.Sheet != "" && e.Row > 0:
		return fmt.Sprintf("taxonomy: malformed extract: sheet %q row %d: %s", e.Sheet, e.Row, e.Reason)
	case e.Sheet != "":
		return fmt.Sprintf("taxonomy: malformed extract: sheet %q: %s", e.Sheet, e.Reason)
	default:
		return fmt.Sprintf("taxonomy: malformed extract: %s", e.Reason)
	}
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
