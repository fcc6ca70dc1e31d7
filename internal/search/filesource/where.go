package filesource

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/colonyops/loupe/internal/core/record"
)

// ErrUnsupportedWhere is returned for where clauses the file source cannot
// evaluate. Only `field = 'value'` and `field != 'value'` are understood.
var ErrUnsupportedWhere = errors.New("unsupported where clause")

var whereRe = regexp.MustCompile(`^\s*([A-Za-z_][\w.]*)\s*(!=|<>|=)\s*'((?:[^']|'')*)'\s*$`)

type condition struct {
	field  string
	value  string
	negate bool
}

func parseWhere(clauses []string) ([]condition, error) {
	conds := make([]condition, 0, len(clauses))
	for _, clause := range clauses {
		if strings.TrimSpace(clause) == "" {
			continue
		}
		m := whereRe.FindStringSubmatch(clause)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedWhere, clause)
		}
		conds = append(conds, condition{
			field:  m[1],
			value:  strings.ReplaceAll(m[3], "''", "'"),
			negate: m[2] != "=",
		})
	}
	return conds, nil
}

func (c condition) match(row map[string]any) bool {
	v, ok := row[c.field]
	eq := ok && record.Stringify(v) == c.value
	return eq != c.negate
}
