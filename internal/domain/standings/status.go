package standings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedStatus is returned by ParseStatus for tokens it cannot read.
var ErrMalformedStatus = errors.New("malformed problem status")

// Cell is the decoded status of one problem.
type Cell struct {
	Solved bool `json:"solved"`
	// Wrong counts rejected attempts (before the solve, when solved).
	Wrong int `json:"wrong"`
}

// Attempted reports whether any submission was made.
func (c Cell) Attempted() bool { return c.Solved || c.Wrong > 0 }

// String renders the cell back to its status token.
func (c Cell) String() string {
	return token(&problemState{solved: c.Solved, wrong: c.Wrong})
}

// ParseStatus decodes a stored status string. An empty string decodes to no
// cells, which is what a freshly registered participant carries.
func ParseStatus(status string) ([]Cell, error) {
	if status == "" {
		return nil, nil
	}
	parts := strings.Split(status, Separator)
	cells := make([]Cell, len(parts))
	for i, part := range parts {
		c, err := parseToken(part)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q", ErrMalformedStatus, i, part)
		}
		cells[i] = c
	}
	return cells, nil
}

func parseToken(tok string) (Cell, error) {
	switch {
	case tok == "0":
		return Cell{}, nil
	case tok == "+":
		return Cell{Solved: true}, nil
	case strings.HasPrefix(tok, "+"), strings.HasPrefix(tok, "-"):
		n, err := strconv.Atoi(tok[1:])
		if err != nil || n <= 0 {
			return Cell{}, ErrMalformedStatus
		}
		return Cell{Solved: tok[0] == '+', Wrong: n}, nil
	default:
		return Cell{}, ErrMalformedStatus
	}
}
