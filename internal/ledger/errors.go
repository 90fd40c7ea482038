package ledger

import "fmt"

type errOverflow struct {
	event            uint64
	available, total int
	delta            int
}

func (e errOverflow) Error() string {
	return fmt.Sprintf("event %d: releasing %d tickets would raise availability %d above total %d",
		e.event, e.delta, e.available, e.total)
}
