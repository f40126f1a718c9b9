package batch

// ItemStatus tracks an input file through the pipeline
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusConverted ItemStatus = "converted"
	StatusSegmented ItemStatus = "segmented"
	StatusCleaned   ItemStatus = "cleaned"
	StatusWritten   ItemStatus = "written"
	StatusSkipped   ItemStatus = "skipped"
	StatusFailed    ItemStatus = "failed"
)

// Item is one input file and its outcome. Items are independent of one
// another; a failed item never affects its siblings.
type Item struct {
	InputPath string
	OutputKey string
	Status    ItemStatus
	// Reason explains a skip in human terms.
	Reason string
	// Err is retained verbatim for failed items.
	Err error
}

func (it *Item) fail(err error) {
	it.Status = StatusFailed
	it.Err = err
}

func (it *Item) skip(reason string) {
	it.Status = StatusSkipped
	it.Reason = reason
}

// Report aggregates the final state of every item in a batch run
type Report struct {
	Items []*Item
}

// Count returns how many items finished in the given status
func (r *Report) Count(status ItemStatus) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the items that failed, with their errors
func (r *Report) Failed() []*Item {
	var failed []*Item
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			failed = append(failed, it)
		}
	}
	return failed
}
