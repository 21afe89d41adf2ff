package reconcile

import "fmt"

type Status int

const (
	// Applied: the change is in memory, in the snapshot and, when a remote
	// is configured, on the remote.
	Applied Status = iota
	// LocalOnly: the change is in memory and in the snapshot but the remote
	// write failed. It is not rolled back.
	LocalOnly
	// Rejected: nothing changed.
	Rejected
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case LocalOnly:
		return "local-only"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the result of every reconciliation operation. Err is set for
// LocalOnly and Rejected.
type Outcome struct {
	Status Status
	Err    error
}

// Changed reports whether local state now reflects the operation.
func (o Outcome) Changed() bool {
	return o.Status != Rejected
}

func applied() Outcome {
	return Outcome{Status: Applied}
}

func localOnly(err error) Outcome {
	return Outcome{Status: LocalOnly, Err: err}
}

func rejected(err error) Outcome {
	return Outcome{Status: Rejected, Err: err}
}
