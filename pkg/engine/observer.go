package engine

// Phase names reported to observers.
const (
	PhaseArchive      = "archive"
	PhaseUpdateBasics = "update-basics"
	PhaseUpdatePrices = "update-prices"
	PhaseCreate       = "create"
	PhaseRemoveTax    = "remove-tax"
)

// Observer receives progress callbacks during plan execution. Callbacks run
// on the phase goroutine except ItemFailed during creation, which runs on a
// worker goroutine; implementations must be safe for concurrent use.
type Observer interface {
	// PhaseStarted reports a phase beginning with its operation count.
	PhaseStarted(phase string, total int)

	// BatchCompleted reports one batch finishing with its counts.
	BatchCompleted(phase string, ok, failed int)

	// ItemFailed reports one record failing, keyed by its SKU or product ID.
	ItemFailed(phase string, key string, err error)

	// PoolResized reports the creation pool changing size.
	PoolResized(size int)

	// PhaseCompleted reports a phase finishing with its totals.
	PhaseCompleted(phase string, totals Totals)
}

// nopObserver ignores every callback.
type nopObserver struct{}

func (nopObserver) PhaseStarted(string, int)         {}
func (nopObserver) BatchCompleted(string, int, int)  {}
func (nopObserver) ItemFailed(string, string, error) {}
func (nopObserver) PoolResized(int)                  {}
func (nopObserver) PhaseCompleted(string, Totals)    {}
