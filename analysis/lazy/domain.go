package lazy

// Domain orders abstract states by location-scoped entailment. States are
// never merged: every path keeps its own node in the tree.
type Domain struct {
	entailer *Entailer
}

var (
	// BottomState and TopState are sentinels compared by identity.
	BottomState = &AbstractState{id: NoState, parent: NoState, coveredBy: NoState}
	TopState    = &AbstractState{id: NoState, parent: NoState, coveredBy: NoState}
)

func NewDomain(entailer *Entailer) *Domain {
	return &Domain{entailer}
}

func (*Domain) Bottom() *AbstractState { return BottomState }
func (*Domain) Top() *AbstractState    { return TopState }

// PartialOrder holds if a and b share a location and the abstraction of a
// entails that of b.
func (d *Domain) PartialOrder(a, b *AbstractState) bool {
	if a.abstraction == nil || b.abstraction == nil {
		panic(internal("comparing %v and %v without abstraction", a, b))
	}
	if a.location != b.location {
		return false
	}
	return d.entailer.Entails(a.abstraction, b.abstraction)
}

// Join is not supported.
func (*Domain) Join(a, b *AbstractState) *AbstractState {
	panic(errUnsupportedOperation)
}
