package worklist

// Worklist is a double-ended queue of pending work items. Items added with
// Add are processed in FIFO order, items added with Push are processed
// before everything else (LIFO order among themselves).
type Worklist[T any] struct {
	list []T
}

// Start worklist execution with provided `starting` element and an iteration
// function. The iteration function exposes the next element and a function with
// which to add more elements to the worklist.
func Start[T any](start T, do func(next T, add func(el T))) {
	StartV([]T{start}, do)
}

// Start worklist execution with a preloaded queue and an iteration
// function. The iteration function exposes the next element and a function with
// which to add more elements to the worklist.
func StartV[T any](start []T, do func(next T, add func(el T))) {
	W := Empty[T]()
	for _, e := range start {
		W.Add(e)
	}

	W.Process(do)
}

func Empty[T any]() Worklist[T] {
	return Worklist[T]{}
}

func (w *Worklist[T]) GetNext() (ret T) {
	if len(w.list) == 0 {
		return
	}
	next := w.list[0]
	w.list = w.list[1:]
	return next
}

func (w *Worklist[T]) IsEmpty() bool {
	return len(w.list) == 0
}

func (w *Worklist[T]) Len() int {
	return len(w.list)
}

func (w *Worklist[T]) Process(
	do func(
		next T,
		add func(element T))) {
	for !w.IsEmpty() {
		do(w.GetNext(), w.Add)
	}
}

// Add enqueues an element at the back of the worklist.
func (w *Worklist[T]) Add(el T) {
	w.list = append(w.list, el)
}

// Push enqueues an element at the front of the worklist.
func (w *Worklist[T]) Push(el T) {
	w.list = append(w.list, el)
	copy(w.list[1:], w.list[:len(w.list)-1])
	w.list[0] = el
}

// Filter drops all the elements for which keep returns false.
func (w *Worklist[T]) Filter(keep func(T) bool) {
	res := w.list[:0]
	for _, el := range w.list {
		if keep(el) {
			res = append(res, el)
		}
	}
	w.list = res
}
