// roots.go - Accepted-root history window.
//
// Provers work asynchronously against a root that may no longer be current
// by the time their operation lands, so the ledger accepts any root still
// inside a bounded window. A window of zero keeps the full history.

package merkle

import "github.com/ethereum/go-ethereum/common"

type rootWindow struct {
	window int
	order  []common.Hash
	known  map[common.Hash]int // refcounted: the same root can recur
}

func newRootWindow(window int) *rootWindow {
	return &rootWindow{
		window: window,
		known:  make(map[common.Hash]int),
	}
}

func (w *rootWindow) push(root common.Hash) {
	if w.window > 0 && len(w.order) == w.window {
		oldest := w.order[0]
		w.order = w.order[1:]
		w.known[oldest]--
		if w.known[oldest] == 0 {
			delete(w.known, oldest)
		}
	}
	w.order = append(w.order, root)
	w.known[root]++
}

func (w *rootWindow) contains(root common.Hash) bool {
	return w.known[root] > 0
}
