package proxy

import "sync/atomic"

// atomicRevision is a typed wrapper over atomic.Pointer[Revision], kept as
// its own name rather than spelled out inline at every call site — Server
// swaps it wholesale on every reload, the same single-pointer-store shape
// the teacher used a mutex for.
type atomicRevision struct {
	p atomic.Pointer[Revision]
}

func newAtomicRevision() *atomicRevision { return &atomicRevision{} }

func (a *atomicRevision) Load() *Revision { return a.p.Load() }

func (a *atomicRevision) Store(rev *Revision) { a.p.Store(rev) }
