package l4udp

import "sync/atomic"

type atomicRevision struct {
	p atomic.Pointer[Revision]
}

func newAtomicRevision() *atomicRevision { return &atomicRevision{} }

func (a *atomicRevision) Load() *Revision { return a.p.Load() }

func (a *atomicRevision) Store(rev *Revision) { a.p.Store(rev) }
