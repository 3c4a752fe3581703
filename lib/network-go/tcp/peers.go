//go:build unix

package tcp

import (
	"sort"
	"sync"
)

// peerSet is the set of live connections keyed by descriptor.
type peerSet struct {
	mu    sync.Mutex
	conns map[int]*Conn
}

func newPeerSet() *peerSet {
	return &peerSet{conns: make(map[int]*Conn)}
}

func (p *peerSet) add(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[c.fd] = c
}

func (p *peerSet) remove(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[c.fd] == c {
		delete(p.conns, c.fd)
	}
}

// pollable returns the connections that are neither stale nor inside a read callback,
// ordered by descriptor.
func (p *peerSet) pollable() []*Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	conns := make([]*Conn, 0, len(p.conns))
	for _, c := range p.conns {
		if !c.busy.Load() && !c.stale.Load() {
			conns = append(conns, c)
		}
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].fd < conns[j].fd })
	return conns
}

// drain empties the set and returns what it held.
func (p *peerSet) drain() []*Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	conns := make([]*Conn, 0, len(p.conns))
	for fd, c := range p.conns {
		conns = append(conns, c)
		delete(p.conns, fd)
	}
	return conns
}

func (p *peerSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
