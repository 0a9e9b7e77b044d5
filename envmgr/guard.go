package envmgr

// Guard is a scoped attachment of one goroutine, see [Manager.Attach].
type Guard[E any] struct {
	m        *Manager[E]
	env      E
	tid      ThreadID
	released bool
}

// Attach returns a Guard for the calling goroutine, attaching it if necessary.
// Guards nest: if the outermost Guard performed the attach, releasing the last
// Guard detaches the goroutine immediately. Otherwise the attachment is left
// as it was (e.g. pending detach by the reaper, or owned by someone else).
func (m *Manager[E]) Attach() (*Guard[E], error) {
	tid := CurrentThread()
	_, attached := m.rt.GetEnv(tid)

	env, err := m.env(tid)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if th := m.threads[tid]; th != nil {
		if th.guards == 0 && !attached {
			th.scoped = true
		}
		th.guards++
	}
	m.mu.Unlock()

	return &Guard[E]{m: m, env: env, tid: tid}, nil
}

// Env returns the guarded environment.
func (g *Guard[E]) Env() E {
	return g.env
}

// Thread returns the goroutine the Guard belongs to.
func (g *Guard[E]) Thread() ThreadID {
	return g.tid
}

// Release ends the scope. It is idempotent, and panics if called from a
// goroutine other than the one that created the Guard.
func (g *Guard[E]) Release() {
	if g == nil || g.released {
		return
	}
	if CurrentThread() != g.tid {
		panic("envmgr: guard released from a foreign goroutine")
	}
	g.released = true

	m := g.m
	m.mu.Lock()
	th := m.threads[g.tid]
	if th == nil {
		m.mu.Unlock()
		return
	}
	th.guards--
	if th.guards > 0 || !th.scoped {
		m.mu.Unlock()
		return
	}
	delete(m.threads, g.tid)
	m.mu.Unlock()

	_ = m.detach(g.tid, th.osTID)
}
