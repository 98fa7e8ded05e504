package domain

// NodeEvent describes a node entering or terminating a round for one entity.
type NodeEvent struct {
	NodeID NodeID
	Name   string
	Kind   NodeKind
	Seq    uint64
	// Status is Undefined on enter and the terminal status on terminate.
	Status Status
}

// LifecycleHooks defines callbacks for tree observability.
// Hooks run synchronously inside Tick and must not block.
type LifecycleHooks struct {
	OnNodeEnter     func(NodeEvent)
	OnNodeTerminate func(NodeEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:     chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeTerminate: chain(h.OnNodeTerminate, other.OnNodeTerminate),
	}
}

func chain(a, b func(NodeEvent)) func(NodeEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e NodeEvent) {
		a(e)
		b(e)
	}
}
