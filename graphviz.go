package machina

import (
	. "github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// ToDOT renders the machine's states and transitions as a DOT digraph for
// visualization. Edges are labeled per trigger kind, guarded edges are
// dashed, terminating states are doublecircles and the current state is
// highlighted.
func (m *Machine) ToDOT() String {
	m.checkAffinity("ToDOT")

	b := NewBuilder()

	b.WriteString("digraph machina {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	b.WriteString("  __start [shape=point, style=invis];\n")
	b.WriteString(Format("  __start -> \"{}\";\n\n", AwaitingStart))

	ids := m.states.Keys()
	ids.SortBy(cmp.Cmp)

	for _, id := range ids {
		s := m.states.Get(id).Some()

		var attrs Slice[String]
		attrs.Push(Format("label=\"{}\"", s.name))

		switch {
		case m.current == s:
			attrs.Push("fillcolor=\"#90ee90\"", "shape=doublecircle")
		case s.terminating:
			attrs.Push("fillcolor=\"#d3d3d3\"", "shape=doublecircle")
		}

		b.WriteString(Format("  \"{}\" [{}];\n", s.id, attrs.Join(", ")))
	}

	b.WriteByte('\n')

	for _, id := range ids {
		s := m.states.Get(id).Some()

		for _, key := range s.order {
			for _, t := range s.outgoing.Get(key).Some() {
				label := edgeLabel(t)

				var edge Slice[String]
				edge.Push(Format("label=\" {} \"", label))

				if t.ifGuard != nil || t.unlessGuard != nil {
					edge.Push("style=dashed", "color=red", "arrowhead=odiamond")
				}

				b.WriteString(Format("  \"{}\" -> \"{}\" [{}];\n", t.from.id, t.to.id, edge.Join(", ")))
			}
		}
	}

	b.WriteString("}\n")

	return b.String()
}

func edgeLabel(t *Transition) String {
	var label String

	switch t.kind {
	case TriggerEvent:
		label = Format("on {}", t.event)
	case TriggerTimer:
		label = Format("after {}", t.delay)
	default:
		label = Format("signal {}", t.signal)
	}

	if t.internal {
		label += " (internal)"
	}

	return label
}
