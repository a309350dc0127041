package assetstate

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// ExportDOT generates Graphviz DOT source for the state → bundle → asset
// graph. The current state is drawn bold; live bundles are filled, loading
// bundles dashed, and bundles with an armed cleanup are labeled as such.
func (a *App[S]) ExportDOT() string {
	c := a.ctx
	var buf bytes.Buffer
	buf.WriteString(`digraph AssetStates {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	type binding struct {
		name   string
		state  S
		bundle BundleID
	}
	bindings := make([]binding, 0, len(c.bindings))
	for s, id := range c.bindings {
		bindings = append(bindings, binding{name: fmt.Sprint(s), state: s, bundle: id})
	}
	slices.SortFunc(bindings, func(x, y binding) int { return strings.Compare(x.name, y.name) })

	current := c.machine.Current()
	for _, b := range bindings {
		attrs := ""
		if b.state == current {
			attrs = `, style="rounded,bold"`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", "state:"+b.name, b.name, attrs)
	}

	ids := make([]BundleID, 0, len(c.bundles))
	for id := range c.bundles {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		fmt.Fprintf(&buf, "  %q [label=%q, shape=folder%s];\n", bundleNode(id), bundleLabel(c, id), bundleStyle(c, id))
		for _, ref := range c.bundles[id].Assets {
			fmt.Fprintf(&buf, "  %q [label=%q, shape=note];\n", assetNode(id, ref), ref.Path)
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", bundleNode(id), assetNode(id, ref), ref.Name)
		}
	}

	for _, b := range bindings {
		fmt.Fprintf(&buf, "  %q -> %q [label=\"requires\"];\n", "state:"+b.name, bundleNode(b.bundle))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func bundleNode(id BundleID) string { return "bundle:" + string(id) }

func assetNode(id BundleID, ref AssetRef) string {
	return "asset:" + string(id) + ":" + ref.Path
}

func bundleLabel[S comparable](c *Context[S], id BundleID) string {
	label := string(id)
	if inst, ok := c.Registry.Get(id); ok {
		label += "\n" + inst.status.String()
	}
	if c.cleanup.isArmed(id) {
		label += "\ncleanup armed"
	}
	return label
}

func bundleStyle[S comparable](c *Context[S], id BundleID) string {
	switch {
	case c.Registry.Loading(id):
		return `, style="rounded,dashed"`
	case c.Registry.Has(id):
		return `, style="rounded,filled", fillcolor="#d9f2d9"`
	default:
		return ""
	}
}
