package ir

// Children returns the direct sub-nodes of n in evaluation order.
// Lambda and StateMachine bodies belong to another procedure and are not
// reported.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Assign:
		return []Node{n.Value}
	case *Block:
		return n.Body
	case *Cond:
		if n.Else == nil {
			return []Node{n.Test, n.Then}
		}
		return []Node{n.Test, n.Then, n.Else}
	case *Loop:
		return []Node{n.Body}
	case *Return:
		if n.Value == nil {
			return nil
		}
		return []Node{n.Value}
	case *Switch:
		out := []Node{n.Value}
		for _, c := range n.Cases {
			out = append(out, c.Tests...)
			out = append(out, c.Body)
		}
		if n.Default != nil {
			out = append(out, n.Default)
		}
		return out
	case *Try:
		out := []Node{n.Body}
		for _, c := range n.Catches {
			if c.Filter != nil {
				out = append(out, c.Filter)
			}
			out = append(out, c.Body)
		}
		if n.Finally != nil {
			out = append(out, n.Finally)
		}
		if n.Fault != nil {
			out = append(out, n.Fault)
		}
		return out
	case *Throw:
		return []Node{n.Value}
	case *Call:
		return n.Args
	case *Invoke:
		return append([]Node{n.Proc}, n.Args...)
	case *Binary:
		return []Node{n.L, n.R}
	case *Unary:
		return []Node{n.X}
	case *Await:
		return []Node{n.Value}
	case *AsyncResult:
		if n.Value == nil {
			return nil
		}
		return []Node{n.Value}
	default:
		return nil
	}
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Rewrite rebuilds n bottom-up, replacing every node by fn's result. Nodes
// whose children did not change are passed to fn unchanged.
func Rewrite(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	return fn(rebuild(n, fn))
}

func rewriteAll(nodes []Node, fn func(Node) Node) ([]Node, bool) {
	var out []Node
	for i, c := range nodes {
		r := Rewrite(c, fn)
		if r != c && out == nil {
			out = make([]Node, len(nodes))
			copy(out, nodes[:i])
		}
		if out != nil {
			out[i] = r
		}
	}
	if out == nil {
		return nodes, false
	}
	return out, true
}

func rebuild(n Node, fn func(Node) Node) Node {
	switch n := n.(type) {
	case *Assign:
		if v := Rewrite(n.Value, fn); v != n.Value {
			return &Assign{Target: n.Target, Value: v}
		}
	case *Block:
		if body, changed := rewriteAll(n.Body, fn); changed {
			return &Block{Vars: n.Vars, Body: body}
		}
	case *Cond:
		test, then, els := Rewrite(n.Test, fn), Rewrite(n.Then, fn), Rewrite(n.Else, fn)
		if test != n.Test || then != n.Then || els != n.Else {
			return &Cond{Test: test, Then: then, Else: els, T: n.T}
		}
	case *Loop:
		if body := Rewrite(n.Body, fn); body != n.Body {
			return &Loop{Body: body, Break: n.Break, Continue: n.Continue}
		}
	case *Return:
		if v := Rewrite(n.Value, fn); v != n.Value {
			return &Return{Value: v}
		}
	case *Switch:
		changed := false
		value := Rewrite(n.Value, fn)
		cases := make([]Case, len(n.Cases))
		for i, c := range n.Cases {
			tests, tc := rewriteAll(c.Tests, fn)
			body := Rewrite(c.Body, fn)
			changed = changed || tc || body != c.Body
			cases[i] = Case{Tests: tests, Body: body}
		}
		def := Rewrite(n.Default, fn)
		if changed || value != n.Value || def != n.Default {
			return &Switch{Value: value, Cases: cases, Default: def, T: n.T}
		}
	case *Try:
		changed := false
		body := Rewrite(n.Body, fn)
		catches := make([]Catch, len(n.Catches))
		for i, c := range n.Catches {
			filter, cbody := Rewrite(c.Filter, fn), Rewrite(c.Body, fn)
			changed = changed || filter != c.Filter || cbody != c.Body
			catches[i] = Catch{Var: c.Var, Match: c.Match, Filter: filter, Body: cbody}
		}
		finally, fault := Rewrite(n.Finally, fn), Rewrite(n.Fault, fn)
		if changed || body != n.Body || finally != n.Finally || fault != n.Fault {
			return &Try{Body: body, Catches: catches, Finally: finally, Fault: fault, T: n.T}
		}
	case *Throw:
		if v := Rewrite(n.Value, fn); v != n.Value {
			return &Throw{Value: v}
		}
	case *Call:
		if args, changed := rewriteAll(n.Args, fn); changed {
			return &Call{Name: n.Name, Fn: n.Fn, Args: args, T: n.T}
		}
	case *Invoke:
		proc := Rewrite(n.Proc, fn)
		args, changed := rewriteAll(n.Args, fn)
		if changed || proc != n.Proc {
			return &Invoke{Proc: proc, Args: args, T: n.T}
		}
	case *Binary:
		l, r := Rewrite(n.L, fn), Rewrite(n.R, fn)
		if l != n.L || r != n.R {
			return &Binary{Op: n.Op, L: l, R: r}
		}
	case *Unary:
		if x := Rewrite(n.X, fn); x != n.X {
			return &Unary{Op: n.Op, X: x}
		}
	case *Await:
		if v := Rewrite(n.Value, fn); v != n.Value {
			return &Await{Value: v, T: n.T}
		}
	case *AsyncResult:
		if v := Rewrite(n.Value, fn); v != n.Value {
			return &AsyncResult{Value: v}
		}
	}
	return n
}
