package ir

import (
	"fmt"
	"strings"
)

// Dump renders n as indented text. Output is deterministic for a given tree:
// jump targets are numbered in order of first appearance within the dump.
func Dump(n Node) string {
	p := &printer{labels: make(map[*Target]int)}
	p.stmt(n, 0)
	return p.b.String()
}

type printer struct {
	b      strings.Builder
	labels map[*Target]int
}

func (p *printer) line(depth int, format string, args ...any) {
	p.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) label(t *Target) string {
	if t == nil {
		return "-"
	}
	id, ok := p.labels[t]
	if !ok {
		id = len(p.labels)
		p.labels[t] = id
	}
	return fmt.Sprintf("%s.%d", t.Name, id)
}

// expr returns the single-line form of n, if it has one.
func (p *printer) expr(n Node) (string, bool) {
	switch n := n.(type) {
	case nil:
		return "nil", true
	case *Const:
		if s, ok := n.Value.(string); ok {
			return fmt.Sprintf("%q", s), true
		}
		if n.Value == nil {
			return "nil", true
		}
		return fmt.Sprintf("%v", n.Value), true
	case *Default:
		return fmt.Sprintf("default(%s)", n.T), true
	case *Variable:
		return n.Name, true
	case *Nop:
		return "nop", true
	case *MarkComplete:
		return "mark-complete", true
	case *AwaitResult:
		return fmt.Sprintf("result(%s)", n.Awaiter.Name), true
	case *Assign:
		if v, ok := p.expr(n.Value); ok {
			return fmt.Sprintf("%s = %s", n.Target.Name, v), true
		}
	case *Binary:
		l, lok := p.expr(n.L)
		r, rok := p.expr(n.R)
		if lok && rok {
			return fmt.Sprintf("(%s %s %s)", l, n.Op, r), true
		}
	case *Unary:
		if x, ok := p.expr(n.X); ok {
			return n.Op.String() + x, true
		}
	case *Call:
		if args, ok := p.list(n.Args); ok {
			return fmt.Sprintf("%s(%s)", n.Name, args), true
		}
	case *Invoke:
		proc, pok := p.expr(n.Proc)
		args, aok := p.list(n.Args)
		if pok && aok {
			return fmt.Sprintf("invoke %s(%s)", proc, args), true
		}
	case *Await:
		if v, ok := p.expr(n.Value); ok {
			return "await " + v, true
		}
	case *Goto:
		return "goto " + p.label(n.Target), true
	case *Label:
		return "label " + p.label(n.Target), true
	case *Throw:
		if v, ok := p.expr(n.Value); ok {
			return "throw " + v, true
		}
	case *Return:
		if n.Value == nil {
			return "return", true
		}
		if v, ok := p.expr(n.Value); ok {
			return "return " + v, true
		}
	case *AsyncResult:
		if n.Value == nil {
			return "complete", true
		}
		if v, ok := p.expr(n.Value); ok {
			return "complete " + v, true
		}
	}
	return "", false
}

func (p *printer) list(nodes []Node) (string, bool) {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		s, ok := p.expr(n)
		if !ok {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), true
}

// head prints "kw <expr>" when n is inline and otherwise nests it.
func (p *printer) head(depth int, kw string, n Node) {
	if s, ok := p.expr(n); ok {
		p.line(depth, "%s %s", kw, s)
		return
	}
	p.line(depth, "%s", kw)
	p.stmt(n, depth+1)
}

func (p *printer) stmt(n Node, depth int) {
	if s, ok := p.expr(n); ok {
		p.line(depth, "%s", s)
		return
	}
	switch n := n.(type) {
	case *Assign:
		p.head(depth, n.Target.Name+" =", n.Value)
	case *Block:
		if len(n.Vars) > 0 {
			names := make([]string, len(n.Vars))
			for i, v := range n.Vars {
				names[i] = v.Name + ":" + v.T.String()
			}
			p.line(depth, "block {%s}", strings.Join(names, " "))
		} else {
			p.line(depth, "block")
		}
		for _, c := range n.Body {
			p.stmt(c, depth+1)
		}
	case *Cond:
		p.head(depth, "if", n.Test)
		p.line(depth, "then")
		p.stmt(n.Then, depth+1)
		if n.Else != nil {
			p.line(depth, "else")
			p.stmt(n.Else, depth+1)
		}
	case *Loop:
		p.line(depth, "loop break=%s continue=%s", p.label(n.Break), p.label(n.Continue))
		p.stmt(n.Body, depth+1)
	case *Switch:
		p.head(depth, "switch", n.Value)
		for _, c := range n.Cases {
			tests, _ := p.list(c.Tests)
			p.line(depth+1, "case %s", tests)
			p.stmt(c.Body, depth+2)
		}
		if n.Default != nil {
			p.line(depth+1, "default")
			p.stmt(n.Default, depth+2)
		}
	case *Try:
		p.line(depth, "try")
		p.stmt(n.Body, depth+1)
		for _, c := range n.Catches {
			p.line(depth, "%s", p.catchHead(c.Var, c.Filter))
			p.stmt(c.Body, depth+1)
		}
		if n.Finally != nil {
			p.line(depth, "finally")
			p.stmt(n.Finally, depth+1)
		}
		if n.Fault != nil {
			p.line(depth, "fault")
			p.stmt(n.Fault, depth+1)
		}
	case *Throw:
		p.head(depth, "throw", n.Value)
	case *Return:
		p.head(depth, "return", n.Value)
	case *AsyncResult:
		p.head(depth, "complete", n.Value)
	case *Await:
		p.head(depth, "await", n.Value)
	case *Unary:
		p.head(depth, n.Op.String(), n.X)
	case *Binary:
		p.line(depth, "binary %s", n.Op)
		p.stmt(n.L, depth+1)
		p.stmt(n.R, depth+1)
	case *Call:
		p.line(depth, "call %s", n.Name)
		for _, a := range n.Args {
			p.stmt(a, depth+1)
		}
	case *Invoke:
		p.line(depth, "invoke")
		p.stmt(n.Proc, depth+1)
		for _, a := range n.Args {
			p.stmt(a, depth+1)
		}
	case *Lambda:
		params := make([]string, len(n.Params))
		for i, v := range n.Params {
			params[i] = v.Name + ":" + v.T.String()
		}
		async := ""
		if n.Async {
			async = " async"
		}
		p.line(depth, "lambda %s(%s) %s%s", n.Name, strings.Join(params, ", "), n.Result, async)
		p.stmt(n.Body, depth+1)
	case *StateMachine:
		p.machine(n, depth)
	default:
		p.line(depth, "<%T>", n)
	}
}

func (p *printer) catchHead(v *Variable, filter Node) string {
	name := "_"
	if v != nil {
		name = v.Name
	}
	if filter == nil {
		return "catch " + name
	}
	f, ok := p.expr(filter)
	if !ok {
		f = "..."
	}
	return fmt.Sprintf("catch %s when %s", name, f)
}

func (p *printer) machine(m *StateMachine, depth int) {
	pooled := ""
	if m.Pooled {
		pooled = " pooled"
	}
	p.line(depth, "machine %s state=%s end=%d%s", m.Name, m.StateVar.Name, m.End, pooled)
	for _, r := range m.Regions {
		switch {
		case r.Kind == RegionHandler:
			p.line(depth+1, "region %d handler parent=%d owner=%d", r.ID, r.Parent, r.Owner)
		case len(r.Catches) > 0:
			p.line(depth+1, "region %d protected parent=%d", r.ID, r.Parent)
			for _, h := range r.Catches {
				p.line(depth+2, "%s -> %d", p.catchHead(h.Var, h.Filter), h.Entry)
			}
		default:
			p.line(depth+1, "region %d protected parent=%d finally=%d fault=%d", r.ID, r.Parent, r.Finally, r.Fault)
		}
	}
	for _, s := range m.States {
		p.line(depth+1, "state %d region=%d", s.ID, s.Region)
		for _, c := range s.Body {
			p.stmt(c, depth+2)
		}
		p.term(s.Term, depth+2)
	}
}

func (p *printer) term(t Terminator, depth int) {
	switch t := t.(type) {
	case *JumpTo:
		p.line(depth, "-> %d", t.To)
	case *Branch:
		if s, ok := p.expr(t.Test); ok {
			p.line(depth, "branch %s ? %d : %d", s, t.Then, t.Else)
			return
		}
		p.line(depth, "branch ? %d : %d", t.Then, t.Else)
		p.stmt(t.Test, depth+1)
	case *SwitchTo:
		p.head(depth, "switch", t.Value)
		for _, c := range t.Cases {
			tests, _ := p.list(c.Tests)
			p.line(depth+1, "case %s -> %d", tests, c.To)
		}
		p.line(depth+1, "default -> %d", t.Default)
	case *Suspend:
		p.line(depth, "suspend %s resume %d", t.Awaiter.Name, t.Resume)
	case *EndFinally:
		p.line(depth, "endfinally %d", t.Region)
	case *Done:
		p.line(depth, "done")
	case nil:
		p.line(depth, "<open>")
	}
}
