package synth

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dave/jennifer/jen"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/catalog"
	"github.com/goliatone/go-fsmgen/graph"
)

// GeneratedHeader marks emitted files as generated.
const GeneratedHeader = "Code generated by fsmgen. DO NOT EDIT."

// Emit renders plan as a Go source file. Output depends only on the plan,
// so identical graphs produce identical bytes.
func Emit(plan *Plan, w io.Writer) error {
	if plan == nil || len(plan.States) == 0 {
		return fsmgen.NewError(fsmgen.ErrNothingToGenerate, "empty plan", nil, nil)
	}
	f := jen.NewFilePathName(plan.ImportPath, plan.Package)
	f.HeaderComment(GeneratedHeader)
	f.ImportName(plan.Runtime, "fsm")

	e := emitter{plan: plan}
	e.machineType(f)
	e.constructor(f)
	e.initializer(f)

	if err := f.Render(w); err != nil {
		return fsmgen.NewError(fsmgen.ErrEmitFailed, fmt.Sprintf("render %s", plan.Machine), err,
			map[string]any{"machine": plan.Machine})
	}
	return nil
}

// Render returns the emitted source.
func Render(plan *Plan) ([]byte, error) {
	var buf bytes.Buffer
	if err := Emit(plan, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type emitter struct {
	plan *Plan
}

func (e emitter) qual(ref catalog.TypeRef, name string) *jen.Statement {
	if ref.Package == "" || ref.Package == e.plan.ImportPath {
		return jen.Id(name)
	}
	return jen.Qual(ref.Package, name)
}

func (e emitter) ownerType() *jen.Statement {
	owner := e.plan.Owner
	if owner.Pointer {
		return jen.Op("*").Add(e.qual(owner, owner.Name))
	}
	return e.qual(owner, owner.Name)
}

func (e emitter) runtime(name string) *jen.Statement {
	return jen.Qual(e.plan.Runtime, name)
}

func (e emitter) machineType(f *jen.File) {
	p := e.plan
	if p.Graph != "" {
		f.Commentf("%s runs the %s graph for a %s.", p.Machine, p.Graph, p.Owner.Name)
	} else {
		f.Commentf("%s is a generated state machine for a %s.", p.Machine, p.Owner.Name)
	}
	f.Type().Id(p.Machine).Struct(
		jen.Op("*").Add(e.runtime("StateMachine").Types(e.ownerType())),
	)
}

func (e emitter) constructor(f *jen.File) {
	p := e.plan
	name := "New" + p.Machine
	f.Commentf("%s wires every state and transition and enters the initial state.", name)
	f.Func().Id(name).Params(
		jen.Id("owner").Add(e.ownerType()),
		jen.Id("opts").Op("...").Add(e.runtime("Option").Types(e.ownerType())),
	).Op("*").Id(p.Machine).Block(
		jen.Id("m").Op(":=").Op("&").Id(p.Machine).Values(jen.Dict{
			jen.Id("StateMachine"): e.runtime("New").Call(jen.Id("owner"), jen.Id("opts").Op("...")),
		}),
		jen.Id("m").Dot("initializeStates").Call(jen.Id("owner")),
		jen.Return(jen.Id("m")),
	)
}

func (e emitter) initializer(f *jen.File) {
	p := e.plan
	machine := func() *jen.Statement { return jen.Id("m").Dot("StateMachine") }
	var body []jen.Code

	body = append(body, jen.Comment("Create states"))
	bindings := make([]jen.Code, 0, len(p.States))
	for _, s := range p.States {
		switch s.Shape {
		case StateConstructor:
			body = append(body, jen.Id(s.Binding).Op(":=").Add(e.qual(s.Type, s.Func)).Call(jen.Id("owner"), machine()))
		default:
			body = append(body,
				jen.Id(s.Binding).Op(":=").Op("&").Add(e.qual(s.Type, s.Type.Name)).Values(),
				jen.Id(s.Binding).Dot("Bind").Call(jen.Id("owner"), machine()),
			)
		}
		bindings = append(bindings, jen.Id(s.Binding))
	}
	body = append(body, jen.Id("m").Dot("Adopt").Call(bindings...), jen.Line())

	if len(p.Transitions()) == 0 {
		body = append(body, jen.Comment("No transitions defined"), jen.Line())
	} else {
		body = append(body, jen.Comment("Add transitions"))
		for _, s := range p.States {
			for _, t := range s.Transitions {
				body = append(body, e.transition(t)...)
			}
		}
		body = append(body, jen.Line())
	}

	initial := p.States[p.Initial]
	if p.InitialMarked {
		body = append(body, jen.Comment("Set initial state"))
	} else {
		body = append(body, jen.Comment("No initial state marked, using the first state"))
	}
	body = append(body, jen.Id("m").Dot("ChangeState").Call(jen.Id(initial.Binding)))

	f.Comment("initializeStates creates the states, then adds transitions in graph order.")
	f.Func().Params(jen.Id("m").Op("*").Id(p.Machine)).Id("initializeStates").Params(
		jen.Id("owner").Add(e.ownerType()),
	).Block(body...)
}

func (e emitter) transition(t TransitionPlan) []jen.Code {
	p := e.plan
	src, dst := p.States[t.Source], p.States[t.Target]

	guard := "always true"
	if len(t.Conditions) > 0 {
		names := make([]string, 0, len(t.Conditions))
		for _, c := range t.Conditions {
			names = append(names, c.Name)
		}
		guard = strings.Join(names, ", ")
	}
	comment := fmt.Sprintf("%s → %s: %s", src.Name, dst.Name, guard)
	if t.Provenance == graph.Inferred {
		comment += " [inferred]"
	}

	out := []jen.Code{
		jen.Comment(comment),
		jen.Id(t.Binding).Op(":=").Add(e.runtime("NewTransition")).Call(jen.Id(dst.Binding)),
	}
	for _, c := range t.Conditions {
		out = append(out, jen.Id(t.Binding).Dot("AddCondition").Call(e.condition(c)))
	}
	out = append(out, jen.Id(src.Binding).Dot("AddTransition").Call(jen.Id(t.Binding)))
	return out
}

func (e emitter) condition(c ConditionPlan) *jen.Statement {
	switch {
	case c.Shape == ConditionOwner:
		return e.qual(c.Type, c.Func).Call(jen.Id("owner"))
	case c.Func != "":
		return e.qual(c.Type, c.Func).Call()
	default:
		return jen.Op("&").Add(e.qual(c.Type, c.Type.Name)).Values()
	}
}
