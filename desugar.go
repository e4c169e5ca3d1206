package banjo

import (
	"fmt"
)

type DesugarResult struct {
	Expr     CoreExpr
	Problems []BadExpr
}

type desugarer struct {
	ctx      *Context
	problems []BadExpr
	objects  int // Number of object literals enclosing the current expression.
}

// Lowers a source tree into a core tree. Every source form produces some core
// expression; invalid forms produce a CoreBad in place and a problem. Bad
// source nodes are carried over without being reported again.
func Desugar(ctx *Context, e SourceExpr) DesugarResult {
	self := &desugarer{ctx: ctx}
	result := self.expr(e)
	return DesugarResult{Expr: result, Problems: self.problems}
}

func rangesOf(e SourceExpr) SourceRanges {
	return NewSourceRanges(e.SourceRange())
}

func isSelf(e SourceExpr) bool {
	identifier, ok := e.(*SourceIdentifier)
	return ok && identifier.Name == "self"
}

func (self *desugarer) bad(ranges SourceRanges, message string) *CoreBad {
	self.problems = append(self.problems, BadExpr{Message: message, Ranges: ranges})
	return self.ctx.NewCoreBad(ranges, message)
}

// Keeps expressions that have no place in the result alive under unnamed
// bindings so that their problems stay reachable from the tree.
func (self *desugarer) keep(kept []CoreExpr, e CoreExpr) CoreExpr {
	if len(kept) == 0 {
		return e
	}
	bindings := make([]CoreSlot, len(kept))
	for i, k := range kept {
		bindings[i] = CoreSlot{Name: "", Value: k}
	}
	return self.ctx.NewCoreLet(e.SourceRanges(), bindings, e)
}

func (self *desugarer) lazy(e SourceExpr) CoreExpr {
	return self.ctx.NewCoreFunction(rangesOf(e), nil, self.expr(e))
}

func (self *desugarer) expr(e SourceExpr) CoreExpr {
	r := rangesOf(e)
	switch e := e.(type) {
	case *SourceNumber:
		return self.ctx.NewCoreNumber(r, e.Value, e.Unit)
	case *SourceString:
		return self.ctx.NewCoreString(r, e.Value)
	case *SourceEllipsis:
		return self.ctx.NewCoreEllipsis(r)
	case *SourceIdentifier:
		if e.Name == "self" {
			return self.bad(r, fmt.Sprintf("%s must be followed by %s and a slot name", quote("self"), quote(".")))
		}
		return self.ctx.NewCoreIdentifier(r, e.Name)
	case *SourceBad:
		return self.ctx.NewCoreBad(r, e.Message)
	case *SourceUnary:
		return self.ctx.NewCoreCall(r, self.expr(e.Operand), e.Operator.Name, nil)
	case *SourceBinary:
		return self.binary(e)
	case *SourceCall:
		return self.call(e)
	case *SourceGroup:
		return self.group(e)
	case *SourceLet:
		return self.let(e)
	case *SourceIf:
		condition := self.expr(e.Condition)
		branches := []CoreExpr{self.lazy(e.Then), self.lazy(e.Else)}
		return self.ctx.NewCoreCall(r, condition, OP_IF, branches)
	}
	panic("unreachable")
}

func (self *desugarer) binary(e *SourceBinary) CoreExpr {
	r := rangesOf(e)
	switch e.Operator.Name {
	case OP_SLOT, OP_BIND:
		bad := self.bad(NewSourceRanges(e.OperatorRange), fmt.Sprintf("%s is only allowed in a block", quote(e.Operator.Symbol)))
		return self.keep([]CoreExpr{self.expr(e.Right)}, bad)
	case OP_FUNCTION:
		parameters, bads := self.parameters(e.Left)
		body := self.keep(bads, self.expr(e.Right))
		return self.ctx.NewCoreFunction(r, parameters, body)
	case OP_AND, OP_OR:
		left := self.expr(e.Left)
		return self.ctx.NewCoreCall(r, left, e.Operator.Name, []CoreExpr{self.lazy(e.Right)})
	case OP_PROJECTION:
		return self.projection(e)
	}
	left := self.expr(e.Left)
	right := self.expr(e.Right)
	return self.ctx.NewCoreCall(r, left, e.Operator.Name, []CoreExpr{right})
}

func (self *desugarer) projection(e *SourceBinary) CoreExpr {
	r := rangesOf(e)
	if isSelf(e.Left) {
		field, ok := e.Right.(*SourceIdentifier)
		if !ok {
			return self.bad(r, fmt.Sprintf("expected a slot name after %s", quote("self.")))
		}
		if self.objects == 0 {
			return self.bad(r, fmt.Sprintf("%s used outside of an object", quote("self")))
		}
		return self.ctx.NewCoreBaseProjection(r, self.ctx.NewCoreIdentifier(rangesOf(field), field.Name))
	}

	object := self.expr(e.Left)
	var body CoreExpr
	if field, ok := e.Right.(*SourceIdentifier); ok {
		body = self.ctx.NewCoreIdentifier(rangesOf(field), field.Name)
	} else {
		body = self.expr(e.Right)
	}
	return self.ctx.NewCoreProjection(r, object, body)
}

func (self *desugarer) call(e *SourceCall) CoreExpr {
	arguments := self.arguments(e.Arguments)
	if projection, ok := isSourceOperator(e.Target, OP_PROJECTION); ok && !isSelf(projection.Left) {
		if field, ok := projection.Right.(*SourceIdentifier); ok {
			fused := NewSourceRanges(e.Range, field.Range)
			return self.ctx.NewCoreCall(fused, self.expr(projection.Left), field.Name, arguments)
		}
	}
	return self.ctx.NewCoreCall(rangesOf(e), self.expr(e.Target), OP_CALL, arguments)
}

func (self *desugarer) arguments(e SourceExpr) []CoreExpr {
	group, ok := e.(*SourceGroup)
	if !ok {
		return []CoreExpr{self.expr(e)}
	}
	arguments := make([]CoreExpr, len(group.Items))
	for i, item := range group.Items {
		arguments[i] = self.expr(item)
	}
	return arguments
}

func (self *desugarer) group(e *SourceGroup) CoreExpr {
	r := rangesOf(e)
	switch e.Kind {
	case GROUP_BRACKET:
		elements := make([]CoreExpr, len(e.Items))
		for i, item := range e.Items {
			elements[i] = self.expr(item)
		}
		return self.ctx.NewCoreList(r, elements)
	case GROUP_BRACE:
		return self.object(e, true)
	case GROUP_PAREN:
		if len(e.Items) == 0 {
			return self.bad(r, "empty parentheses")
		}
		if len(e.Items) == 1 && !isDefinition(e.Items[0]) {
			return self.expr(e.Items[0])
		}
	}
	return self.block(e)
}

// A sequence of items: slots make an object, bindings followed by one result
// make a let, and a single expression is itself.
func (self *desugarer) block(e *SourceGroup) CoreExpr {
	onlyBad := true
	for _, item := range e.Items {
		if _, ok := isSourceOperator(item, OP_SLOT); ok {
			return self.object(e, false)
		}
		if _, ok := item.(*SourceBad); !ok {
			onlyBad = false
		}
	}
	if onlyBad {
		return self.object(e, false)
	}

	last := -1
	for i, item := range e.Items {
		if _, ok := item.(*SourceBad); !ok {
			last = i
		}
	}

	bindings := newSlotList(self, "binding")
	var kept []CoreExpr
	var result CoreExpr
	for i, item := range e.Items {
		if bad, ok := item.(*SourceBad); ok {
			kept = append(kept, self.expr(bad))
			continue
		}
		if binary, ok := isSourceOperator(item, OP_BIND); ok {
			for _, bound := range self.binding(binary) {
				bindings.add(bound)
			}
			continue
		}
		if i == last {
			result = self.expr(item)
			continue
		}
		bad := self.bad(rangesOf(item), "unexpected expression, only the last item of a block is its result")
		kept = append(kept, self.keep([]CoreExpr{self.expr(item)}, bad))
	}
	if result == nil {
		end := e.Range
		end.Start = end.End
		result = self.bad(NewSourceRanges(end), "block has no result expression")
	}
	if len(bindings.slots) == 0 {
		return self.keep(kept, result)
	}

	slots := bindings.slots
	for _, k := range kept {
		slots = append(slots, CoreSlot{Name: "", Value: k})
	}
	return self.ctx.NewCoreLet(rangesOf(e), slots, result)
}

type boundName struct {
	name  string
	value CoreExpr
	r     SourceRange
}

// Ordered slots or bindings with duplicate detection.
type slotList struct {
	d     *desugarer
	what  string
	slots []CoreSlot
	seen  map[string]bool
}

func newSlotList(d *desugarer, what string) *slotList {
	return &slotList{d: d, what: what, seen: map[string]bool{}}
}

func (self *slotList) add(bound boundName) {
	if bound.name != "" && self.seen[bound.name] {
		bad := self.d.bad(NewSourceRanges(bound.r), fmt.Sprintf("duplicate %s %s", self.what, quote(bound.name)))
		self.slots = append(self.slots, CoreSlot{Name: "", Value: self.d.keep([]CoreExpr{bound.value}, bad)})
		return
	}
	if bound.name != "" {
		self.seen[bound.name] = true
	}
	self.slots = append(self.slots, CoreSlot{Name: bound.name, Value: bound.value})
}

func (self *slotList) addUnnamed(value CoreExpr) {
	self.slots = append(self.slots, CoreSlot{Name: "", Value: value})
}

func (self *desugarer) validName(identifier *SourceIdentifier, what string) (string, *CoreBad) {
	if identifier.Name == "self" || keywords[identifier.Name] {
		return "", self.bad(rangesOf(identifier), fmt.Sprintf("%s cannot be used as a %s name", quote(identifier.Name), what))
	}
	return identifier.Name, nil
}

// Object from a brace literal (puns allowed) or from a block of slots.
func (self *desugarer) object(e *SourceGroup, puns bool) CoreExpr {
	self.objects += 1
	defer func() { self.objects -= 1 }()

	slots := newSlotList(self, "slot")
	var punned []CoreSlot
	for _, item := range e.Items {
		switch item := item.(type) {
		case *SourceBad:
			slots.addUnnamed(self.expr(item))
			continue
		case *SourceIdentifier:
			if puns {
				name, bad := self.validName(item, "slot")
				if bad != nil {
					slots.addUnnamed(bad)
					continue
				}
				// The pun refers to the enclosing scope, not to the slot itself.
				hidden := "$" + name
				r := rangesOf(item)
				punned = append(punned, CoreSlot{Name: hidden, Value: self.ctx.NewCoreIdentifier(r, name)})
				slots.add(boundName{name, self.ctx.NewCoreIdentifier(r, hidden), item.Range})
				continue
			}
		}

		if binary, ok := isSourceOperator(item, OP_SLOT); ok {
			name, value := self.slot(binary)
			slots.add(boundName{name, value, binary.Left.SourceRange()})
			continue
		}
		if binary, ok := isSourceOperator(item, OP_BIND); ok {
			bad := self.bad(NewSourceRanges(binary.OperatorRange), fmt.Sprintf("binding in an object, use %s to define a slot", quote(":")))
			slots.addUnnamed(self.keep([]CoreExpr{self.expr(binary.Right)}, bad))
			continue
		}
		bad := self.bad(rangesOf(item), "expected a slot definition")
		slots.addUnnamed(self.keep([]CoreExpr{self.expr(item)}, bad))
	}

	object := self.ctx.NewCoreObject(rangesOf(e), slots.slots)
	if len(punned) == 0 {
		return object
	}
	return self.ctx.NewCoreLet(rangesOf(e), punned, object)
}

func (self *desugarer) slot(binary *SourceBinary) (string, CoreExpr) {
	switch left := binary.Left.(type) {
	case *SourceIdentifier:
		name, bad := self.validName(left, "slot")
		if bad != nil {
			return "", self.keep([]CoreExpr{self.expr(binary.Right)}, bad)
		}
		return name, self.expr(binary.Right)
	case *SourceCall:
		if target, ok := left.Target.(*SourceIdentifier); ok {
			name, bad := self.validName(target, "slot")
			if bad != nil {
				return "", self.keep([]CoreExpr{self.expr(binary.Right)}, bad)
			}
			parameters, bads := self.parameters(left.Arguments)
			body := self.keep(bads, self.expr(binary.Right))
			return name, self.ctx.NewCoreFunction(rangesOf(binary), parameters, body)
		}
	}
	bad := self.bad(rangesOf(binary.Left), "invalid slot name")
	return "", self.keep([]CoreExpr{self.expr(binary.Right)}, bad)
}

func (self *desugarer) binding(binary *SourceBinary) []boundName {
	switch left := binary.Left.(type) {
	case *SourceIdentifier:
		name, bad := self.validName(left, "binding")
		if bad != nil {
			return []boundName{{"", self.keep([]CoreExpr{self.expr(binary.Right)}, bad), left.Range}}
		}
		return []boundName{{name, self.expr(binary.Right), left.Range}}
	case *SourceCall:
		if target, ok := left.Target.(*SourceIdentifier); ok {
			name, bad := self.validName(target, "binding")
			if bad != nil {
				return []boundName{{"", self.keep([]CoreExpr{self.expr(binary.Right)}, bad), target.Range}}
			}
			parameters, bads := self.parameters(left.Arguments)
			body := self.keep(bads, self.expr(binary.Right))
			return []boundName{{name, self.ctx.NewCoreFunction(rangesOf(binary), parameters, body), target.Range}}
		}
	case *SourceGroup:
		if left.Kind == GROUP_BRACE {
			var result []boundName
			self.destructure(left, self.expr(binary.Right), &result)
			return result
		}
	}
	bad := self.bad(rangesOf(binary.Left), "invalid binding pattern")
	return []boundName{{"", self.keep([]CoreExpr{self.expr(binary.Right)}, bad), binary.Left.SourceRange()}}
}

// Binds the names of an object pattern to projections of source. The source
// is bound once under a name that cannot be written in source text.
func (self *desugarer) destructure(pattern *SourceGroup, source CoreExpr, out *[]boundName) {
	hidden := fmt.Sprintf("$%d", pattern.Range.Start.Offset)
	*out = append(*out, boundName{hidden, source, pattern.Range})
	object := self.ctx.NewCoreIdentifier(rangesOf(pattern), hidden)

	field := func(identifier *SourceIdentifier) CoreExpr {
		body := self.ctx.NewCoreIdentifier(rangesOf(identifier), identifier.Name)
		return self.ctx.NewCoreProjection(rangesOf(identifier), object, body)
	}

	for _, item := range pattern.Items {
		if identifier, ok := item.(*SourceIdentifier); ok {
			name, bad := self.validName(identifier, "binding")
			if bad != nil {
				*out = append(*out, boundName{"", bad, identifier.Range})
				continue
			}
			*out = append(*out, boundName{name, field(identifier), identifier.Range})
			continue
		}
		if binary, ok := isSourceOperator(item, OP_SLOT); ok {
			key, keyOk := binary.Left.(*SourceIdentifier)
			if keyOk {
				switch target := binary.Right.(type) {
				case *SourceIdentifier:
					name, bad := self.validName(target, "binding")
					if bad != nil {
						*out = append(*out, boundName{"", bad, target.Range})
						continue
					}
					*out = append(*out, boundName{name, field(key), target.Range})
					continue
				case *SourceGroup:
					if target.Kind == GROUP_BRACE {
						self.destructure(target, field(key), out)
						continue
					}
				}
			}
		}
		if bad, ok := item.(*SourceBad); ok {
			*out = append(*out, boundName{"", self.expr(bad), bad.Range})
			continue
		}
		*out = append(*out, boundName{"", self.bad(rangesOf(item), "invalid binding pattern"), item.SourceRange()})
	}
}

func (self *desugarer) let(e *SourceLet) CoreExpr {
	var items []SourceExpr
	for _, binding := range e.Bindings {
		if group, ok := binding.(*SourceGroup); ok && (group.Kind == GROUP_BLOCK || group.Kind == GROUP_PAREN) {
			items = append(items, group.Items...)
			continue
		}
		items = append(items, binding)
	}

	bindings := newSlotList(self, "binding")
	for _, item := range items {
		if bad, ok := item.(*SourceBad); ok {
			bindings.addUnnamed(self.expr(bad))
			continue
		}
		if binary, ok := isSourceOperator(item, OP_BIND); ok {
			for _, bound := range self.binding(binary) {
				bindings.add(bound)
			}
			continue
		}
		if binary, ok := isSourceOperator(item, OP_SLOT); ok {
			bad := self.bad(NewSourceRanges(binary.OperatorRange), fmt.Sprintf("slot definition in a let, use %s to bind a name", quote("=")))
			bindings.addUnnamed(self.keep([]CoreExpr{self.expr(binary.Right)}, bad))
			continue
		}
		bad := self.bad(rangesOf(item), "expected a binding")
		bindings.addUnnamed(self.keep([]CoreExpr{self.expr(item)}, bad))
	}
	return self.ctx.NewCoreLet(rangesOf(e), bindings.slots, self.expr(e.Body))
}

// Parameter lists are a single name or a parenthesized list of names.
func (self *desugarer) parameters(e SourceExpr) ([]string, []CoreExpr) {
	var names []SourceExpr
	switch e := e.(type) {
	case *SourceIdentifier:
		names = []SourceExpr{e}
	case *SourceGroup:
		if e.Kind != GROUP_PAREN {
			return nil, []CoreExpr{self.bad(rangesOf(e), "invalid parameter list")}
		}
		names = e.Items
	default:
		return nil, []CoreExpr{self.bad(rangesOf(e), "invalid parameter list")}
	}

	parameters := []string{}
	var bads []CoreExpr
	seen := map[string]bool{}
	for _, item := range names {
		identifier, ok := item.(*SourceIdentifier)
		if !ok {
			if bad, ok := item.(*SourceBad); ok {
				bads = append(bads, self.expr(bad))
				continue
			}
			bads = append(bads, self.bad(rangesOf(item), "invalid parameter"))
			continue
		}
		name, bad := self.validName(identifier, "parameter")
		if bad != nil {
			bads = append(bads, bad)
			continue
		}
		if seen[name] {
			bads = append(bads, self.bad(rangesOf(identifier), fmt.Sprintf("duplicate parameter %s", quote(name))))
			continue
		}
		seen[name] = true
		parameters = append(parameters, name)
	}
	return parameters, bads
}
