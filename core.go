package banjo

import (
	"math"
)

// Minimal expression language produced by the desugarer. Nodes are only built
// through the Context factory methods, which intern them so that structurally
// identical trees share one pointer.
type CoreExpr interface {
	SourceRanges() SourceRanges
	Hash() uint64
	coreExpr()
}

// Literal Kinds
const (
	LITERAL_NUMBER   = "number"
	LITERAL_STRING   = "string"
	LITERAL_ELLIPSIS = "ellipsis"
)

type CoreIdentifier struct {
	Ranges SourceRanges
	Name   string
	hash   uint64
}

type CoreLiteral struct {
	Ranges SourceRanges
	Kind   string
	Number float64
	Unit   string
	Text   string
	hash   uint64
}

// Calls the slot named Method on the value of Target. Function application
// is the method "()".
type CoreCall struct {
	Ranges    SourceRanges
	Target    CoreExpr
	Method    string
	Arguments []CoreExpr
	hash      uint64
}

// A named expression, used for both object slots and let bindings. The empty
// name marks a slot or binding that only carries a problem.
type CoreSlot struct {
	Name  string
	Value CoreExpr
}

type CoreLet struct {
	Ranges   SourceRanges
	Bindings []CoreSlot
	Body     CoreExpr
	hash     uint64
}

// Evaluates Body in the scope of the value of Object. A base projection has
// no Object and looks Body up on the enclosing object (`self.x`).
type CoreProjection struct {
	Ranges SourceRanges
	Object CoreExpr
	Body   CoreExpr
	Base   bool
	hash   uint64
}

type CoreObject struct {
	Ranges SourceRanges
	Slots  []CoreSlot
	hash   uint64
}

type CoreList struct {
	Ranges   SourceRanges
	Elements []CoreExpr
	hash     uint64
}

type CoreFunction struct {
	Ranges     SourceRanges
	Parameters []string
	Body       CoreExpr
	hash       uint64
}

type CoreBad struct {
	Ranges  SourceRanges
	Message string
	hash    uint64
}

func (self *CoreIdentifier) SourceRanges() SourceRanges { return self.Ranges }
func (self *CoreLiteral) SourceRanges() SourceRanges    { return self.Ranges }
func (self *CoreCall) SourceRanges() SourceRanges       { return self.Ranges }
func (self *CoreLet) SourceRanges() SourceRanges        { return self.Ranges }
func (self *CoreProjection) SourceRanges() SourceRanges { return self.Ranges }
func (self *CoreObject) SourceRanges() SourceRanges     { return self.Ranges }
func (self *CoreList) SourceRanges() SourceRanges       { return self.Ranges }
func (self *CoreFunction) SourceRanges() SourceRanges   { return self.Ranges }
func (self *CoreBad) SourceRanges() SourceRanges        { return self.Ranges }

func (self *CoreIdentifier) Hash() uint64 { return self.hash }
func (self *CoreLiteral) Hash() uint64    { return self.hash }
func (self *CoreCall) Hash() uint64       { return self.hash }
func (self *CoreLet) Hash() uint64        { return self.hash }
func (self *CoreProjection) Hash() uint64 { return self.hash }
func (self *CoreObject) Hash() uint64     { return self.hash }
func (self *CoreList) Hash() uint64       { return self.hash }
func (self *CoreFunction) Hash() uint64   { return self.hash }
func (self *CoreBad) Hash() uint64        { return self.hash }

func (self *CoreIdentifier) coreExpr() {}
func (self *CoreLiteral) coreExpr()    {}
func (self *CoreCall) coreExpr()       {}
func (self *CoreLet) coreExpr()        {}
func (self *CoreProjection) coreExpr() {}
func (self *CoreObject) coreExpr()     {}
func (self *CoreList) coreExpr()       {}
func (self *CoreFunction) coreExpr()   {}
func (self *CoreBad) coreExpr()        {}

func (self *CoreBad) Problem() BadExpr {
	return BadExpr{Message: self.Message, Ranges: self.Ranges}
}

func hashRanges(hash uint64, ranges SourceRanges) uint64 {
	return combineHash(hash, fnv1a(ranges.String()))
}

func hashChild(hash uint64, child CoreExpr) uint64 {
	if child == nil {
		return combineHash(hash, 0)
	}
	return combineHash(hash, child.Hash())
}

func hashSlots(hash uint64, slots []CoreSlot) uint64 {
	hash = combineHash(hash, uint64(len(slots)))
	for _, slot := range slots {
		hash = combineHash(hash, fnv1a(slot.Name))
		hash = hashChild(hash, slot.Value)
	}
	return hash
}

func (ctx *Context) NewCoreIdentifier(ranges SourceRanges, name string) *CoreIdentifier {
	hash := hashRanges(fnv1a("identifier\x00"+name), ranges)
	return ctx.arena.intern(&CoreIdentifier{Ranges: ranges, Name: name, hash: hash}).(*CoreIdentifier)
}

func (ctx *Context) NewCoreNumber(ranges SourceRanges, value float64, unit string) *CoreLiteral {
	hash := combineHash(fnv1a("number\x00"+unit), math.Float64bits(value))
	hash = hashRanges(hash, ranges)
	return ctx.arena.intern(&CoreLiteral{Ranges: ranges, Kind: LITERAL_NUMBER, Number: value, Unit: unit, hash: hash}).(*CoreLiteral)
}

func (ctx *Context) NewCoreString(ranges SourceRanges, text string) *CoreLiteral {
	hash := hashRanges(fnv1a("string\x00"+text), ranges)
	return ctx.arena.intern(&CoreLiteral{Ranges: ranges, Kind: LITERAL_STRING, Text: text, hash: hash}).(*CoreLiteral)
}

func (ctx *Context) NewCoreEllipsis(ranges SourceRanges) *CoreLiteral {
	hash := hashRanges(fnv1a("ellipsis"), ranges)
	return ctx.arena.intern(&CoreLiteral{Ranges: ranges, Kind: LITERAL_ELLIPSIS, hash: hash}).(*CoreLiteral)
}

func (ctx *Context) NewCoreCall(ranges SourceRanges, target CoreExpr, method string, arguments []CoreExpr) *CoreCall {
	hash := hashChild(fnv1a("call\x00"+method), target)
	hash = combineHash(hash, uint64(len(arguments)))
	for _, argument := range arguments {
		hash = hashChild(hash, argument)
	}
	hash = hashRanges(hash, ranges)
	node := &CoreCall{Ranges: ranges, Target: target, Method: method, Arguments: arguments, hash: hash}
	return ctx.arena.intern(node).(*CoreCall)
}

func (ctx *Context) NewCoreLet(ranges SourceRanges, bindings []CoreSlot, body CoreExpr) *CoreLet {
	hash := hashSlots(fnv1a("let"), bindings)
	hash = hashChild(hash, body)
	hash = hashRanges(hash, ranges)
	return ctx.arena.intern(&CoreLet{Ranges: ranges, Bindings: bindings, Body: body, hash: hash}).(*CoreLet)
}

func (ctx *Context) NewCoreProjection(ranges SourceRanges, object CoreExpr, body CoreExpr) *CoreProjection {
	hash := hashChild(hashChild(fnv1a("projection"), object), body)
	hash = hashRanges(hash, ranges)
	return ctx.arena.intern(&CoreProjection{Ranges: ranges, Object: object, Body: body, hash: hash}).(*CoreProjection)
}

func (ctx *Context) NewCoreBaseProjection(ranges SourceRanges, body CoreExpr) *CoreProjection {
	hash := hashChild(fnv1a("base-projection"), body)
	hash = hashRanges(hash, ranges)
	return ctx.arena.intern(&CoreProjection{Ranges: ranges, Body: body, Base: true, hash: hash}).(*CoreProjection)
}

func (ctx *Context) NewCoreObject(ranges SourceRanges, slots []CoreSlot) *CoreObject {
	hash := hashRanges(hashSlots(fnv1a("object"), slots), ranges)
	return ctx.arena.intern(&CoreObject{Ranges: ranges, Slots: slots, hash: hash}).(*CoreObject)
}

func (ctx *Context) NewCoreList(ranges SourceRanges, elements []CoreExpr) *CoreList {
	hash := combineHash(fnv1a("list"), uint64(len(elements)))
	for _, element := range elements {
		hash = hashChild(hash, element)
	}
	hash = hashRanges(hash, ranges)
	return ctx.arena.intern(&CoreList{Ranges: ranges, Elements: elements, hash: hash}).(*CoreList)
}

func (ctx *Context) NewCoreFunction(ranges SourceRanges, parameters []string, body CoreExpr) *CoreFunction {
	hash := combineHash(fnv1a("function"), uint64(len(parameters)))
	for _, parameter := range parameters {
		hash = combineHash(hash, fnv1a(parameter))
	}
	hash = hashRanges(hashChild(hash, body), ranges)
	node := &CoreFunction{Ranges: ranges, Parameters: parameters, Body: body, hash: hash}
	return ctx.arena.intern(node).(*CoreFunction)
}

func (ctx *Context) NewCoreBad(ranges SourceRanges, message string) *CoreBad {
	hash := hashRanges(fnv1a("bad\x00"+message), ranges)
	return ctx.arena.intern(&CoreBad{Ranges: ranges, Message: message, hash: hash}).(*CoreBad)
}

// Calls visit on each direct child of e in evaluation order.
func eachChild(e CoreExpr, visit func(CoreExpr)) {
	switch e := e.(type) {
	case *CoreCall:
		visit(e.Target)
		for _, argument := range e.Arguments {
			visit(argument)
		}
	case *CoreLet:
		for _, binding := range e.Bindings {
			visit(binding.Value)
		}
		visit(e.Body)
	case *CoreProjection:
		if e.Object != nil {
			visit(e.Object)
		}
		visit(e.Body)
	case *CoreObject:
		for _, slot := range e.Slots {
			visit(slot.Value)
		}
	case *CoreList:
		for _, element := range e.Elements {
			visit(element)
		}
	case *CoreFunction:
		visit(e.Body)
	}
}
