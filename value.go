package banjo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Value interface {
	Typename() string
	String() string
	Hash() uint64
	Equal(Value) bool
	CombEncode(e *CombEncoder) error
	// Dynamic dispatch: returns the member named name, or a slot-not-found
	// fail when the value has no such member.
	Slot(trace *Trace, name string) Value
}

type Boolean struct {
	data bool
}

func (self *Boolean) Typename() string {
	return "boolean"
}

func (self *Boolean) String() string {
	if self.data {
		return "true"
	}
	return "false"
}

func (self *Boolean) Hash() uint64 {
	if self.data {
		return 1
	}
	return 0
}

func (self *Boolean) Equal(other Value) bool {
	othr, ok := other.(*Boolean)
	if !ok {
		return false
	}
	return self.data == othr.data
}

func (self *Boolean) CombEncode(e *CombEncoder) error {
	return e.writeString(self.String())
}

func (self *Boolean) Slot(trace *Trace, name string) Value {
	return lookupMethod(trace, self, booleanMethods, name)
}

func (self *Boolean) Data() bool {
	return self.data
}

type Number struct {
	data float64
	unit string
}

func (self *Number) Typename() string {
	return "number"
}

func (self *Number) String() string {
	if math.IsNaN(self.data) {
		return "NaN"
	}
	if self.data == math.Inf(+1) {
		return "Inf"
	}
	if self.data == math.Inf(-1) {
		return "-Inf"
	}
	return strconv.FormatFloat(self.data, 'g', -1, 64) + self.unit
}

func (self *Number) Hash() uint64 {
	return combineHash(math.Float64bits(self.data), fnv1a(self.unit))
}

func (self *Number) Equal(other Value) bool {
	othr, ok := other.(*Number)
	if !ok {
		return false
	}
	return self.data == othr.data && self.unit == othr.unit
}

func (self *Number) CombEncode(e *CombEncoder) error {
	if math.IsInf(self.data, 0) || math.IsNaN(self.data) {
		return e.fail("invalid comb value %s", self.String())
	}
	if self.unit != "" {
		return e.writeString(fmt.Sprintf("\"%s\"", escape(self.String())))
	}
	return e.writeString(self.String())
}

func (self *Number) Slot(trace *Trace, name string) Value {
	return lookupMethod(trace, self, numberMethods, name)
}

func (self *Number) Data() float64 {
	return self.data
}

func (self *Number) Unit() string {
	return self.unit
}

type String struct {
	data string
}

func (self *String) Typename() string {
	return "string"
}

func (self *String) String() string {
	return fmt.Sprintf("\"%s\"", escape(self.data))
}

func (self *String) Hash() uint64 {
	return fnv1a(self.data)
}

func (self *String) Equal(other Value) bool {
	othr, ok := other.(*String)
	if !ok {
		return false
	}
	return self.data == othr.data
}

func (self *String) CombEncode(e *CombEncoder) error {
	return e.writeString(self.String())
}

func (self *String) Slot(trace *Trace, name string) Value {
	return lookupMethod(trace, self, stringMethods, name)
}

func (self *String) Data() string {
	return self.data
}

type List struct {
	elements []Value
}

func (self *List) Typename() string {
	return "list"
}

func (self *List) String() string {
	if len(self.elements) == 0 {
		return "[]"
	}

	s := make([]string, len(self.elements))
	for i, element := range self.elements {
		s[i] = element.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(s, ", "))
}

func (self *List) Hash() uint64 {
	hash := fnv1a("list")
	for _, element := range self.elements {
		hash = combineHash(hash, element.Hash())
	}
	return hash
}

func (self *List) Equal(other Value) bool {
	othr, ok := other.(*List)
	if !ok {
		return false
	}
	if self.Count() != othr.Count() {
		return false
	}
	for i := range self.elements {
		if !self.elements[i].Equal(othr.elements[i]) {
			return false
		}
	}
	return true
}

func (self *List) CombEncode(e *CombEncoder) error {
	return e.writeSequence("[", "]", len(self.elements), func(i int) {
		self.elements[i].CombEncode(e)
	})
}

func (self *List) Slot(trace *Trace, name string) Value {
	return lookupMethod(trace, self, listMethods, name)
}

func (self *List) Count() int {
	return len(self.elements)
}

func (self *List) Get(index int) Value {
	return self.elements[index]
}

// Slots are evaluated on first use and remembered. The scope environment holds
// the slots and `self`, and is the environment slot expressions run in.
type Object struct {
	slots map[string]*thunk
	order []string
	scope *Environment
}

func newObject(env *Environment, expr *CoreObject) *Object {
	self := &Object{
		slots: make(map[string]*thunk, len(expr.Slots)),
		scope: NewEnvironment(env),
	}
	self.scope.Let("self", self)
	for _, slot := range expr.Slots {
		if slot.Name == "" {
			continue
		}
		if _, ok := self.slots[slot.Name]; ok {
			continue
		}
		t := deferredThunk(slot.Name, slot.Value, self.scope)
		self.slots[slot.Name] = t
		self.order = append(self.order, slot.Name)
		self.scope.store[slot.Name] = t
	}
	return self
}

func (self *Object) Typename() string {
	return "object"
}

func (self *Object) String() string {
	s := make([]string, len(self.order))
	for i, name := range self.order {
		slot := self.slots[name]
		if slot.state == thunkDone {
			s[i] = fmt.Sprintf("%s: %s", name, slot.value.String())
		} else {
			s[i] = fmt.Sprintf("%s: …", name)
		}
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ", "))
}

func (self *Object) Hash() uint64 {
	hash := fnv1a("object")
	for _, name := range self.order {
		hash = combineHash(hash, fnv1a(name))
	}
	return hash
}

// Objects have identity: two object values are equal only when they are the
// same object.
func (self *Object) Equal(other Value) bool {
	othr, ok := other.(*Object)
	return ok && self == othr
}

func (self *Object) CombEncode(e *CombEncoder) error {
	return e.writeSequence("{", "}", len(self.order), func(i int) {
		name := self.order[i]
		slot := self.slots[name]
		e.writeString(fmt.Sprintf("\"%s\": ", escape(name)))
		if slot.state != thunkDone {
			e.fail("invalid comb value: slot %s is not evaluated", quote(name))
			return
		}
		slot.value.CombEncode(e)
	})
}

func (self *Object) Slot(trace *Trace, name string) Value {
	if slot, ok := self.slots[name]; ok {
		return slot.force(trace)
	}
	return lookupMethod(trace, self, objectMethods, name)
}

func (self *Object) HasSlot(name string) bool {
	_, ok := self.slots[name]
	return ok
}

func (self *Object) SlotNames() []string {
	return append([]string{}, self.order...)
}

// Environment in which projections onto this object evaluate.
func (self *Object) Scope() *Environment {
	return self.scope
}

type Function struct {
	parameters []string
	body       CoreExpr
	env        *Environment
}

func (self *Function) Typename() string {
	return "function"
}

func (self *Function) String() string {
	return fmt.Sprintf("(%s) ↦ %s", strings.Join(self.parameters, ", "), FormatCore(self.body))
}

func (self *Function) Hash() uint64 {
	return self.body.Hash()
}

func (self *Function) Equal(other Value) bool {
	othr, ok := other.(*Function)
	return ok && self == othr
}

func (self *Function) CombEncode(e *CombEncoder) error {
	return e.fail("invalid comb value %s", self.String())
}

func (self *Function) Slot(trace *Trace, name string) Value {
	return lookupMethod(trace, self, functionMethods, name)
}

type BuiltinFunc func(trace *Trace, receiver Value, arguments []Value) Value

// Native function, optionally bound to the value it was looked up on.
type Builtin struct {
	name     string
	arity    int // Negative for any number of arguments.
	receiver Value
	call     BuiltinFunc
}

func (self *Builtin) Typename() string {
	return "builtin"
}

func (self *Builtin) String() string {
	return fmt.Sprintf("builtin %s", quote(self.name))
}

func (self *Builtin) Hash() uint64 {
	return fnv1a(self.name)
}

func (self *Builtin) Equal(other Value) bool {
	othr, ok := other.(*Builtin)
	return ok && self == othr
}

func (self *Builtin) CombEncode(e *CombEncoder) error {
	return e.fail("invalid comb value %s", self.String())
}

func (self *Builtin) Slot(trace *Trace, name string) Value {
	return lookupMethod(trace, self, functionMethods, name)
}

// Fail Kinds
const (
	FAIL_FAILURE         = "failure"
	FAIL_UNRESOLVED      = "unresolved-reference"
	FAIL_SLOT_NOT_FOUND  = "slot-not-found"
	FAIL_TYPE            = "type"
	FAIL_ARITY           = "arity"
	FAIL_NOT_IMPLEMENTED = "not-implemented"
	FAIL_BAD_EXPRESSION  = "bad-expression"
	FAIL_CYCLIC          = "cyclic"
	FAIL_CANCELLED       = "cancelled"
	FAIL_TOO_DEEP        = "too-deep"
)

// Unsuccessful computation. Fails propagate: every slot of a fail is the fail
// itself.
type Fail struct {
	Kind    string
	Message string
	Trace   []TraceElement
}

func (self *Fail) Typename() string {
	return "fail"
}

func (self *Fail) String() string {
	return fmt.Sprintf("fail(%s)", quote(self.Message))
}

func (self *Fail) Hash() uint64 {
	return fnv1a(self.Kind + "\x00" + self.Message)
}

func (self *Fail) Equal(other Value) bool {
	othr, ok := other.(*Fail)
	return ok && self.Kind == othr.Kind && self.Message == othr.Message
}

func (self *Fail) CombEncode(e *CombEncoder) error {
	return e.fail("invalid comb value %s", self.String())
}

func (self *Fail) Slot(trace *Trace, name string) Value {
	return self
}

func (self *Fail) Error() string {
	return self.Message
}

func IsFail(v Value) (*Fail, bool) {
	fail, ok := v.(*Fail)
	return fail, ok
}

// Reports whether v failed because a slot was missing rather than because a
// computation went wrong.
func IsSlotNotFound(v Value) bool {
	fail, ok := v.(*Fail)
	return ok && fail.Kind == FAIL_SLOT_NOT_FOUND
}

// Only the boolean true is truthy, or an object whose `truthy` slot is.
func Truthy(trace *Trace, v Value) bool {
	switch v := v.(type) {
	case *Boolean:
		return v.data
	case *Object:
		if !v.HasSlot("truthy") {
			return false
		}
		return Truthy(trace, v.Slot(trace, "truthy"))
	}
	return false
}

// Thunk States
const (
	thunkDeferred = iota
	thunkForcing
	thunkDone
)

// A deferred expression closed over its environment, evaluated at most once.
type thunk struct {
	name  string
	expr  CoreExpr
	env   *Environment
	value Value
	state int
}

func deferredThunk(name string, expr CoreExpr, env *Environment) *thunk {
	return &thunk{name: name, expr: expr, env: env, state: thunkDeferred}
}

func evaluatedThunk(name string, value Value) *thunk {
	return &thunk{name: name, value: value, state: thunkDone}
}

func (self *thunk) force(trace *Trace) Value {
	switch self.state {
	case thunkDone:
		return self.value
	case thunkForcing:
		return trace.Fail(FAIL_CYCLIC, fmt.Sprintf("cyclic definition of %s", quote(self.name)))
	}
	self.state = thunkForcing
	value := Eval(trace, self.env, self.expr)
	self.value = value
	self.state = thunkDone
	self.env = nil
	return value
}
