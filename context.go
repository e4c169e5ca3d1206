package banjo

// Shared state for one program family: canonical core nodes, constant values
// and the base environment every evaluation starts from.
type Context struct {
	True            *Boolean
	False           *Boolean
	BaseEnvironment *Environment

	arena *Arena
}

func NewContext() *Context {
	ctx := &Context{arena: NewArena()}
	ctx.True = &Boolean{true}
	ctx.False = &Boolean{false}
	ctx.BaseEnvironment = newBaseEnvironment(ctx)
	return ctx
}

func (ctx *Context) Arena() *Arena {
	return ctx.arena
}

func (ctx *Context) NewBoolean(data bool) *Boolean {
	if data {
		return ctx.True
	}
	return ctx.False
}

func (ctx *Context) NewNumber(data float64) *Number {
	return &Number{data: data}
}

func (ctx *Context) NewNumberWithUnit(data float64, unit string) *Number {
	return &Number{data: data, unit: unit}
}

func (ctx *Context) NewString(data string) *String {
	return &String{data}
}

func (ctx *Context) NewList(elements []Value) *List {
	return &List{elements}
}

type RecordField struct {
	Name  string
	Value Value
}

// Builds an object whose slots are already evaluated.
func (ctx *Context) NewRecord(fields []RecordField) *Object {
	self := &Object{
		slots: make(map[string]*thunk, len(fields)),
		scope: NewEnvironment(ctx.BaseEnvironment),
	}
	for _, field := range fields {
		if _, ok := self.slots[field.Name]; !ok {
			self.order = append(self.order, field.Name)
		}
		slot := evaluatedThunk(field.Name, field.Value)
		self.slots[field.Name] = slot
		self.scope.store[field.Name] = slot
	}
	self.scope.Let("self", self)
	return self
}

func (ctx *Context) NewBuiltin(name string, arity int, call BuiltinFunc) *Builtin {
	return &Builtin{name: name, arity: arity, call: call}
}

func (ctx *Context) NewFail(kind string, message string) *Fail {
	return &Fail{Kind: kind, Message: message}
}
