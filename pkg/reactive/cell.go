package reactive

// Cell is a single observable slot.
type Cell interface {
	// Get returns the value, registering the running reaction.
	Get() any
	// Set stores a value and notifies dependents.
	Set(value any)
	// Subscribe calls fn with every new value until cancel is called.
	Subscribe(fn func(any)) (cancel func())
}

type keyCell struct {
	obj *Object
	key string
}

// Cell returns a Cell view of one key of the object.
func (o *Object) Cell(key string) Cell {
	return keyCell{obj: o, key: key}
}

func (c keyCell) Get() any      { return c.obj.Get(c.key) }
func (c keyCell) Set(value any) { c.obj.Set(c.key, value) }
func (c keyCell) Subscribe(fn func(any)) func() {
	_, r := c.obj.g.Watch("cell:"+c.key, func() any { return c.obj.Get(c.key) }, fn)
	return r.Dispose
}

// Value is a typed observable value owned by a graph.
//
//	count := reactive.NewValue(g, 0)
//	cancel := count.Subscribe(func(n int) { fmt.Println(n) })
//	count.Update(func(n int) int { return n + 1 })
type Value[T any] struct {
	obj *Object
}

const valueKey = "value"

// NewValue creates a typed observable value with an initial value.
func NewValue[T any](g *Graph, initial T) *Value[T] {
	obj := g.Object(nil)
	obj.raw[valueKey] = initial
	return &Value[T]{obj: obj}
}

// Get returns the current value and registers the running reaction.
func (v *Value[T]) Get() T {
	out, _ := v.obj.Get(valueKey).(T)
	return out
}

// Set stores a new value and notifies dependents.
func (v *Value[T]) Set(value T) {
	v.obj.Set(valueKey, value)
}

// Update applies transform to the current value.
func (v *Value[T]) Update(transform func(T) T) {
	current, _ := v.obj.Peek(valueKey).(T)
	v.Set(transform(current))
}

// Subscribe calls fn with each new value until cancel is called.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	return v.obj.Cell(valueKey).Subscribe(func(value any) {
		typed, _ := value.(T)
		fn(typed)
	})
}
