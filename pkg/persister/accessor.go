package persister

import (
	"errors"
	"fmt"
	"reflect"
)

// TagKey is the struct tag read by NewStructAccessor.
const TagKey = "fsm"

// Accessor reads the identifier and reads or writes the state name of an
// entity. An absent value is reported with ok == false: an entity without an
// identifier has not been saved yet, and an entity without a state name is
// implicitly in the start state.
type Accessor[T any] interface {
	ID(entity T) (id any, ok bool, err error)
	State(entity T) (name string, ok bool, err error)
	SetState(entity T, name string) error
}

// AccessorFuncs adapts plain functions to Accessor.
type AccessorFuncs[T any] struct {
	IDFunc       func(T) (any, bool)
	StateFunc    func(T) (string, bool)
	SetStateFunc func(T, string)
}

// Validate reports ErrIncompleteAccessor if any function is missing.
func (a AccessorFuncs[T]) Validate() error {
	if a.IDFunc == nil || a.StateFunc == nil || a.SetStateFunc == nil {
		return ErrIncompleteAccessor
	}
	return nil
}

func (a AccessorFuncs[T]) ID(entity T) (any, bool, error) {
	if a.IDFunc == nil {
		return nil, false, accessorError(ErrIncompleteAccessor)
	}
	id, ok := a.IDFunc(entity)
	return id, ok, nil
}

func (a AccessorFuncs[T]) State(entity T) (string, bool, error) {
	if a.StateFunc == nil {
		return "", false, accessorError(ErrIncompleteAccessor)
	}
	name, ok := a.StateFunc(entity)
	return name, ok && name != "", nil
}

func (a AccessorFuncs[T]) SetState(entity T, name string) error {
	if a.SetStateFunc == nil {
		return accessorError(ErrIncompleteAccessor)
	}
	a.SetStateFunc(entity, name)
	return nil
}

// StructAccessor resolves the identifier and state fields of a struct type
// from `fsm:"id"` and `fsm:"state"` tags. Fields are located once, in
// NewStructAccessor, including fields promoted from embedded structs.
//
//	type Order struct {
//	    ID    int64  `fsm:"id"`
//	    State string `fsm:"state"`
//	}
type StructAccessor[T any] struct {
	idIndex    []int
	stateIndex []int
	statePtr   bool
}

// NewStructAccessor builds an accessor for T, which must be a pointer to a
// struct with an exported `fsm:"id"` field and an exported `fsm:"state"`
// field of type string or *string.
func NewStructAccessor[T any]() (*StructAccessor[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, configError(fmt.Errorf("%w: got %s", ErrNotStructPointer, typ))
	}
	st := typ.Elem()

	idField, ok := taggedField(st, "id")
	if !ok {
		return nil, configError(fmt.Errorf("%w on %s", ErrNoIDField, st.Name()))
	}
	if !idField.IsExported() {
		return nil, configError(fmt.Errorf("%w: %s.%s", ErrUnexportedField, st.Name(), idField.Name))
	}

	stateField, ok := taggedField(st, "state")
	if !ok {
		return nil, configError(fmt.Errorf("%w on %s", ErrNoStateField, st.Name()))
	}
	if !stateField.IsExported() {
		return nil, configError(fmt.Errorf("%w: %s.%s", ErrUnexportedField, st.Name(), stateField.Name))
	}

	stringType := reflect.TypeFor[string]()
	a := &StructAccessor[T]{
		idIndex:    idField.Index,
		stateIndex: stateField.Index,
	}
	switch {
	case stateField.Type == stringType:
	case stateField.Type.Kind() == reflect.Pointer && stateField.Type.Elem() == stringType:
		a.statePtr = true
	default:
		return nil, configError(fmt.Errorf("%w: %s.%s is %s", ErrStateFieldType, st.Name(), stateField.Name, stateField.Type))
	}

	return a, nil
}

// MustStructAccessor is like NewStructAccessor but panics on error.
func MustStructAccessor[T any]() *StructAccessor[T] {
	a, err := NewStructAccessor[T]()
	if err != nil {
		panic(fmt.Sprintf("failed to resolve entity accessor: %v", err))
	}
	return a
}

func (a *StructAccessor[T]) ID(entity T) (any, bool, error) {
	v, err := a.field(entity, a.idIndex)
	if err != nil {
		return nil, false, err
	}
	if v.IsZero() {
		return nil, false, nil
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v.Interface(), true, nil
}

func (a *StructAccessor[T]) State(entity T) (string, bool, error) {
	v, err := a.field(entity, a.stateIndex)
	if err != nil {
		return "", false, err
	}
	if a.statePtr {
		if v.IsNil() {
			return "", false, nil
		}
		v = v.Elem()
	}
	name := v.String()
	return name, name != "", nil
}

func (a *StructAccessor[T]) SetState(entity T, name string) error {
	v, err := a.field(entity, a.stateIndex)
	if err != nil {
		return err
	}
	if !v.CanSet() {
		return accessorError(errors.New("state field is not settable"))
	}
	if a.statePtr {
		v.Set(reflect.ValueOf(&name))
		return nil
	}
	v.SetString(name)
	return nil
}

func (a *StructAccessor[T]) field(entity T, index []int) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if !v.IsValid() || v.IsNil() {
		return reflect.Value{}, accessorError(errors.New("entity is nil"))
	}
	f, err := v.Elem().FieldByIndexErr(index)
	if err != nil {
		return reflect.Value{}, accessorError(err)
	}
	return f, nil
}

func taggedField(st reflect.Type, tag string) (reflect.StructField, bool) {
	for _, f := range reflect.VisibleFields(st) {
		if f.Tag.Get(TagKey) == tag {
			return f, true
		}
	}
	return reflect.StructField{}, false
}
