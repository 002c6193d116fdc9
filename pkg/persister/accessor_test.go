package persister_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statepersist/pkg/persister"
)

type baseEntity struct {
	ID uuid.UUID `fsm:"id"`
}

type Shipment struct {
	baseEntity
	Status *string `fsm:"state"`
}

type noID struct {
	State string `fsm:"state"`
}

type noState struct {
	ID int `fsm:"id"`
}

type intState struct {
	ID    int `fsm:"id"`
	State int `fsm:"state"`
}

type hiddenID struct {
	id    int    `fsm:"id"`
	State string `fsm:"state"`
}

func TestNewStructAccessor_Errors(t *testing.T) {
	t.Parallel()

	_, err := persister.NewStructAccessor[Order]()
	assert.ErrorIs(t, err, persister.ErrConfiguration)
	assert.ErrorIs(t, err, persister.ErrNotStructPointer)

	_, err = persister.NewStructAccessor[*noID]()
	assert.ErrorIs(t, err, persister.ErrConfiguration)
	assert.ErrorIs(t, err, persister.ErrNoIDField)

	_, err = persister.NewStructAccessor[*noState]()
	assert.ErrorIs(t, err, persister.ErrConfiguration)
	assert.ErrorIs(t, err, persister.ErrNoStateField)

	_, err = persister.NewStructAccessor[*intState]()
	assert.ErrorIs(t, err, persister.ErrConfiguration)
	assert.ErrorIs(t, err, persister.ErrStateFieldType)

	_, err = persister.NewStructAccessor[*hiddenID]()
	assert.ErrorIs(t, err, persister.ErrConfiguration)
	assert.ErrorIs(t, err, persister.ErrUnexportedField)

	assert.Panics(t, func() {
		persister.MustStructAccessor[*noID]()
	})
}

func TestStructAccessor_StringField(t *testing.T) {
	t.Parallel()
	a, err := persister.NewStructAccessor[*Order]()
	require.NoError(t, err)

	order := &Order{}
	id, ok, err := a.ID(order)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, id)

	name, ok, err := a.State(order)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, name)

	order.ID = 42
	id, ok, err = a.ID(order)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	require.NoError(t, a.SetState(order, "processing"))
	assert.Equal(t, "processing", order.State)

	name, ok, err = a.State(order)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "processing", name)
}

func TestStructAccessor_PointerFieldAndEmbeddedID(t *testing.T) {
	t.Parallel()
	a, err := persister.NewStructAccessor[*Shipment]()
	require.NoError(t, err)

	shipment := &Shipment{}
	_, ok, err := a.ID(shipment)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.State(shipment)
	require.NoError(t, err)
	assert.False(t, ok)

	shipment.ID = uuid.New()
	id, ok, err := a.ID(shipment)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, shipment.ID, id)

	require.NoError(t, a.SetState(shipment, "shipped"))
	require.NotNil(t, shipment.Status)
	assert.Equal(t, "shipped", *shipment.Status)

	name, ok, err := a.State(shipment)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shipped", name)
}

func TestStructAccessor_NilEntity(t *testing.T) {
	t.Parallel()
	a := persister.MustStructAccessor[*Order]()

	_, _, err := a.ID(nil)
	assert.True(t, persister.IsAccessorError(err))

	_, _, err = a.State(nil)
	assert.True(t, persister.IsAccessorError(err))

	err = a.SetState(nil, "new")
	assert.True(t, persister.IsAccessorError(err))
}

func TestAccessorFuncs(t *testing.T) {
	t.Parallel()
	type doc struct {
		key   string
		phase string
	}
	a := persister.AccessorFuncs[*doc]{
		IDFunc:       func(d *doc) (any, bool) { return d.key, d.key != "" },
		StateFunc:    func(d *doc) (string, bool) { return d.phase, true },
		SetStateFunc: func(d *doc, name string) { d.phase = name },
	}
	require.NoError(t, a.Validate())

	d := &doc{key: "k1"}
	id, ok, err := a.ID(d)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "k1", id)

	_, ok, err = a.State(d)
	require.NoError(t, err)
	assert.False(t, ok, "empty state name counts as absent")

	require.NoError(t, a.SetState(d, "draft"))
	assert.Equal(t, "draft", d.phase)

	var empty persister.AccessorFuncs[*doc]
	assert.ErrorIs(t, empty.Validate(), persister.ErrIncompleteAccessor)
	_, _, err = empty.ID(d)
	assert.True(t, persister.IsAccessorError(err))
}
