package object_test

import (
	"testing"

	"esrt/pkg/heap"
	"esrt/pkg/object"
	"esrt/pkg/value"
	"github.com/stretchr/testify/require"
)

func newHeap() *heap.Heap { return heap.New(1024) }

func TestPropertyOrderInsertionThenIntegerFirst(t *testing.T) {
	h := newHeap()
	o := object.NewPlainObject(h, value.Null)
	h.Publish(o)

	_, _ = o.DefineOwnProperty(object.StringKey("b"), object.DataDescriptor(value.Number(1), true, true, true))
	_, _ = o.DefineOwnProperty(object.StringKey("2"), object.DataDescriptor(value.Number(2), true, true, true))
	_, _ = o.DefineOwnProperty(object.StringKey("a"), object.DataDescriptor(value.Number(3), true, true, true))
	_, _ = o.DefineOwnProperty(object.StringKey("0"), object.DataDescriptor(value.Number(4), true, true, true))

	keys := o.OwnPropertyKeys()
	require.Len(t, keys, 4)
	require.Equal(t, "0", keys[0].DebugName())
	require.Equal(t, "2", keys[1].DebugName())
	require.Equal(t, "b", keys[2].DebugName())
	require.Equal(t, "a", keys[3].DebugName())
}

func TestNonConfigurableDataCannotBeRedefinedAsAccessor(t *testing.T) {
	h := newHeap()
	o := object.NewPlainObject(h, value.Null)
	h.Publish(o)

	ok, _ := o.DefineOwnProperty(object.StringKey("x"), object.DataDescriptor(value.Number(1), true, true, false))
	require.True(t, ok)

	ok, _ = o.DefineOwnProperty(object.StringKey("x"), object.AccessorDescriptor(value.Undefined, value.Undefined, true, false))
	require.False(t, ok)
}

func TestNonWritableNonConfigurableValueCannotChange(t *testing.T) {
	h := newHeap()
	o := object.NewPlainObject(h, value.Null)
	h.Publish(o)
	_, _ = o.DefineOwnProperty(object.StringKey("x"), object.DataDescriptor(value.Number(1), false, true, false))

	ok, _ := o.Set(object.StringKey("x"), value.Number(2), value.Obj(o))
	require.False(t, ok)
	d, _ := o.GetOwnProperty(object.StringKey("x"))
	require.Equal(t, float64(1), d.Value.AsNumber())

	// Redefining to the same value under SameValueZero is allowed.
	ok, _ = o.DefineOwnProperty(object.StringKey("x"), object.DataDescriptor(value.Number(1), false, true, false))
	require.True(t, ok)
}

func TestBindingTemporalDeadZone(t *testing.T) {
	h := newHeap()
	env := object.NewDeclarativeEnvironment(h, nil)
	h.Publish(env)
	require.Nil(t, env.CreateMutableBinding("x", false))

	_, err := env.GetBindingValue("x", false)
	require.NotNil(t, err)
	require.Equal(t, "ReferenceError", string(err.Kind()))

	require.Nil(t, env.InitializeBinding("x", value.Number(42)))
	v, err := env.GetBindingValue("x", false)
	require.Nil(t, err)
	require.Equal(t, float64(42), v.AsNumber())
}

func TestImmutableBindingWriteThrowsTypeError(t *testing.T) {
	h := newHeap()
	env := object.NewDeclarativeEnvironment(h, nil)
	h.Publish(env)
	require.Nil(t, env.CreateImmutableBinding("c", true))
	require.Nil(t, env.InitializeBinding("c", value.Number(1)))

	err := env.SetMutableBinding("c", value.Number(2), true)
	require.NotNil(t, err)
	require.Equal(t, "TypeError", string(err.Kind()))
}

func TestForInReFetchesOnMutation(t *testing.T) {
	h := newHeap()
	o := object.NewPlainObject(h, value.Null)
	h.Publish(o)
	_, _ = o.DefineOwnProperty(object.StringKey("a"), object.DataDescriptor(value.Number(1), true, true, true))
	_, _ = o.DefineOwnProperty(object.StringKey("b"), object.DataDescriptor(value.Number(2), true, true, true))

	it := object.NewForInIterator(h, o)
	h.Publish(it)

	k1, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "a", k1)

	// Mutate: delete "b" before it's visited, add "c" after iteration started.
	o.Delete(object.StringKey("b"))
	_, _ = o.DefineOwnProperty(object.StringKey("c"), object.DataDescriptor(value.Number(3), true, true, true))

	var rest []string
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		rest = append(rest, k)
	}
	require.NotContains(t, rest, "b")
}

func TestPrivateFieldAccessFromDeclaringClassOnly(t *testing.T) {
	h := newHeap()
	o := object.NewPlainObject(h, value.Null)
	h.Publish(o)
	pn := object.NewPrivateName(h, "x")
	h.Publish(pn)

	o.DeclarePrivateField(pn, value.Number(10))
	v, err := o.GetPrivateField(pn)
	require.Nil(t, err)
	require.Equal(t, float64(10), v.AsNumber())

	other := object.NewPrivateName(h, "x") // distinct cell, same description
	h.Publish(other)
	_, err = o.GetPrivateField(other)
	require.NotNil(t, err)
	require.Equal(t, "TypeError", string(err.Kind()))
}
