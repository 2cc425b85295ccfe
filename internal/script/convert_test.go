package script

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/emitter/internal/event/topic"
)

func TestToLValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		in   any
		want lua.LValue
	}{
		{"nil", nil, lua.LNil},
		{"bool", true, lua.LTrue},
		{"int", 7, lua.LNumber(7)},
		{"uint64", uint64(9), lua.LNumber(9)},
		{"float", 1.5, lua.LNumber(1.5)},
		{"string", "hi", lua.LString("hi")},
		{"bytes", []byte("raw"), lua.LString("raw")},
		{"duration", 2 * time.Second, lua.LString("2s")},
		{"error", errors.New("boom"), lua.LString("boom")},
		{"stringer", topic.Topic("user.created"), lua.LString("user.created")},
		{"lua value", lua.LString("as is"), lua.LString("as is")},
		{"nil pointer", (*int)(nil), lua.LNil},
		{"struct", struct{ A int }{1}, lua.LString("{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, toLValue(L, tt.in))
		})
	}
}

func TestToLValue_Tables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	list, ok := toLValue(L, []any{"a", 2}).(*lua.LTable)
	require.True(t, ok)
	require.Equal(t, 2, list.Len())
	require.Equal(t, lua.LString("a"), list.RawGetInt(1))

	typed, ok := toLValue(L, []string{"x", "y", "z"}).(*lua.LTable)
	require.True(t, ok)
	require.Equal(t, lua.LString("z"), typed.RawGetInt(3))

	m, ok := toLValue(L, map[string]any{"k": true}).(*lua.LTable)
	require.True(t, ok)
	require.Equal(t, lua.LTrue, m.RawGetString("k"))

	counts, ok := toLValue(L, map[string]int{"n": 4}).(*lua.LTable)
	require.True(t, ok)
	require.Equal(t, lua.LNumber(4), counts.RawGetString("n"))
}

func TestFromLValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	require.NoError(t, L.DoString(`
		seq = {"a", "b", 3}
		dict = {name = "ada", tags = {"x"}}
		holes = {[1] = "a", [3] = "c"}
		empty = {}
	`))

	require.Nil(t, fromLValue(lua.LNil))
	require.Equal(t, true, fromLValue(lua.LTrue))
	require.Equal(t, 2.5, fromLValue(lua.LNumber(2.5)))
	require.Equal(t, "s", fromLValue(lua.LString("s")))
	require.Equal(t, []any{"a", "b", float64(3)}, fromLValue(L.GetGlobal("seq")))
	require.Equal(t, map[string]any{"name": "ada", "tags": []any{"x"}}, fromLValue(L.GetGlobal("dict")))
	require.Equal(t, map[string]any{"1": "a", "3": "c"}, fromLValue(L.GetGlobal("holes")))
	require.Equal(t, []any{}, fromLValue(L.GetGlobal("empty")))
}
