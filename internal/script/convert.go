package script

import (
	"fmt"
	"reflect"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// toLValue converts a Go value to a Lua value.
// Values with no Lua counterpart are passed as their string form.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case time.Time:
		return lua.LString(val.Format(time.RFC3339Nano))
	case time.Duration:
		return lua.LString(val.String())
	case error:
		return lua.LString(val.Error())
	case fmt.Stringer:
		return lua.LString(val.String())
	case []any:
		tbl := L.CreateTable(len(val), 0)
		for i, item := range val {
			tbl.RawSetInt(i+1, toLValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(val))
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	}

	// Typed slices and maps
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		tbl := L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			tbl.RawSetInt(i+1, toLValue(L, rv.Index(i).Interface()))
		}
		return tbl
	case reflect.Map:
		tbl := L.CreateTable(0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			tbl.RawSet(toLValue(L, iter.Key().Interface()), toLValue(L, iter.Value().Interface()))
		}
		return tbl
	case reflect.Pointer:
		if rv.IsNil() {
			return lua.LNil
		}
	}
	return lua.LString(fmt.Sprintf("%v", v))
}

// fromLValue converts a Lua value to a Go value.
// Numbers become float64. Tables with keys 1..n become []any, other tables
// become map[string]any.
func fromLValue(v lua.LValue) any {
	if v == nil || v == lua.LNil {
		return nil
	}

	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n, ok := arrayLen(val); ok {
			arr := make([]any, n)
			for i := 0; i < n; i++ {
				arr[i] = fromLValue(val.RawGetInt(i + 1))
			}
			return arr
		}

		// Treat as map
		result := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			var key string
			switch kv := k.(type) {
			case lua.LString:
				key = string(kv)
			default:
				key = k.String()
			}
			result[key] = fromLValue(v)
		})
		return result
	default:
		return v.String()
	}
}

// arrayLen reports whether tbl is a sequence 1..n and returns n.
// An empty table is an empty sequence.
func arrayLen(tbl *lua.LTable) (int, bool) {
	count := 0
	isArray := true
	tbl.ForEach(func(k, _ lua.LValue) {
		count++
		if _, ok := k.(lua.LNumber); !ok {
			isArray = false
		}
	})
	if !isArray {
		return 0, false
	}
	for i := 1; i <= count; i++ {
		if tbl.RawGetInt(i) == lua.LNil {
			return 0, false
		}
	}
	return count, true
}
