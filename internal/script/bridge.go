package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value. Integral numbers become int64, sequences
// become []any and other tables map[string]any. Functions and cycles
// convert to nil.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	}
	return nil
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if count == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}

// toLua converts a Go value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []int:
		tbl := L.CreateTable(len(val), 0)
		for _, e := range val {
			tbl.Append(lua.LNumber(e))
		}
		return tbl
	case []string:
		tbl := L.CreateTable(len(val), 0)
		for _, e := range val {
			tbl.Append(lua.LString(e))
		}
		return tbl
	case []any:
		tbl := L.CreateTable(len(val), 0)
		for _, e := range val {
			tbl.Append(toLua(L, e))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(val))
		for k, e := range val {
			tbl.RawSetString(k, toLua(L, e))
		}
		return tbl
	}
	return lua.LString(fmt.Sprint(v))
}
