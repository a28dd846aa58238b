package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// removedGlobals can load code from outside the sandbox.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "module"}

func (s *State) installSandbox() {
	for _, name := range removedGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.modules = map[string]bool{"string": true, "table": true, "math": true}
	s.L.SetGlobal("require", s.L.NewFunction(s.require))
	s.L.SetGlobal("print", s.L.NewFunction(s.print))
}

// require resolves whitelisted modules to their globals.
func (s *State) require(L *lua.LState) int {
	name := L.CheckString(1)
	if !s.modules[name] {
		L.RaiseError("module %q is not available", name)
		return 0
	}
	L.Push(L.GetGlobal(name))
	return 1
}

func (s *State) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	_, _ = s.out.Write([]byte(strings.Join(parts, "\t") + "\n"))
	return 0
}
