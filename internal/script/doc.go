// Package script runs Lua scripts against a timeline.
//
// Scripts execute in a sandboxed gopher-lua state: only the base, table,
// string and math libraries are opened, code loading functions are
// removed and require resolves a fixed whitelist. The timeline module
// exposes one function per command kind plus read-only queries, so a
// script drives the model through the same dispatcher journals replay.
//
//	local v1 = timeline.insert_track{kind = "video", name = "V1"}
//	local c = timeline.insert_clip{ref = "intro", track = v1, position = 0}
//	timeline.cut_clip{id = c, position = 50}
package script
