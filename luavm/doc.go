// Package luavm implements the pyo3.Runtime capability surface over an
// embedded Lua interpreter (Shopify/go-lua).
//
// Lua manages its heap with a garbage collector, so the adapter supplies
// the reference counts the bridge is specified against: each handle address
// pins its Lua value in a registry-side table, counts track live handles,
// and the pin is released when a count reaches zero. Mappings are Lua
// tables, integers and strings are Lua values, and the boolean singletons
// are two immortal pinned handles.
//
// See the VM type for the adapter-level departures from a native
// refcounted runtime.
package luavm
