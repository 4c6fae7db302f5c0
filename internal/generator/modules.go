package generator

// virtualModules lists every loadable module's exported symbol names.
// Pure builtins (len, str, range, ...) resolve by name unconditionally;
// everything that performs I/O is gated behind an explicit `load(...)`
// naming the virtual module that owns it, mirroring the dialect's
// capability-declaration style.
var virtualModules = map[string][]string{
	"@bp/io": {
		"read_file", "write_file", "append_file", "delete_file", "list_dir",
		"mkdir", "rmdir", "copy_file", "move_file",
		"file_exists", "is_dir", "is_file", "file_size",
	},
	"@bp/net": {
		"http_get", "http_post", "http_put", "http_delete",
		"tcp_connect", "tcp_listen", "udp_bind", "udp_send_to",
		"unix_connect", "unix_listen",
	},
	"@bp/proc": {
		"exec_run",
	},
	"@bp/env": {
		"env_get",
	},
	"@bp/time": {
		"now", "sleep",
	},
}

// installVirtualModules seeds the root scope. Pure builtins need no
// explicit load, so there's nothing to predefine here; the function
// exists as the hook future virtual modules (constants, feature flags)
// would register themselves through.
func installVirtualModules(scope *Scope) {}

// builtinSymbol is the marker Value a `load(...)` statement binds a
// recognized builtin name to. It carries no callable behavior of its
// own - the actual dispatch in evalCall matches builtin calls by name
// directly - but its presence in scope lets plain references to the
// name (not immediately called) resolve instead of raising
// undefinedNameError, and documents at the use site which capability a
// name was loaded from.
func builtinSymbol(name string) Value {
	return StrVal(name)
}
