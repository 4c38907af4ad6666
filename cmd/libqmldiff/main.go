// Command libqmldiff is the cgo C ABI shim: build_change_files,
// process_file, is_modified, start_saving_thread, load_rules (spec.md §6
// Library C ABI). It is a thin wrapper over engine.Context; all the real
// work happens there.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"os"
	"unsafe"

	"go.uber.org/zap"

	"github.com/qmldiff/qmldiff/engine"
)

var ctx = engine.New(engine.WithLogger(zap.NewNop()))

// build_change_files loads diff files from root, returning the number of
// AFFECT blocks loaded.
//
//export build_change_files
func build_change_files(root *C.char) C.int {
	n, err := ctx.BuildChangeFiles(C.GoString(root))
	if err != nil {
		return -1
	}
	return C.int(n)
}

// process_file applies every loaded diff targeting name to buf, returning
// a newly allocated C string the caller owns, or NULL if the file was
// unmodified or an error occurred.
//
//export process_file
func process_file(name *C.char, buf *C.char, length C.int) *C.char {
	src := C.GoBytes(unsafe.Pointer(buf), length)
	out, modified, err := ctx.ProcessFile(C.GoString(name), src)
	if err != nil || !modified {
		return nil
	}
	return C.CString(string(out))
}

// is_modified reports whether any loaded diff has an AFFECT matching name.
//
//export is_modified
func is_modified(name *C.char) C.int {
	if ctx.IsModified(C.GoString(name)) {
		return 1
	}
	return 0
}

// start_saving_thread spawns the hashtab exporter if QMLDIFF_HASHTAB_CREATE
// is set in the environment; idempotent, safe to call more than once.
//
//export start_saving_thread
func start_saving_thread() {
	path := os.Getenv("QMLDIFF_HASHTAB_CREATE")
	if path == "" {
		return
	}
	ctx.StartSavingThread(path)
}

// load_rules replaces the global hash-generation rule set from an
// in-memory hashrules source string.
//
//export load_rules
func load_rules(rules *C.char) {
	_ = ctx.LoadRules(C.GoString(rules))
}

func main() {}
