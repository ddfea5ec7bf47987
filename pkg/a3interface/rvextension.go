package a3interface

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"
import (
	"unsafe"
)

//export RVExtensionVersion
func RVExtensionVersion(output *C.char, outputsize C.size_t) {
	version, _ := ext.current()
	writeReply(version, output, outputsize)
}

// RVExtension serves: "siegelimit" callExtension "command"
//
//export RVExtension
func RVExtension(output *C.char, outputsize C.size_t, input *C.char) {
	_, d := ext.current()
	writeReply(respond(d, C.GoString(input), nil, true), output, outputsize)
}

// RVExtensionArgs serves: "siegelimit" callExtension ["command", [args...]]
//
//export RVExtensionArgs
func RVExtensionArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	_, d := ext.current()
	writeReply(respond(d, C.GoString(input), goArgs(argv, argc), false), output, outputsize)
}

func goArgs(argv **C.char, argc C.int) []string {
	if argc <= 0 {
		return nil
	}
	ptrs := unsafe.Slice(argv, int(argc))
	args := make([]string, len(ptrs))
	for i, p := range ptrs {
		args[i] = C.GoString(p)
	}
	return args
}

// writeReply copies response into the host buffer. Long replies are cut to
// fit, and the buffer always ends in a terminator.
func writeReply(response string, output *C.char, outputsize C.size_t) {
	if outputsize == 0 {
		return
	}
	reply := C.CString(response)
	defer C.free(unsafe.Pointer(reply))
	n := C.strlen(reply)
	if n >= outputsize {
		n = outputsize - 1
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(reply), n)
	*(*C.char)(unsafe.Add(unsafe.Pointer(output), n)) = 0
}
