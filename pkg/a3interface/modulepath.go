package a3interface

/*
#cgo windows LDFLAGS: -lpsapi
#cgo linux LDFLAGS: -ldl

#ifdef __linux__
#define _GNU_SOURCE
#endif
#include <stdlib.h>
#include <string.h>

#ifdef _WIN32
#define WIN32_LEAN_AND_MEAN
#include <windows.h>

// siegelimit_module_path returns a malloc'd path of the DLL holding this
// function, or NULL.
static char* siegelimit_module_path(void) {
    HMODULE mod = NULL;
    DWORD flags = GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS | GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT;
    if (!GetModuleHandleExA(flags, (LPCSTR)siegelimit_module_path, &mod)) {
        return NULL;
    }
    for (DWORD size = MAX_PATH; size <= 32768; size *= 2) {
        char* buf = (char*)malloc(size);
        if (buf == NULL) {
            return NULL;
        }
        DWORD n = GetModuleFileNameA(mod, buf, size);
        if (n > 0 && n < size) {
            return buf;
        }
        free(buf);
        if (n == 0) {
            return NULL;
        }
    }
    return NULL;
}

#elif defined(__linux__)
#include <dlfcn.h>

static char* siegelimit_module_path(void) {
    Dl_info info;
    if (dladdr((void*)siegelimit_module_path, &info) == 0 || info.dli_fname == NULL) {
        return NULL;
    }
    return strdup(info.dli_fname);
}

#else
static char* siegelimit_module_path(void) { return NULL; }
#endif
*/
import "C"

import "unsafe"

// GetModulePath returns the path of the loaded extension library, or "" when
// the platform lookup fails.
func GetModulePath() string {
	p := C.siegelimit_module_path()
	if p == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(p))
	return C.GoString(p)
}
