package walker

import (
	"iter"
	"unsafe"
)

// Linux dirent64 layout:
//
//	struct linux_dirent64 {
//	    ino64_t        d_ino;
//	    off64_t        d_off;
//	    unsigned short d_reclen;
//	    unsigned char  d_type;
//	    char           d_name[];
//	};
const (
	direntReclenOff = 16
	direntTypeOff   = 18
	direntNameOff   = 19
)

// d_type values from dirent.h that the walker distinguishes.
const (
	dtUnknown = 0
	dtDir     = 4
	dtReg     = 8
	dtLnk     = 10
)

// dirents yields the name and d_type of every record in the first n bytes of
// a getdents64 buffer, skipping "." and "..". Names are copied out of buf.
func dirents(buf []byte, n int) iter.Seq2[string, uint8] {
	return func(yield func(string, uint8) bool) {
		for off := 0; off+direntNameOff <= n; {
			reclen := int(*(*uint16)(unsafe.Pointer(&buf[off+direntReclenOff])))
			if reclen == 0 {
				return
			}
			end := min(off+reclen, n)
			raw := buf[off+direntNameOff : end]
			nameLen := 0
			for nameLen < len(raw) && raw[nameLen] != 0 {
				nameLen++
			}
			typ := buf[off+direntTypeOff]
			off += reclen

			if nameLen == 0 || (raw[0] == '.' && (nameLen == 1 || (nameLen == 2 && raw[1] == '.'))) {
				continue
			}
			if !yield(string(raw[:nameLen]), typ) {
				return
			}
		}
	}
}
