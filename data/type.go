package data

import "fmt"

// FileType identifies the kind of object a path refers to.
// The numeric values are the 4-bit codes used in the upper bits of a mode word.
type FileType uint8

const (
	FileTypePipe      FileType = 0o01 // p: named pipe (FIFO)
	FileTypeChar      FileType = 0o02 // c: character device
	FileTypeDirectory FileType = 0o04 // d: directory
	FileTypeBlock     FileType = 0o06 // b: block device
	FileTypeFile      FileType = 0o10 // -: regular file
	FileTypeSymlink   FileType = 0o12 // l: symbolic link
	FileTypeSocket    FileType = 0o14 // s: unix socket
	FileTypeDoor      FileType = 0o15 // D: door
)

// FileTypes lists every canonical file type.
var FileTypes = []FileType{
	FileTypePipe,
	FileTypeChar,
	FileTypeDirectory,
	FileTypeBlock,
	FileTypeFile,
	FileTypeSymlink,
	FileTypeSocket,
	FileTypeDoor,
}

// DecodeFileType converts a 4-bit type code into a FileType.
func DecodeFileType(code uint8) (FileType, error) {
	switch t := FileType(code); t {
	case FileTypePipe, FileTypeChar, FileTypeDirectory, FileTypeBlock,
		FileTypeFile, FileTypeSymlink, FileTypeSocket, FileTypeDoor:
		return t, nil
	}
	return 0, fmt.Errorf("%w: code %#o", ErrInvalidType, code)
}

// Code returns the 4-bit numeric code of the file type.
func (t FileType) Code() uint8 {
	return uint8(t)
}

// Char returns the single character used by listing tools.
func (t FileType) Char() byte {
	switch t {
	case FileTypePipe:
		return 'p'
	case FileTypeChar:
		return 'c'
	case FileTypeDirectory:
		return 'd'
	case FileTypeBlock:
		return 'b'
	case FileTypeFile:
		return '-'
	case FileTypeSymlink:
		return 'l'
	case FileTypeSocket:
		return 's'
	case FileTypeDoor:
		return 'D'
	default:
		return '?'
	}
}

func (t FileType) String() string {
	switch t {
	case FileTypePipe:
		return "pipe"
	case FileTypeChar:
		return "char"
	case FileTypeDirectory:
		return "directory"
	case FileTypeBlock:
		return "block"
	case FileTypeFile:
		return "file"
	case FileTypeSymlink:
		return "symlink"
	case FileTypeSocket:
		return "socket"
	case FileTypeDoor:
		return "door"
	default:
		return fmt.Sprintf("unknown(%#o)", uint8(t))
	}
}

// IsDir reports whether t is a directory.
func (t FileType) IsDir() bool {
	return t == FileTypeDirectory
}

// IsRegular reports whether t is a regular file.
func (t FileType) IsRegular() bool {
	return t == FileTypeFile
}

// IsSymlink reports whether t is a symbolic link.
func (t FileType) IsSymlink() bool {
	return t == FileTypeSymlink
}
