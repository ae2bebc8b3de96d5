package segmm

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType inspects the leading bytes of a stream without consuming
// them. Byte code signatures from https://stackoverflow.com/a/19127748/199475
func DetectDataType(r *bufio.Reader) (DataType, error) {
	buff, err := r.Peek(6)
	if err != nil && err != io.EOF {
		return DataTypeInvalid, err
	}

Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompress wraps rc in the decompressor matching its magic bytes.
// Closing the result closes rc. Streams with no recognized signature are
// passed through untouched. Unix compress (.Z) is detected but rejected.
func MaybeDecompress(rc io.ReadCloser) (io.ReadCloser, error) {
	buffered := bufio.NewReader(rc)

	dt, err := DetectDataType(buffered)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, err
		}
		r = gz
	case DataTypeZip:
		// Only the first entry of an archive is read
		zr := zipstream.NewReader(buffered)
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(buffered)
	case DataTypeXZ:
		reader, err := xz.NewReader(buffered, 0)
		if err != nil {
			return nil, err
		}
		r = reader
	case DataTypeZ:
		// compress/lzw does not read the .Z container header.
		return nil, fmt.Errorf("unsupported compression: Unix compress (.Z)")
	default:
		r = buffered
	}

	return &chainedCloser{Reader: r, closer: rc}, nil
}

// chainedCloser reads from the decoded stream but closes the raw one.
type chainedCloser struct {
	io.Reader
	closer io.Closer
}

func (c *chainedCloser) Close() error {
	if rc, ok := c.Reader.(io.Closer); ok {
		rc.Close()
	}
	return c.closer.Close()
}
