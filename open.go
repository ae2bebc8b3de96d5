package segmm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// SplitGSPath separates a gs://bucket/object path into its bucket and object.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// Open returns a decompressed stream for path. Paths beginning with gs:// are
// read through client when it is non-nil; everything else is read from the
// local filesystem.
func Open(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	var raw io.ReadCloser

	if client != nil && strings.HasPrefix(path, "gs://") {
		bucketName, pathName, err := SplitGSPath(path)
		if err != nil {
			return nil, err
		}

		rdr, err := client.Bucket(bucketName).Object(pathName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		raw = rdr
	} else {
		f, err := os.Open(ExpandHome(path))
		if err != nil {
			return nil, pfx.Err(err)
		}
		raw = f
	}

	rc, err := MaybeDecompress(raw)
	if err != nil {
		raw.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return rc, nil
}

// Exists reports whether path can be found, locally or in Google Storage.
func Exists(ctx context.Context, path string, client *storage.Client) (bool, error) {
	if client != nil && strings.HasPrefix(path, "gs://") {
		bucketName, pathName, err := SplitGSPath(path)
		if err != nil {
			return false, err
		}

		_, err = client.Bucket(bucketName).Object(pathName).Attrs(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		} else if err != nil {
			return false, pfx.Err(err)
		}

		return true, nil
	}

	_, err := os.Stat(ExpandHome(path))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, pfx.Err(err)
	}

	return true, nil
}
