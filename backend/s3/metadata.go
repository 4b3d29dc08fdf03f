package s3

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/afs/data"
)

const (
	statMetadataKey      = "afs-stat"
	directoryContentType = "application/x-directory"
)

func encodeStat(stat *data.ObjectStat) (map[string]string, error) {
	raw, err := stat.Marshal()
	if err != nil {
		return nil, err
	}
	// Header values must stay ASCII regardless of the key or link target
	return map[string]string{statMetadataKey: base64.StdEncoding.EncodeToString(raw)}, nil
}

// decodeStat reads the stat record from the user metadata of an object.
// Objects written by other tools get a default record derived from the object info.
func decodeStat(info minio.ObjectInfo) (*data.ObjectStat, error) {
	for k, v := range info.UserMetadata {
		if !strings.EqualFold(k, statMetadataKey) {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt stat of %q: %w", info.Key, err)
		}

		var stat data.ObjectStat
		if err := stat.Unmarshal(raw); err != nil {
			return nil, fmt.Errorf("corrupt stat of %q: %w", info.Key, err)
		}
		return &stat, nil
	}

	t, perm := data.FileTypeFile, data.DecodePermissions(0o644)
	if strings.HasSuffix(info.Key, "/") || info.ContentType == directoryContentType {
		t, perm = data.FileTypeDirectory, data.DecodePermissions(0o755)
	}

	stat := data.NewObjectStat(info.Key, t, perm)
	stat.ModifyTime = info.LastModified
	stat.ChangeTime = info.LastModified
	stat.CreateTime = info.LastModified
	return stat, nil
}

// inodeOf derives a stable positive inode from the object key
func inodeOf(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
