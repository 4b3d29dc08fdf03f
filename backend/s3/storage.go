package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/afs/data"
)

func (sb *S3Backend) CreateObject(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Check if object already exists
	if _, _, err := sb.statUnsafe(ctx, key); err == nil {
		return nil, data.ErrExist
	} else if !errors.Is(err, data.ErrNotExist) {
		return nil, err
	}

	stored := stat.Clone()
	stored.Key = key
	stored.Size = 0
	stored.Inode = inodeOf(key)

	if err := sb.putUnsafe(ctx, sb.objectName(key, stored.IsDir()), stored, nil); err != nil {
		return nil, err
	}
	return stored, nil
}

func (sb *S3Backend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	stat, _, err := sb.statUnsafe(ctx, key)
	return stat, err
}

func (sb *S3Backend) ReadObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	stat, name, err := sb.statUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	if offset >= stat.Size {
		return 0, io.EOF
	}
	if len(dat) == 0 {
		return 0, nil
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+int64(len(dat))-1); err != nil {
		return 0, err
	}

	object, err := sb.client.GetObject(ctx, sb.bucketName, name, opts)
	if err != nil {
		return 0, err
	}
	defer object.Close()

	n, err := io.ReadFull(object, dat)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return n, err
	}

	return n, nil
}

func (sb *S3Backend) WriteObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// S3 doesn't support partial writes - we need to read-modify-write
	stat, name, err := sb.statUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	content, err := sb.contentUnsafe(ctx, name, stat.Size)
	if err != nil {
		return 0, err
	}

	if writeEnd := offset + int64(len(dat)); writeEnd > int64(len(content)) {
		grown := make([]byte, writeEnd)
		copy(grown, content)
		content = grown
	}
	copy(content[offset:], dat)

	now := time.Now()
	stat.ModifyTime = now
	stat.ChangeTime = now

	if err := sb.putUnsafe(ctx, name, stat, content); err != nil {
		return 0, err
	}
	return len(dat), nil
}

func (sb *S3Backend) TruncateObject(ctx context.Context, key string, size int64) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	stat, name, err := sb.statUnsafe(ctx, key)
	if err != nil {
		return err
	}

	content, err := sb.contentUnsafe(ctx, name, stat.Size)
	if err != nil {
		return err
	}

	if size <= int64(len(content)) {
		content = content[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, content)
		content = grown
	}

	now := time.Now()
	stat.ModifyTime = now
	stat.ChangeTime = now

	return sb.putUnsafe(ctx, name, stat, content)
}

func (sb *S3Backend) UpdateObject(ctx context.Context, key string, update *data.ObjectUpdate) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	stat, name, err := sb.statUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if !update.Apply(stat) {
		return nil
	}

	return sb.replaceMetadataUnsafe(ctx, name, name, stat)
}

func (sb *S3Backend) DeleteObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	_, name, err := sb.statUnsafe(ctx, key)
	if err != nil {
		return err
	}

	return sb.client.RemoveObject(ctx, sb.bucketName, name, minio.RemoveObjectOptions{})
}

func (sb *S3Backend) ListObjects(ctx context.Context, key string) ([]string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if _, _, err := sb.statUnsafe(ctx, key); err != nil {
		return nil, err
	}

	prefix := sb.objectName(key, true)
	objectsCh := sb.client.ListObjects(ctx, sb.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	})

	// Directories show up both as marker and as common prefix
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for object := range objectsCh {
		if object.Err != nil {
			return nil, object.Err
		}

		name := strings.TrimSuffix(strings.TrimPrefix(object.Key, prefix), "/")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

func (sb *S3Backend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	stat, name, err := sb.statUnsafe(ctx, oldKey)
	if err != nil {
		return err
	}

	// Remove whatever occupies the destination
	if _, existing, err := sb.statUnsafe(ctx, newKey); err == nil {
		if err := sb.removeTreeUnsafe(ctx, existing); err != nil {
			return err
		}
	} else if !errors.Is(err, data.ErrNotExist) {
		return err
	}

	target := sb.objectName(newKey, stat.IsDir())
	stat.ChangeTime = time.Now()
	if err := sb.replaceMetadataUnsafe(ctx, name, target, stat); err != nil {
		return err
	}

	if stat.IsDir() {
		oldPrefix := sb.objectName(oldKey, true)
		newPrefix := sb.objectName(newKey, true)

		for object := range sb.client.ListObjects(ctx, sb.bucketName, minio.ListObjectsOptions{
			Prefix:    oldPrefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				return object.Err
			}
			if object.Key == oldPrefix {
				continue
			}

			dst := minio.CopyDestOptions{
				Bucket: sb.bucketName,
				Object: newPrefix + strings.TrimPrefix(object.Key, oldPrefix),
			}
			src := minio.CopySrcOptions{
				Bucket: sb.bucketName,
				Object: object.Key,
			}
			if _, err := sb.client.CopyObject(ctx, dst, src); err != nil {
				return err
			}
		}
	}

	return sb.removeTreeUnsafe(ctx, name)
}

// statUnsafe looks up key as file or link first, then as directory marker.
// It returns the stat record and the object name it was found under.
// MUST be called while holding at least a read lock.
func (sb *S3Backend) statUnsafe(ctx context.Context, key string) (*data.ObjectStat, string, error) {
	candidates := []string{sb.objectName(key, true)}
	if key != "" {
		candidates = []string{sb.objectName(key, false), sb.objectName(key, true)}
	}

	for _, name := range candidates {
		info, err := sb.client.StatObject(ctx, sb.bucketName, name, minio.StatObjectOptions{})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, "", err
		}

		stat, err := decodeStat(info)
		if err != nil {
			return nil, "", err
		}
		stat.Key = key
		stat.Inode = inodeOf(key)
		if !stat.IsDir() {
			stat.Size = info.Size
		}
		return stat, name, nil
	}

	return nil, "", data.ErrNotExist
}

// contentUnsafe MUST be called while holding at least a read lock.
func (sb *S3Backend) contentUnsafe(ctx context.Context, name string, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	object, err := sb.client.GetObject(ctx, sb.bucketName, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	return io.ReadAll(object)
}

// putUnsafe MUST be called while holding a write lock.
func (sb *S3Backend) putUnsafe(ctx context.Context, name string, stat *data.ObjectStat, content []byte) error {
	metadata, err := encodeStat(stat)
	if err != nil {
		return err
	}

	opts := minio.PutObjectOptions{
		UserMetadata: metadata,
	}
	if stat.IsDir() {
		opts.ContentType = directoryContentType
	}

	_, err = sb.client.PutObject(ctx, sb.bucketName, name, bytes.NewReader(content), int64(len(content)), opts)
	return err
}

// replaceMetadataUnsafe copies src onto dst with a new stat record.
// MUST be called while holding a write lock.
func (sb *S3Backend) replaceMetadataUnsafe(ctx context.Context, src, dst string, stat *data.ObjectStat) error {
	metadata, err := encodeStat(stat)
	if err != nil {
		return err
	}

	_, err = sb.client.CopyObject(ctx, minio.CopyDestOptions{
		Bucket:          sb.bucketName,
		Object:          dst,
		UserMetadata:    metadata,
		ReplaceMetadata: true,
	}, minio.CopySrcOptions{
		Bucket: sb.bucketName,
		Object: src,
	})
	return err
}

// removeTreeUnsafe removes name and, for directory markers, everything below it.
// MUST be called while holding a write lock.
func (sb *S3Backend) removeTreeUnsafe(ctx context.Context, name string) error {
	errs := data.Errors{}

	if strings.HasSuffix(name, "/") {
		for object := range sb.client.ListObjects(ctx, sb.bucketName, minio.ListObjectsOptions{
			Prefix:    name,
			Recursive: true,
		}) {
			if object.Err != nil {
				return object.Err
			}
			if object.Key == name {
				continue
			}
			if err := sb.client.RemoveObject(ctx, sb.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
				errs.Add(err)
			}
		}
	}

	if err := sb.client.RemoveObject(ctx, sb.bucketName, name, minio.RemoveObjectOptions{}); err != nil {
		errs.Add(err)
	}

	return errs.Errors()
}

// objectName returns the S3 object name of key; directories carry a trailing slash.
func (sb *S3Backend) objectName(key string, dir bool) string {
	name := sb.prefix
	if key != "" {
		name += "/" + key
	}
	if dir {
		name += "/"
	}
	return name
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
