package storage

import (
	"context"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectItem 列表返回的单个对象
type ObjectItem struct {
	Name     string // 叶子文件名
	FullPath string // 存储桶内完整对象键
	Size     int64
	Updated  time.Time
}

// ObjectMeta 单个对象的元数据
type ObjectMeta struct {
	ContentType string
	Size        int64
	Updated     time.Time
	Created     time.Time
}

// ListResult 一次列表调用的结果：当前层级的文件和子文件夹
type ListResult struct {
	Items      []ObjectItem
	Subfolders []string
}

// ObjectStore 对象存储的能力边界。网关只依赖这个接口，
// SDK直连实现在下面，测试用假实现。
type ObjectStore interface {
	List(ctx context.Context, prefix string) (*ListResult, error)
	ResolveURL(ctx context.Context, fullPath string, expiry time.Duration) (string, error)
	ResolveMetadata(ctx context.Context, fullPath string) (*ObjectMeta, error)
	Exists(ctx context.Context, fullPath string) (bool, error)
}

// minioStore 基于 MinIO SDK 的 ObjectStore 实现
type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore 用已初始化的 MinIO 客户端创建 ObjectStore
func NewMinioStore(client *minio.Client, bucket string) ObjectStore {
	return &minioStore{client: client, bucket: bucket}
}

func (s *minioStore) List(ctx context.Context, prefix string) (*ListResult, error) {
	result := &ListResult{}

	// 非递归列表：以/结尾的键是子文件夹
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		if strings.HasSuffix(object.Key, "/") {
			if object.Key != prefix {
				result.Subfolders = append(result.Subfolders, object.Key)
			}
			continue
		}
		result.Items = append(result.Items, ObjectItem{
			Name:     leafName(object.Key),
			FullPath: object.Key,
			Size:     object.Size,
			Updated:  object.LastModified,
		})
	}

	return result, nil
}

func (s *minioStore) ResolveURL(ctx context.Context, fullPath string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, fullPath, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *minioStore) ResolveMetadata(ctx context.Context, fullPath string) (*ObjectMeta, error) {
	info, err := s.client.StatObject(ctx, s.bucket, fullPath, minio.StatObjectOptions{})
	if err != nil {
		return nil, err
	}
	return &ObjectMeta{
		ContentType: info.ContentType,
		Size:        info.Size,
		Updated:     info.LastModified,
		Created:     info.LastModified, // MinIO 不单独记录创建时间
	}, nil
}

func (s *minioStore) Exists(ctx context.Context, fullPath string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, fullPath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// leafName 取对象键最后一段作为文件名
func leafName(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
