package photostore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
)

// Store 是照片文件的外部存储边界，核心逻辑只持有存储键。
type Store interface {
	Put(ctx context.Context, key string, data io.Reader, size int64, mimeType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

type MinIOStore struct {
	cfg    *config.Config
	client *minio.Client
}

func NewMinIOStore(cfg *config.Config) (*MinIOStore, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOStore{
		cfg:    cfg,
		client: client,
	}, nil
}

// EnsureBucket 在启动时调用，保证目标 bucket 存在。
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.MinIO.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.client.MakeBucket(ctx, s.cfg.MinIO.Bucket, minio.MakeBucketOptions{})
}

func (s *MinIOStore) Put(ctx context.Context, key string, data io.Reader, size int64, mimeType string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.MinIO.RequestTimeout)*time.Second)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.cfg.MinIO.Bucket, key, data, size, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	return err
}

func (s *MinIOStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.MinIO.RequestTimeout)*time.Second)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.cfg.MinIO.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	// GetObject 是懒加载的，必须 Stat 一次才能确认对象存在
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, "", err
	}

	return obj, info.ContentType, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.MinIO.RequestTimeout)*time.Second)
	defer cancel()

	return s.client.RemoveObject(ctx, s.cfg.MinIO.Bucket, key, minio.RemoveObjectOptions{})
}

// MemoryStore 是测试用的内存实现。
type MemoryStore struct {
	objects map[string]memoryObject
	failPut bool
}

type memoryObject struct {
	data     []byte
	mimeType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
	}
}

// FailNextPut 让下一次 Put 失败一次，之后自动恢复。
func (s *MemoryStore) FailNextPut(fail bool) {
	s.failPut = fail
}

func (s *MemoryStore) Len() int {
	return len(s.objects)
}

func (s *MemoryStore) Has(key string) bool {
	_, ok := s.objects[key]
	return ok
}

func (s *MemoryStore) Put(ctx context.Context, key string, data io.Reader, size int64, mimeType string) error {
	if s.failPut {
		s.failPut = false
		return io.ErrClosedPipe
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = memoryObject{data: buf, mimeType: mimeType}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.mimeType, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}
