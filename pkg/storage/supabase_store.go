package storage

import (
	"bytes"
	"context"
	"fmt"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

type SupabaseStore struct {
	client *supabase.Client
	bucket string
}

func NewSupabaseStore(url, serviceRoleKey, bucket string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &SupabaseStore{client: client, bucket: bucket}, nil
}

func (s *SupabaseStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	upsert := true
	cacheControl := "31536000"
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("supabase storage: upload %s: %w", key, err)
	}

	res := s.client.Storage.GetPublicUrl(s.bucket, key)
	return res.SignedURL, nil
}
