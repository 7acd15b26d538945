package blob

import (
	"context"
	"testing"

	"deckhistory/internal/config"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		cfg  config.BlobConfig
		want Driver
	}{
		{config.BlobConfig{}, DriverMemory},
		{config.BlobConfig{Driver: "memory"}, DriverMemory},
		{config.BlobConfig{Driver: "fs", FSRoot: t.TempDir()}, DriverFilesystem},
		{config.BlobConfig{Driver: "s3", S3: config.S3Config{Bucket: "analyses", AccessKeyID: "AKIA", SecretAccessKey: "s"}}, DriverS3},
	}
	for _, tc := range cases {
		store, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("Open(%+v): %v", tc.cfg, err)
		}
		if store.Driver() != tc.want {
			t.Fatalf("Open(%+v) driver = %s, want %s", tc.cfg, store.Driver(), tc.want)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.BlobConfig{Driver: "gcs"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Open(context.Background(), config.BlobConfig{Driver: "s3"}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}
