package lode

import (
	"testing"
)

func TestS3Config_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     S3Config
		wantErr bool
	}{
		{"empty bucket fails", S3Config{Bucket: ""}, true},
		{"valid bucket only", S3Config{Bucket: "my-bucket"}, false},
		{"valid bucket with prefix", S3Config{Bucket: "my-bucket", Prefix: "qrtx/files"}, false},
		{"valid bucket with region", S3Config{Bucket: "my-bucket", Region: "us-west-2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		path       string
		wantBucket string
		wantPrefix string
	}{
		{"my-bucket", "my-bucket", ""},
		{"my-bucket/prefix", "my-bucket", "prefix"},
		{"my-bucket/multi/level/prefix", "my-bucket", "multi/level/prefix"},
		{"s3://my-bucket/received", "my-bucket", "received"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			bucket, prefix := ParseS3Path(tt.path)
			if bucket != tt.wantBucket {
				t.Errorf("bucket = %q, want %q", bucket, tt.wantBucket)
			}
			if prefix != tt.wantPrefix {
				t.Errorf("prefix = %q, want %q", prefix, tt.wantPrefix)
			}
		})
	}
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"fs", StoreConfig{Backend: BackendFS, Path: t.TempDir()}, false},
		{"default backend is fs", StoreConfig{Path: t.TempDir()}, false},
		{"fs without path", StoreConfig{Backend: BackendFS}, true},
		{"s3 without bucket", StoreConfig{Backend: BackendS3}, true},
		{"unknown backend", StoreConfig{Backend: "ftp", Path: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(t.Context(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFactory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && factory == nil {
				t.Error("NewFactory() returned nil factory")
			}
		})
	}
}
