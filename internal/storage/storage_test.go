package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/config"
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	objects map[string][]byte
	failKey string
}

func (m *memObjects) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for k, v := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memObjects) DownloadObject(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (m *memObjects) UploadObject(_ context.Context, key string, data []byte) error {
	if key == m.failKey {
		return errors.New("bucket unavailable")
	}
	m.objects[key] = data
	return nil
}

func testKey() domain.SnapshotKey {
	return domain.SnapshotKey{TenantID: "t1", AsOfDate: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)}
}

func TestArchiveWritesNonEmptyRelations(t *testing.T) {
	objs := &memObjects{objects: map[string][]byte{}}
	archiver := NewSnapshotArchiver(objs)

	out := pipeline.Outputs{
		Distortion: []domain.DistortionRecord{{StyleID: "S1", DistortionScore: 1.5, LockedCashEstimate: decimal.NewFromInt(300)}},
		NetworkGap: []domain.NetworkGapRecord{{StyleID: "S1"}},
	}
	require.NoError(t, archiver.Archive(context.Background(), testKey(), out))

	assert.Len(t, objs.objects, 2)
	payload, ok := objs.objects["t1/2026-10-14/kpi_inventory_distortion.json"]
	require.True(t, ok)

	var rows []domain.DistortionRecord
	require.NoError(t, json.Unmarshal(payload, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "S1", rows[0].StyleID)
	assert.True(t, rows[0].LockedCashEstimate.Equal(decimal.NewFromInt(300)))

	listed, err := objs.ListObjects(context.Background(), "t1/2026-10-14/")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestArchiveContinuesAfterUploadFailure(t *testing.T) {
	objs := &memObjects{objects: map[string][]byte{}, failKey: "t1/2026-10-14/kpi_inventory_distortion.json"}
	archiver := NewSnapshotArchiver(objs)

	out := pipeline.Outputs{
		Distortion: []domain.DistortionRecord{{StyleID: "S1"}},
		NetworkGap: []domain.NetworkGapRecord{{StyleID: "S1"}},
	}
	err := archiver.Archive(context.Background(), testKey(), out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Contains(t, objs.objects, "t1/2026-10-14/kpi_network_gap.json")
}

func TestNoopArchiver(t *testing.T) {
	assert.NoError(t, NewNoopArchiver().Archive(context.Background(), testKey(), pipeline.Outputs{}))
	assert.NoError(t, NewSnapshotArchiver(nil).Archive(context.Background(), testKey(), pipeline.Outputs{}))
}

func TestNormalizeEndpoint(t *testing.T) {
	host, secure := normalizeEndpoint("https://s3.example.com", false)
	assert.Equal(t, "s3.example.com", host)
	assert.True(t, secure)

	host, secure = normalizeEndpoint("http://localhost:9000", true)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, secure = normalizeEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)

	_, err := NewS3Client(config.ArchiveConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)
}
