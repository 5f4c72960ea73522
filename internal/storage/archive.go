package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
)

// SnapshotArchiver copies the computed relations of a run to object storage.
type SnapshotArchiver interface {
	Archive(ctx context.Context, key domain.SnapshotKey, out pipeline.Outputs) error
}

type objectArchiver struct {
	store ObjectStorage
}

type noopArchiver struct{}

func NewSnapshotArchiver(store ObjectStorage) SnapshotArchiver {
	if store == nil {
		return noopArchiver{}
	}
	return &objectArchiver{store: store}
}

func NewNoopArchiver() SnapshotArchiver {
	return noopArchiver{}
}

// ArchiveKey is the object name of one relation in a snapshot.
func ArchiveKey(key domain.SnapshotKey, relation string) string {
	return path.Join(key.TenantID, key.Date(), relation+".json")
}

// Archive writes one JSON array per relation. Empty relations are skipped,
// and a failed upload does not stop the remaining ones.
func (a *objectArchiver) Archive(ctx context.Context, key domain.SnapshotKey, out pipeline.Outputs) error {
	objects := []struct {
		relation string
		rows     interface{}
		n        int
	}{
		{repository.DistortionTable.Name, out.Distortion, len(out.Distortion)},
		{repository.CompletenessTable.Name, out.Completeness, len(out.Completeness)},
		{repository.CurveHealthTable.Name, out.CurveHealth, len(out.CurveHealth)},
		{repository.NetworkGapTable.Name, out.NetworkGap, len(out.NetworkGap)},
	}

	var errs []error
	for _, obj := range objects {
		if obj.n == 0 {
			continue
		}
		payload, err := json.Marshal(obj.rows)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", obj.relation, err))
			continue
		}
		if err := a.store.UploadObject(ctx, ArchiveKey(key, obj.relation), payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (noopArchiver) Archive(context.Context, domain.SnapshotKey, pipeline.Outputs) error {
	return nil
}
