package services

import (
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/update"
)

func updateArtifact(key string) update.Op {
	return update.SetArtifact(domain.ArtifactPointer{ObjectKey: key, UpdatedAt: domain.FormatTimestamp(testNow)})
}
