package api

import "github.com/soaringjerry/hireflow/internal/services"

// Store is the storage the router needs: definitions, responses and the
// draft key-value cache. memoryStore and db.SQLiteStore implement it.
type Store interface {
	services.AssessmentRepository
	services.DraftStore
}

var _ Store = (*memoryStore)(nil)
