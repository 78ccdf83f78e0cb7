package services

import (
	"chat-stress/contract"
	"chat-stress/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// CleanupService removes test accounts independently from a harness run.
type CleanupService struct {
	log        *slog.Logger
	backend    contract.IBackend
	repository contract.IIdentityRepository
	adminToken string
	limit      int
}

func NewCleanupService(log *slog.Logger, backend contract.IBackend,
	repository contract.IIdentityRepository, adminToken string, limit int) *CleanupService {
	return &CleanupService{
		log:        log,
		backend:    backend,
		repository: repository,
		adminToken: adminToken,
		limit:      limit,
	}
}

// CleanupListed deletes every identity of the durable list one by one.
// Deleted identities leave the list; failed ones stay for a later pass.
func (s *CleanupService) CleanupListed(ctx context.Context) (deleted, failed int, err error) {
	identities, err := s.repository.List()
	if err != nil {
		return 0, 0, fmt.Errorf("listing identities: %w", err)
	}
	if len(identities) == 0 {
		s.log.Info("Nothing to clean")
		return 0, 0, nil
	}

	var mu sync.Mutex
	var done []string

	g := fanOut(s.limit)
	for _, identity := range identities {
		g.Go(func() error {
			if err := s.backend.DeleteUser(ctx, identity.Email, s.adminToken); err != nil {
				s.log.Warn("Failed to delete", "email", identity.Email, "error", err)
				return nil
			}
			mu.Lock()
			done = append(done, identity.Email)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err = s.repository.Delete(done...); err != nil {
		return len(done), len(identities) - len(done), fmt.Errorf("updating identity list: %w", err)
	}
	s.log.Info("Cleanup finished", "deleted", len(done), "failed", len(identities)-len(done))
	return len(done), len(identities) - len(done), nil
}

// Purge calls the bulk delete once and forgets the durable list on success.
func (s *CleanupService) Purge(ctx context.Context) (int, error) {
	status, err := s.backend.DeleteAllUsers(ctx)
	if err != nil {
		return status, err
	}
	if err = s.repository.Clear(); err != nil {
		return status, fmt.Errorf("%w: clearing identity list: %v", errors.ErrCleanupFailed, err)
	}
	return status, nil
}
