package services

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/observability"
	"context"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ProvisioningService creates the test accounts and logs them in.
// A failure excludes one identity and is never retried.
type ProvisioningService struct {
	log           *slog.Logger
	backend       contract.IBackend
	stats         *observability.Stats
	registerLimit int
	loginLimit    int
}

// NewProvisioningService bounds register and login fan-out. A limit <= 0 means unbounded.
func NewProvisioningService(log *slog.Logger, backend contract.IBackend,
	stats *observability.Stats, registerLimit, loginLimit int) *ProvisioningService {
	return &ProvisioningService{
		log:           log,
		backend:       backend,
		stats:         stats,
		registerLimit: registerLimit,
		loginLimit:    loginLimit,
	}
}

// Register returns the identities the backend reported as created or already existing.
func (s *ProvisioningService) Register(ctx context.Context, identities []domain.Identity) []domain.Identity {
	ok := make([]bool, len(identities))

	g := fanOut(s.registerLimit)
	for i, identity := range identities {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := identity.Validate(); err != nil {
				s.stats.RegisterFailed.Add(1)
				s.log.Warn("Invalid identity", "email", identity.Email, "error", err)
				return nil
			}
			status, err := s.backend.Register(ctx, identity)
			if err != nil {
				s.stats.RegisterFailed.Add(1)
				s.log.Warn("Failed to register", "email", identity.Email, "error", err)
				return nil
			}
			ok[i] = true
			s.stats.Registered.Add(1)
			s.log.Debug("Registered", "email", identity.Email, "status", status.String())
			return nil
		})
	}
	_ = g.Wait()

	return lo.Filter(identities, func(_ domain.Identity, i int) bool { return ok[i] })
}

// Login returns the credentials of every identity that logged in.
func (s *ProvisioningService) Login(ctx context.Context, identities []domain.Identity) []domain.Credentials {
	results := make([]*domain.Credentials, len(identities))

	g := fanOut(s.loginLimit)
	for i, identity := range identities {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			creds, err := s.backend.Login(ctx, identity)
			if err != nil {
				s.stats.LoginFailed.Add(1)
				s.log.Warn("Failed to login", "email", identity.Email, "error", err)
				return nil
			}
			results[i] = &creds
			s.stats.LoggedIn.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return lo.FilterMap(results, func(c *domain.Credentials, _ int) (domain.Credentials, bool) {
		if c == nil {
			return domain.Credentials{}, false
		}
		return *c, true
	})
}

// fanOut never returns an error from its goroutines: failures stay per identity.
func fanOut(limit int) *errgroup.Group {
	g := &errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	return g
}
