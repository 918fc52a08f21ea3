package privacy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/database"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
)

// Pseudonymizer maps employee names to salted SHA-256 digests. With Mask
// off the name itself is kept for display and only the lookup key is
// hashed.
type Pseudonymizer struct {
	salt string
	mask bool
}

// NewPseudonymizer creates a mapper. An empty salt still hashes, but the
// digests are then guessable from a list of names.
func NewPseudonymizer(salt string, mask bool) *Pseudonymizer {
	return &Pseudonymizer{salt: salt, mask: mask}
}

// Hash returns the stable lookup key for an employee.
func (p *Pseudonymizer) Hash(employeeID string) string {
	sum := sha256.Sum256([]byte(p.salt + employeeID))
	return hex.EncodeToString(sum[:])
}

// Display returns what is stored as the visible identifier.
func (p *Pseudonymizer) Display(employeeID string) string {
	if !p.mask {
		return employeeID
	}
	return p.Hash(employeeID)[:16]
}

// Service applies retention and erasure to the run history.
type Service struct {
	repo      *database.Repository
	retention time.Duration
	logger    *monitoring.Logger
	now       func() time.Time
}

// NewService creates a privacy service. A retention of zero keeps runs
// forever.
func NewService(repo *database.Repository, retentionDays int, logger *monitoring.Logger) *Service {
	if logger == nil {
		logger = monitoring.NewNopLogger()
	}
	return &Service{
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// GetDataRetentionInfo describes the active policy.
func (s *Service) GetDataRetentionInfo() map[string]interface{} {
	return map[string]interface{}{
		"retention_days": int(s.retention.Hours() / 24),
		"enabled":        s.retention > 0,
	}
}

// Cleanup deletes runs older than the retention period.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.retention)
	n, err := s.repo.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().
			Int64("runs", n).
			Time("cutoff", cutoff).
			Msg("Expired runs deleted")
	}
	return n, nil
}

// ScheduleCleanup runs Cleanup every interval until ctx is done.
func (s *Service) ScheduleCleanup(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Cleanup(ctx); err != nil {
					s.logger.Error().Err(err).Msg("Failed to clean up run history")
				}
			}
		}
	}()
}

// ForgetEmployee erases an employee's stored results.
func (s *Service) ForgetEmployee(ctx context.Context, employeeID string) (int64, error) {
	n, err := s.repo.DeleteEmployee(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("rows", n).Msg("Employee history erased")
	return n, nil
}
