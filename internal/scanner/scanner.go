// Package scanner runs periodic deal scans for every user: a ticker-driven
// loop that searches, scores, notifies, and archives snapshots.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valoriste/valoriste/internal/domain"
	"github.com/valoriste/valoriste/internal/notify"
	"github.com/valoriste/valoriste/internal/service"
)

// Scanner drives the recurring scan loop.
type Scanner struct {
	deals    *service.DealService
	users    *service.UserService
	notifier *notify.Notifier // optional
	archiver domain.Archiver  // optional
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Scanner. notifier and archiver may be nil.
func New(deals *service.DealService, users *service.UserService, notifier *notify.Notifier, archiver domain.Archiver, interval time.Duration, logger *slog.Logger) *Scanner {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scanner{
		deals:    deals,
		users:    users,
		notifier: notifier,
		archiver: archiver,
		interval: interval,
		logger:   logger,
	}
}

// Run scans immediately, then on every tick until the context is cancelled.
// Authorization loss stops the loop: no scan can succeed until a human redoes
// the consent flow, so retrying only burns quota.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner starting", slog.Duration("interval", s.interval))

	if err := s.ScanAll(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.ScanAll(ctx); err != nil {
				return err
			}
		}
	}
}

// ScanAll runs one scan pass over every user. Per-user failures are logged
// and skipped; authorization failures abort the pass.
func (s *Scanner) ScanAll(ctx context.Context) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("scanner: list users: %w", err)
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.scanUser(ctx, user); err != nil {
			if errors.Is(err, domain.ErrAuthorizationRequired) {
				s.notifyAuthRequired(ctx)
				return fmt.Errorf("scanner: %w", err)
			}
			s.logger.Error("scanner: user scan failed",
				slog.String("user", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (s *Scanner) scanUser(ctx context.Context, user domain.User) error {
	result, err := s.deals.FindDeals(ctx, user.ID, domain.DealFilter{Sort: domain.SortByROI})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyDeals(ctx, result); err != nil {
			s.logger.Warn("scanner: deal notification failed",
				slog.String("user", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.archiver != nil && len(result.Deals) > 0 {
		path, err := s.archiver.ArchiveScan(ctx, result)
		if err != nil {
			s.logger.Warn("scanner: snapshot archive failed",
				slog.String("scan_id", result.ScanID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.Debug("scanner: snapshot archived", slog.String("path", path))
		}
	}

	return nil
}

func (s *Scanner) notifyAuthRequired(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, notify.EventAuthRequired,
		"eBay authorization required",
		"The refresh token is no longer usable. Visit /api/auth/url to re-authorize.")
	if err != nil {
		s.logger.Warn("scanner: auth notification failed", slog.String("error", err.Error()))
	}
}
