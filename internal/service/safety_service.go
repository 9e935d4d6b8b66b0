package service

import (
	"context"
	"errors"
	"strings"

	"meetly/internal/domain"
	"meetly/internal/models"
	"meetly/internal/repository"
)

type ReportInput struct {
	ReportedUserID uint
	Reason         string
	Description    string
}

// RequestMeta identifies where an audited request came from.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type SafetyService struct {
	store    repository.Store
	notifier Notifier
}

func NewSafetyService(store repository.Store, notifier Notifier) *SafetyService {
	return &SafetyService{store: store, notifier: notifier}
}

// Report files a report against another user and writes an audit entry with it.
func (s *SafetyService) Report(ctx context.Context, reporterID uint, in ReportInput, meta RequestMeta) (*models.Report, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" || len(reason) > 50 {
		return nil, domain.Errorf(domain.KindValidation, "reason is required and must be at most 50 characters")
	}
	if in.ReportedUserID == reporterID {
		return nil, domain.Errorf(domain.KindValidation, "cannot report yourself")
	}

	report := &models.Report{
		ReporterID:  reporterID,
		ReportedID:  in.ReportedUserID,
		Reason:      reason,
		Description: strings.TrimSpace(in.Description),
		Status:      domain.ReportStatusPending,
	}
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		_, err := tx.Users().GetByID(ctx, in.ReportedUserID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Errorf(domain.KindNotFound, "user not found")
		}
		if err != nil {
			return domain.Internal("could not load user", err)
		}
		if err := tx.Reports().Create(ctx, report); err != nil {
			return domain.Internal("could not submit report", err)
		}
		entry := &models.AuditLog{
			UserID:     &reporterID,
			Action:     "report_create",
			Resource:   "report",
			ResourceID: uintString(report.ID),
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
		}
		if err := tx.AuditLogs().Create(ctx, entry); err != nil {
			return domain.Internal("could not write audit log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyAll(ctx, s.notifier, adminIDs(ctx, s.store.Users(), reporterID), domain.NotifUserReported,
		"User reported", "A user was reported for "+reason+".",
		map[string]interface{}{"report_id": report.ID, "reported_user_id": report.ReportedID})
	return report, nil
}
