package usecase

import (
	"context"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type DashboardUsecase interface {
	Summary(ctx context.Context) (*dto.DashboardResponse, error)
}

type dashboardUsecase struct {
	log             *logrus.Logger
	submissionRepo  repository.ContactSubmissionRepository
	appointmentRepo repository.AppointmentRepository
	profileRepo     repository.ProfileRepository
}

func NewDashboardUsecase(
	log *logrus.Logger,
	submissionRepo repository.ContactSubmissionRepository,
	appointmentRepo repository.AppointmentRepository,
	profileRepo repository.ProfileRepository,
) DashboardUsecase {
	return &dashboardUsecase{
		log:             log,
		submissionRepo:  submissionRepo,
		appointmentRepo: appointmentRepo,
		profileRepo:     profileRepo,
	}
}

// Summary runs the three counts concurrently.
func (u *dashboardUsecase) Summary(ctx context.Context) (*dto.DashboardResponse, error) {
	var (
		byStatus map[entity.SubmissionStatus]int64
		byRole   map[entity.Role]int64
		upcoming int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = u.submissionRepo.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = u.appointmentRepo.CountUpcoming(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byRole, err = u.profileRepo.CountByRole(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to build dashboard: %+v", err)
		return nil, err
	}

	response := &dto.DashboardResponse{
		NewSubmissions:       byStatus[entity.SubmissionStatusNew],
		UpcomingAppointments: upcoming,
		ProfilesByRole:       make(map[string]int64, len(byRole)),
	}
	for _, count := range byStatus {
		response.TotalSubmissions += count
	}
	for role, count := range byRole {
		response.ProfilesByRole[string(role)] = count
	}

	return response, nil
}
