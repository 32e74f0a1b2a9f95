package usecase

import (
	"context"
	"testing"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorUsecase_Public(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	// Wilson's account is deactivated and must vanish from public pages.
	require.NoError(t, f.profiles.SetActive(ctx, f.wilson.ID, false))

	resp, err := f.doctorUC.ListPublicDoctors(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Greg House", resp.Doctors[0].Name)

	_, err = f.doctorUC.GetPublicDoctor(ctx, f.wilsonDoc.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	public, err := f.doctorUC.GetPublicDoctor(ctx, f.houseDoc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Diagnostics", public.Specialization)

	all, err := f.doctorUC.ListDoctors(ctx, &entity.DoctorFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
}

func TestDoctorUsecase_Update(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	bio := "Board-certified diagnostician."
	resp, err := f.doctorUC.UpdateMyDoctorProfile(ctx, f.house, &dto.UpdateDoctorRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, resp.Bio)
	assert.Equal(t, "Diagnostics", resp.Specialization)

	_, err = f.doctorUC.UpdateDoctor(ctx, f.house, f.wilsonDoc.ID, &dto.UpdateDoctorRequest{Bio: &bio})
	assert.ErrorIs(t, err, ErrForbidden)

	fee := decimal.RequireFromString("-1")
	_, err = f.doctorUC.UpdateDoctor(ctx, f.admin, f.wilsonDoc.ID, &dto.UpdateDoctorRequest{ConsultationFee: &fee})
	assert.ErrorIs(t, err, ErrInvalidFee)

	capacity := 4
	resp, err = f.doctorUC.UpdateDoctor(ctx, f.admin, f.wilsonDoc.ID, &dto.UpdateDoctorRequest{DefaultCapacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.DefaultCapacity)

	_, err = f.doctorUC.UpdateDoctor(ctx, f.admin, uuid.New(), &dto.UpdateDoctorRequest{})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.doctorUC.GetMyDoctorProfile(ctx, f.admin)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	assert.Equal(t, []string{entity.AuditActionDoctorUpdate, entity.AuditActionDoctorUpdate}, f.audit.Actions())
}
