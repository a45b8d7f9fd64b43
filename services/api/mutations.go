package api

import (
	"context"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/school"
)

// Record level actions
const (
	ToggleStatusAction  = "toggle-status"
	ResetPasswordAction = "reset-password"
)

// CreateMutation, UpdateMutation etc. build the list controller mutations of a resource,
// with its notification texts.

func CreateMutation[T any](r *Resource[T], rec T) listing.Mutation {
	return listing.Mutation{
		Do: func(ctx context.Context) error {
			_, err := r.Create(ctx, rec)
			return err
		},
		Success:  school.CreatedMsg(r.def),
		Fallback: school.CreateFailedMsg(r.def),
	}
}

func UpdateMutation[T any](r *Resource[T], id int64, rec T) listing.Mutation {
	return listing.Mutation{
		Do: func(ctx context.Context) error {
			_, err := r.Update(ctx, id, rec)
			return err
		},
		Success:  school.UpdatedMsg(r.def),
		Fallback: school.UpdateFailedMsg(r.def),
	}
}

func DeleteMutation[T any](r *Resource[T], id int64) listing.Mutation {
	return listing.Mutation{
		Do:       func(ctx context.Context) error { return r.Delete(ctx, id) },
		Success:  school.DeletedMsg(r.def),
		Fallback: school.DeleteFailedMsg(r.def),
	}
}

func ToggleStatusMutation[T any](r *Resource[T], id int64) listing.Mutation {
	return listing.Mutation{
		Do:       func(ctx context.Context) error { return r.Action(ctx, id, ToggleStatusAction, nil) },
		Success:  r.def.Label + " status updated successfully",
		Fallback: "Failed to update " + r.def.Noun() + " status",
	}
}

type resetPasswordReq struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func ResetPasswordMutation[T any](r *Resource[T], id int64, newPassword string) listing.Mutation {
	return listing.Mutation{
		Do: func(ctx context.Context) error {
			req := resetPasswordReq{NewPassword: newPassword}
			if err := core.ValidateStruct(req); err != nil {
				return err
			}
			return r.Action(ctx, id, ResetPasswordAction, req)
		},
		Success:  "Password reset successfully",
		Fallback: "Failed to reset password",
	}
}
