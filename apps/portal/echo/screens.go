package echoportal

import (
	"context"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/school"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

// screen is a mounted management screen: one list controller over one resource.
type screen interface {
	name() string
	view() interface{}
	load(ctx context.Context, page int) error
	refresh(ctx context.Context) error
	changePage(ctx context.Context, page int) error
	setFilters(ctx context.Context, filters map[string]string) error
	submitSearch(ctx context.Context, keyword string) error
	clearFilters(ctx context.Context) error
	openDialog(ctx context.Context, kind listing.DialogKind, id int64) error
	closeDialog()
	create(ctx context.Context, decode func(interface{}) error) error
	update(ctx context.Context, id int64, decode func(interface{}) error) error
	delete(ctx context.Context, id int64) error
	toggleStatus(ctx context.Context, id int64) error
	resetPassword(ctx context.Context, id int64, newPassword string) error
}

// mutationError is a failed mutation; it has already been notified.
type mutationError struct {
	error
}

func (e mutationError) Unwrap() error { return e.error }

type screenDef struct {
	role     session.Role
	resource school.Resource
	readOnly bool
	actions  bool // user account actions
	mount    func(ws *workspace, opts listing.Options) screen
}

func (d screenDef) key() string { return d.role.String() + "/" + d.resource.Name }

func defineScreen[T any](role session.Role, resource string, readOnly, actions bool) screenDef {
	def := screenDef{role: role, resource: school.Resources[resource], readOnly: readOnly, actions: actions}
	inner := def
	def.mount = func(ws *workspace, opts listing.Options) screen {
		res := api.NewResource[T](ws.client, inner.resource)
		return &typedScreen[T]{def: inner, res: res, ctrl: listing.NewController[T](res, opts)}
	}
	return def
}

var screens = map[session.Role][]screenDef{
	session.RoleAdmin: {
		defineScreen[school.User](session.RoleAdmin, "users", false, true),
		defineScreen[school.Student](session.RoleAdmin, "students", false, false),
		defineScreen[school.Teacher](session.RoleAdmin, "teachers", false, false),
		defineScreen[school.Subject](session.RoleAdmin, "subjects", false, false),
		defineScreen[school.Class](session.RoleAdmin, "classes", false, false),
		defineScreen[school.Semester](session.RoleAdmin, "semesters", false, false),
		defineScreen[school.AcademicYear](session.RoleAdmin, "academic-years", false, false),
	},
	session.RoleTeacher: {
		defineScreen[school.Grade](session.RoleTeacher, "grades", false, false),
		defineScreen[school.AttendanceEntry](session.RoleTeacher, "attendance", false, false),
		defineScreen[school.Class](session.RoleTeacher, "classes", true, false),
	},
	session.RoleStudent: {
		defineScreen[school.Grade](session.RoleStudent, "grades", true, false),
		defineScreen[school.AttendanceEntry](session.RoleStudent, "attendance", true, false),
	},
}

func screensOf(role session.Role) []screenDef { return screens[role] }

type listView[T any] struct {
	listing.Snapshot[T]
	DisplayPage int  `json:"displayPage"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type typedScreen[T any] struct {
	def  screenDef
	res  *api.Resource[T]
	ctrl *listing.Controller[T]
}

func (s *typedScreen[T]) name() string { return s.def.key() }

func (s *typedScreen[T]) view() interface{} {
	snap := s.ctrl.Snapshot()
	return listView[T]{
		Snapshot:    snap,
		DisplayPage: snap.DisplayPage(),
		HasNext:     snap.HasNext(),
		HasPrev:     snap.HasPrev(),
	}
}

func (s *typedScreen[T]) load(ctx context.Context, page int) error {
	return s.ctrl.Load(ctx, page, 0)
}

func (s *typedScreen[T]) refresh(ctx context.Context) error { return s.ctrl.Refresh(ctx) }

func (s *typedScreen[T]) changePage(ctx context.Context, page int) error {
	return s.ctrl.ChangePage(ctx, page)
}

// setFilters merges filters into the active ones.
func (s *typedScreen[T]) setFilters(ctx context.Context, filters map[string]string) error {
	merged := s.ctrl.Snapshot().Filters
	for k, v := range filters {
		merged[k] = v
	}
	return s.ctrl.Search(ctx, merged, 0, 0)
}

func (s *typedScreen[T]) submitSearch(ctx context.Context, keyword string) error {
	return s.ctrl.SubmitSearch(ctx, keyword)
}

func (s *typedScreen[T]) clearFilters(ctx context.Context) error { return s.ctrl.ClearFilters(ctx) }

func (s *typedScreen[T]) openDialog(ctx context.Context, kind listing.DialogKind, id int64) error {
	if s.def.readOnly && kind != listing.ViewDialog {
		return errHttpForbidden
	}
	switch kind {
	case listing.AddDialog:
		s.ctrl.OpenAdd()
	case listing.EditDialog, listing.ViewDialog:
		rec, err := s.res.Get(ctx, id)
		if err != nil {
			return err
		}
		if kind == listing.EditDialog {
			s.ctrl.OpenEdit(rec)
		} else {
			s.ctrl.OpenView(rec)
		}
	default:
		return errInvalidDialog
	}
	return nil
}

func (s *typedScreen[T]) closeDialog() { s.ctrl.CloseDialog() }

// form decodes a submitted record, keeps it as the dialog draft and validates it.
func (s *typedScreen[T]) form(decode func(interface{}) error) (T, error) {
	var rec T
	if err := decode(&rec); err != nil {
		return rec, err
	}
	school.Complete(&rec)
	s.ctrl.SetDraft(rec)
	return rec, school.Validate(rec)
}

func (s *typedScreen[T]) mutate(ctx context.Context, m listing.Mutation) error {
	if s.def.readOnly {
		return errHttpForbidden
	}
	if err := s.ctrl.Mutate(ctx, m); err != nil {
		return mutationError{err}
	}
	return nil
}

func (s *typedScreen[T]) create(ctx context.Context, decode func(interface{}) error) error {
	rec, err := s.form(decode)
	if err != nil {
		return err
	}
	return s.mutate(ctx, api.CreateMutation(s.res, rec))
}

func (s *typedScreen[T]) update(ctx context.Context, id int64, decode func(interface{}) error) error {
	rec, err := s.form(decode)
	if err != nil {
		return err
	}
	return s.mutate(ctx, api.UpdateMutation(s.res, id, rec))
}

func (s *typedScreen[T]) delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, api.DeleteMutation(s.res, id))
}

func (s *typedScreen[T]) toggleStatus(ctx context.Context, id int64) error {
	if !s.def.actions {
		return errors.WithStack(errHttpNotFound)
	}
	return s.mutate(ctx, api.ToggleStatusMutation(s.res, id))
}

func (s *typedScreen[T]) resetPassword(ctx context.Context, id int64, newPassword string) error {
	if !s.def.actions {
		return errors.WithStack(errHttpNotFound)
	}
	return s.mutate(ctx, api.ResetPasswordMutation(s.res, id, newPassword))
}
