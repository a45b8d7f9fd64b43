package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/notify"
	"github.com/NVK2907/sms-app-sub000/core/school"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

type listOptions struct {
	page    int // one-based
	size    int
	filters map[string]string
	keyword string
}

// entity runs the record commands of one resource.
type entity interface {
	list(ctx context.Context, cli *commandLine, opts listOptions) error
	get(ctx context.Context, cli *commandLine, id int64) error
	create(ctx context.Context, cli *commandLine, data []byte) error
	update(ctx context.Context, cli *commandLine, id int64, data []byte) error
	delete(ctx context.Context, cli *commandLine, id int64) error
}

type typedEntity[T any] struct {
	def     school.Resource
	columns []string // JSON keys shown by list
}

func defineEntity[T any](name string, columns ...string) entity {
	return typedEntity[T]{def: school.Resources[name], columns: columns}
}

var entities = map[string]entity{
	"users":          defineEntity[school.User]("users", "id", "username", "fullName", "email", "isActive"),
	"students":       defineEntity[school.Student]("students", "id", "studentId", "firstName", "lastName", "className"),
	"teachers":       defineEntity[school.Teacher]("teachers", "id", "teacherId", "firstName", "lastName", "department"),
	"subjects":       defineEntity[school.Subject]("subjects", "id", "subjectCode", "subjectName", "credits"),
	"classes":        defineEntity[school.Class]("classes", "id", "classCode", "className", "courseYear", "capacity"),
	"semesters":      defineEntity[school.Semester]("semesters", "id", "name", "startDate", "endDate", "isActive"),
	"academic-years": defineEntity[school.AcademicYear]("academic-years", "id", "yearName", "startDate", "endDate", "isActive"),
	"grades":         defineEntity[school.Grade]("grades", "id", "studentId", "subjectId", "score", "gradeLetter"),
	"attendance":     defineEntity[school.AttendanceEntry]("attendance", "id", "studentId", "classId", "date", "status"),
}

func lookupEntity(name string) (entity, error) {
	e, ok := entities[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown entity %q (one of: %s)", name, strings.Join(school.ResourceNames(), ", "))
	}
	return e, nil
}

func (e typedEntity[T]) controller(cli *commandLine, size int) (*api.Resource[T], *listing.Controller[T]) {
	res := api.NewResource[T](cli.client, e.def)
	ctrl := listing.NewController[T](res, listing.Options{
		PageSize: size,
		Notifier: notify.WriterNotifier{W: cli.out},
		Logger:   cli.logger,
	})
	return res, ctrl
}

func (e typedEntity[T]) list(ctx context.Context, cli *commandLine, opts listOptions) error {
	_, ctrl := e.controller(cli, opts.size)

	filters := listing.Filters{}
	for k, v := range opts.filters {
		filters[k] = v
	}
	if opts.keyword != "" {
		filters[listing.KeywordFilter] = opts.keyword
	}
	var err error
	if len(filters) > 0 {
		err = ctrl.Search(ctx, filters, opts.page-1, opts.size)
	} else {
		err = ctrl.Load(ctx, opts.page-1, opts.size)
	}
	if err != nil {
		return cli.failed(err, "Failed to load "+e.def.Name)
	}
	return printPage(cli.out, ctrl.Snapshot(), e.columns)
}

func (e typedEntity[T]) get(ctx context.Context, cli *commandLine, id int64) error {
	res, _ := e.controller(cli, 0)
	rec, err := res.Get(ctx, id)
	if err != nil {
		return cli.failed(err, e.def.Label+" not found")
	}
	return printRecord(cli.out, rec)
}

func (e typedEntity[T]) decode(data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, errors.Wrap(err, "--data is not a valid "+e.def.Noun())
	}
	school.Complete(&rec)
	return rec, school.Validate(rec)
}

// mutate runs m through a list controller and prints the refreshed first page.
func (e typedEntity[T]) mutate(ctx context.Context, cli *commandLine, ctrl *listing.Controller[T], m listing.Mutation) error {
	if err := ctrl.Mutate(ctx, m); err != nil {
		return errReported
	}
	return printPage(cli.out, ctrl.Snapshot(), e.columns)
}

func (e typedEntity[T]) create(ctx context.Context, cli *commandLine, data []byte) error {
	rec, err := e.decode(data)
	if err != nil {
		return cli.failed(err, school.CreateFailedMsg(e.def))
	}
	res, ctrl := e.controller(cli, 0)
	return e.mutate(ctx, cli, ctrl, api.CreateMutation(res, rec))
}

func (e typedEntity[T]) update(ctx context.Context, cli *commandLine, id int64, data []byte) error {
	rec, err := e.decode(data)
	if err != nil {
		return cli.failed(err, school.UpdateFailedMsg(e.def))
	}
	res, ctrl := e.controller(cli, 0)
	return e.mutate(ctx, cli, ctrl, api.UpdateMutation(res, id, rec))
}

func (e typedEntity[T]) delete(ctx context.Context, cli *commandLine, id int64) error {
	res, ctrl := e.controller(cli, 0)
	return e.mutate(ctx, cli, ctrl, api.DeleteMutation(res, id))
}

// columnsOf reads the JSON keys of rec.
func columnsOf(rec interface{}, keys []string) []string {
	b, _ := json.Marshal(rec)
	fields := map[string]interface{}{}
	_ = json.Unmarshal(b, &fields)

	out := make([]string, len(keys))
	for i, k := range keys {
		switch v := fields[k].(type) {
		case nil:
			out[i] = "-"
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func printPage[T any](w io.Writer, snap listing.Snapshot[T], columns []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, rec := range snap.Items {
		school.Complete(&rec)
		fmt.Fprintln(tw, strings.Join(columnsOf(rec, columns), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	pages := snap.TotalPages
	if pages == 0 {
		pages = 1
	}
	line := fmt.Sprintf("page %d of %d, %d records", snap.DisplayPage(), pages, snap.TotalElements)
	if len(snap.Filters) > 0 {
		keys := make([]string, 0, len(snap.Filters))
		for k := range snap.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			keys[i] = k + "=" + snap.Filters[k]
		}
		line += " (" + strings.Join(keys, ", ") + ")"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func printRecord(w io.Writer, rec interface{}) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
