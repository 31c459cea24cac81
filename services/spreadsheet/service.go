package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/lophoc/core/classroom"
	"github.com/trezcool/lophoc/core/student"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	rosterSheet      = "Danh sách"
	historySheet     = "Lịch sử"
	redemptionsSheet = "Quà đã đổi"
	timeLayout       = "02/01/2006 15:04"
)

type ImportedStudent struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type ImportResult struct {
	Imported int               `json:"imported"`
	Errors   []string          `json:"errors"`
	Students []ImportedStudent `json:"students"`
}

// Service imports rosters into and exports them out of a classroom.
type Service struct {
	classroomSvc *classroom.Service
	studentSvc   *student.Service
	validate     *validator.Validate
	nowFunc      func() time.Time
}

func NewService(classroomSvc *classroom.Service, studentSvc *student.Service, validate *validator.Validate) *Service {
	return &Service{
		classroomSvc: classroomSvc,
		studentSvc:   studentSvc,
		validate:     validate,
		nowFunc:      time.Now,
	}
}

// Import creates a student for every valid line of the file. Invalid lines are reported, not fatal.
func (svc *Service) Import(ctx context.Context, classroomID, filename string, r io.Reader) (ImportResult, error) {
	if _, err := svc.classroomSvc.Get(ctx, classroomID); err != nil {
		return ImportResult{}, errors.Wrap(err, "getting classroom")
	}

	rows, rowErrs, err := ReadRows(filename, r)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Errors: rowErrs, Students: make([]ImportedStudent, 0, len(rows))}
	for _, row := range rows {
		ns := student.NewStudent{Name: row.Name, OrderNumber: row.Position, TotalPoints: row.Points}
		if err = ns.Validate(svc.validate); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: invalid student name", row.Line))
			continue
		}
		if _, err = svc.studentSvc.Create(ctx, classroomID, ns); err != nil {
			return res, errors.Wrapf(err, "creating student of row %d", row.Line)
		}
		res.Students = append(res.Students, ImportedStudent{Name: ns.Name, Points: ns.TotalPoints})
		res.Imported++
	}
	return res, nil
}

// Export writes the classroom's roster, point history and redemptions to an .xlsx workbook.
// It returns the suggested file name.
func (svc *Service) Export(ctx context.Context, classroomID string, w io.Writer) (string, error) {
	c, err := svc.classroomSvc.Get(ctx, classroomID)
	if err != nil {
		return "", errors.Wrap(err, "getting classroom")
	}
	students, err := svc.studentSvc.Query(ctx, classroomID)
	if err != nil {
		return "", errors.Wrap(err, "querying students")
	}
	history, err := svc.studentSvc.ClassroomHistory(ctx, classroomID)
	if err != nil {
		return "", errors.Wrap(err, "querying history")
	}
	redemptions, err := svc.studentSvc.ClassroomRedemptions(ctx, classroomID)
	if err != nil {
		return "", errors.Wrap(err, "querying redemptions")
	}

	f, err := buildWorkbook(students, history, redemptions)
	if err != nil {
		return "", errors.Wrap(err, "building workbook")
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return "", errors.Wrap(err, "writing workbook")
	}
	if _, err = buf.WriteTo(w); err != nil {
		return "", errors.Wrap(err, "writing workbook")
	}
	return ExportFilename(c.Name, svc.nowFunc()), nil
}

func ExportFilename(classroomName string, now time.Time) string {
	return fmt.Sprintf("xephang_%s_%s.xlsx", classroomName, now.Format("20060102"))
}

func buildWorkbook(
	students []student.Student,
	history []student.PointHistoryEntry,
	redemptions []student.Redemption,
) (*excelize.File, error) {
	historyBy := make(map[string][]student.PointHistoryEntry, len(students))
	for _, h := range history {
		historyBy[h.StudentID] = append(historyBy[h.StudentID], h)
	}
	redemptionsBy := make(map[string][]student.Redemption, len(students))
	for _, r := range redemptions {
		redemptionsBy[r.StudentID] = append(redemptionsBy[r.StudentID], r)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return nil, err
	}
	for _, sheet := range []string{historySheet, redemptionsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}

	roster := &sheetWriter{f: f, sheet: rosterSheet}
	roster.append("STT", "Tên", "Điểm", "Hạng", "Tổng cộng", "Tổng trừ")
	hist := &sheetWriter{f: f, sheet: historySheet}
	hist.append("Tên", "Thời gian", "Thay đổi", "Lý do", "Điểm sau")
	rdms := &sheetWriter{f: f, sheet: redemptionsSheet}
	rdms.append("Tên", "Quà", "Điểm tiêu", "Thời gian")

	for _, s := range students {
		var added, deducted int
		for _, h := range historyBy[s.ID] {
			if h.Change > 0 {
				added += h.Change
			} else {
				deducted += h.Change
			}
		}
		roster.append(s.OrderNumber, s.Name, s.TotalPoints, s.Rank().Name(), added, deducted)

		for _, h := range historyBy[s.ID] {
			hist.append(s.Name, h.Timestamp.UTC().Format(timeLayout), h.Change, h.Reason, h.PointsAfter)
		}
		for _, r := range redemptionsBy[s.ID] {
			rdms.append(s.Name, r.RewardName, r.PointsSpent, r.Timestamp.UTC().Format(timeLayout))
		}
	}

	for _, w := range []*sheetWriter{roster, hist, rdms} {
		if w.err != nil {
			return nil, w.err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// sheetWriter appends rows to a sheet, keeping the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) append(values ...interface{}) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}
