package exportsvc

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/user"
)

const sheetName = "Evaluations"

var headers = []interface{}{"Date (UTC)", "Channel", "Score", "Band", "Evaluator", "General notes", "ID"}

type xlsxExporter struct{}

var _ evaluation.Exporter = (*xlsxExporter)(nil)

func NewXLSXExporter() *xlsxExporter {
	return &xlsxExporter{}
}

// ExportEvaluations writes one row per evaluation, in the given order, under a title and a header row.
func (xlsxExporter) ExportEvaluations(agent user.User, rows []evaluation.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "deleting default sheet")
	}

	_ = f.SetColWidth(sheetName, "A", "A", 20)
	_ = f.SetColWidth(sheetName, "B", "D", 10)
	_ = f.SetColWidth(sheetName, "E", "E", 24)
	_ = f.SetColWidth(sheetName, "F", "F", 48)
	_ = f.SetColWidth(sheetName, "G", "G", 38)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	if err = f.SetCellValue(sheetName, "A1", "Evaluations of "+agent.Name+" ("+agent.Username+")"); err != nil {
		return nil, errors.Wrap(err, "writing title")
	}
	_ = f.MergeCell(sheetName, "A1", "G1")

	if err = f.SetSheetRow(sheetName, "A2", &headers); err != nil {
		return nil, errors.Wrap(err, "writing headers")
	}
	_ = f.SetCellStyle(sheetName, "A2", "G2", headerStyle)

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		values := []interface{}{
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			string(r.Channel),
			r.Score,
			string(r.Evaluation.Band()),
			r.EvaluatorName,
			r.GeneralNotes,
			r.ID,
		}
		if err = f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
	}

	buf := new(bytes.Buffer)
	if err = f.Write(buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
