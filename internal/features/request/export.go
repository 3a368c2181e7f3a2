package request

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{
	"Request Number", "Title", "Status", "Entity Type", "Entity ID",
	"Amount", "Currency", "Requester", "Current Step", "Submitted At", "Created At",
}

// ExportRequests renders the matching requests as an XLSX workbook and
// returns the file bytes with a timestamped filename.
func (s *RequestServiceImpl) ExportRequests(ctx context.Context, filter map[string]interface{}) ([]byte, string, error) {
	requests, _, err := s.Repo.List(ctx, filter, 0, 0)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Requests"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, req := range requests {
		amount := ""
		if req.Amount != nil {
			amount = fmt.Sprintf("%.2f", *req.Amount)
		}
		submittedAt := ""
		if req.SubmittedAt != nil {
			submittedAt = req.SubmittedAt.Format("2006-01-02 15:04:05")
		}

		values := []interface{}{
			req.RequestNumber,
			req.Title,
			string(req.Status),
			req.EntityType,
			req.EntityID,
			amount,
			req.Currency,
			req.RequesterID,
			req.CurrentStep,
			submittedAt,
			req.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("approval_requests_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}
