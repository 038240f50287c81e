package loading

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	groupSheet  = "Groups"
	memberSheet = "Orders"
)

var groupHeader = []any{
	"Loading Number", "Date", "Employee", "Vehicle", "Area", "Orders",
	"Total Amount", "Collected", "Pending", "Total Value", "Approvable", "Mixed Attributes",
}

var memberHeader = []any{
	"Group", "Order ID", "Date", "Status", "Customer", "Employee", "Vehicle", "Area",
	"Total Amount", "Collected", "Pending", "Total Value",
}

// WriteLoadingSheet writes groups as an XLSX workbook: one row per group on the first sheet and
// one row per member order on the second.
func WriteLoadingSheet(w io.Writer, groups []Group) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", groupSheet); err != nil {
		return fmt.Errorf("loading: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(memberSheet); err != nil {
		return fmt.Errorf("loading: add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	if err := writeRow(f, groupSheet, 1, groupHeader); err != nil {
		return err
	}
	if err := writeRow(f, memberSheet, 1, memberHeader); err != nil {
		return err
	}
	_ = f.SetRowStyle(groupSheet, 1, 1, bold)
	_ = f.SetRowStyle(memberSheet, 1, 1, bold)

	memberRow := 2
	for i, g := range groups {
		row := []any{
			groupLabel(g), formatDate(g.Date), g.EmployeeName, g.VehicleNumber, g.Area, g.OrderCount,
			g.TotalAmount.InexactFloat64(), g.CollectedAmount.InexactFloat64(),
			g.PendingAmount.InexactFloat64(), g.TotalValue.InexactFloat64(),
			yesNo(g.Approvable), strings.Join(g.MixedAttributes, ", "),
		}
		if err := writeRow(f, groupSheet, i+2, row); err != nil {
			return err
		}
		for _, o := range g.Orders {
			row := []any{
				groupLabel(g), o.ID, formatDate(o.DisplayDate()), string(o.Status), o.CustomerName,
				o.EmployeeName, o.VehicleNumber, o.Area,
				o.TotalAmount.InexactFloat64(), o.CollectedAmount.InexactFloat64(),
				o.PendingAmount.InexactFloat64(), o.TotalValue.InexactFloat64(),
			}
			if err := writeRow(f, memberSheet, memberRow, row); err != nil {
				return err
			}
			memberRow++
		}
	}

	if len(groups) > 0 {
		_ = f.SetCellStyle(groupSheet, "G2", fmt.Sprintf("J%d", len(groups)+1), money)
	}
	if memberRow > 2 {
		_ = f.SetCellStyle(memberSheet, "I2", fmt.Sprintf("L%d", memberRow-1), money)
	}
	_ = f.SetColWidth(groupSheet, "A", "L", 16)
	_ = f.SetColWidth(memberSheet, "A", "L", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("loading: write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("loading: write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func groupLabel(g Group) string {
	if g.Synthetic {
		return g.Key
	}
	return g.LoadingNumber
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
