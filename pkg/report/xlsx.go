package report

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/sccm-datasci/ards-platform/pkg/stats"
	"github.com/xuri/excelize/v2"
)

// WriteTableOneXLSX renders Table 1 plus the per-quartile breakdown as a
// workbook for collaborators who review characteristics outside the code.
func WriteTableOneXLSX(dir, sourceName string, groups, quartiles []stats.GroupSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, "Table 1", groups); err != nil {
		return err
	}
	if err := writeSummarySheet(f, "By Quartile", quartiles); err != nil {
		return err
	}

	// Drop the default sheet created by NewFile.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	path := filepath.Join(dir, fmt.Sprintf("table_one_%s.xlsx", sourceName))
	return f.SaveAs(path)
}

func writeSummarySheet(f *excelize.File, sheetName string, groups []stats.GroupSummary) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	labels := []string{
		"N", "Age, mean (SD)", "Female, n (%)", "S/F at onset, mean (SD)",
		"Quartile 1, n", "Quartile 2, n", "Quartile 3, n", "Quartile 4, n",
		"No S/F at onset, n", "Early prone, n (%)", "Mortality, n (%)",
		"Hospital LOS, median [IQR]", "VFD-28, median",
	}

	if err := setCell(f, sheetName, 1, 1, "Characteristic"); err != nil {
		return err
	}
	for col, g := range groups {
		if err := setCell(f, sheetName, col+2, 1, g.Name); err != nil {
			return err
		}
	}
	for row, label := range labels {
		if err := setCell(f, sheetName, 1, row+2, label); err != nil {
			return err
		}
	}

	for col, g := range groups {
		values := []string{
			strconv.Itoa(g.N),
			fmt.Sprintf("%.1f (%.1f)", g.AgeMean, g.AgeSD),
			fmt.Sprintf("%d (%.1f%%)", g.FemaleN, g.FemalePct),
			fmt.Sprintf("%.1f (%.1f)", g.SFAtOnsetMean, g.SFAtOnsetSD),
			strconv.Itoa(g.QuartileN[0]),
			strconv.Itoa(g.QuartileN[1]),
			strconv.Itoa(g.QuartileN[2]),
			strconv.Itoa(g.QuartileN[3]),
			strconv.Itoa(g.UnassignedN),
			fmt.Sprintf("%d (%.1f%%)", g.EarlyProneN, g.EarlyPronePct),
			fmt.Sprintf("%d (%.1f%%)", g.MortalityN, g.MortalityPct),
			fmt.Sprintf("%.1f [%.1f-%.1f]", g.HospitalLOSMedian, g.HospitalLOSQ1, g.HospitalLOSQ3),
			fmt.Sprintf("%.1f", g.VentFreeDays28Median),
		}
		for row, value := range values {
			if err := setCell(f, sheetName, col+2, row+2, value); err != nil {
				return err
			}
		}
	}

	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
