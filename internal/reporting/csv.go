package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders approved pair rows as CSV string.
func RenderCSV(rows []PairRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("pair_id,left,right,window,n_samples,adf_pct,zscore,beta,half_life,corr30,corr60,chosen_window\n")

	// Rows
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%s,%s,%s,%s,%s,%s,%s\n",
			p.PairID,
			p.Left,
			p.Right,
			p.Window,
			p.NSamples,
			csvFloat(p.ADFPct),
			csvFloat(p.ZScore),
			csvFloat(p.Beta),
			csvFloat(p.HalfLife),
			csvFloat(p.Corr30),
			csvFloat(p.Corr60),
			csvInt(p.ChosenWindow),
		))
	}

	return sb.String()
}

func csvFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *p)
}

func csvInt(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}
