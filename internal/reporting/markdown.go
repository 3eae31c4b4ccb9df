package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Pair Universe Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Pairs: %d\n\n", r.PairCount))

	// Universe Summary
	sb.WriteString("## Universe Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Pairs | %d |\n", r.Summary.TotalPairs))
	sb.WriteString(fmt.Sprintf("| Approved | %d |\n", r.Summary.Approved))
	sb.WriteString(fmt.Sprintf("| Rejected | %d |\n", r.Summary.Rejected))
	sb.WriteString(fmt.Sprintf("| Errored | %d |\n", r.Summary.Errored))
	sb.WriteString(fmt.Sprintf("| With Grid | %d |\n", r.Summary.WithGrid))
	sb.WriteString(fmt.Sprintf("| With Chosen Window | %d |\n", r.Summary.WithChosenWin))
	sb.WriteString("\n")

	// Hunt outcome
	if r.Hunt != nil {
		sb.WriteString("## Hunt Outcome\n\n")
		if r.Hunt.Found && r.Hunt.Window != nil {
			sb.WriteString(fmt.Sprintf("Approvals found at window **%d**.\n\n", *r.Hunt.Window))
		} else {
			sb.WriteString("No window produced an approval.\n\n")
		}
		sb.WriteString(fmt.Sprintf("Windows scanned: %s\n\n", joinInts(r.Hunt.ScannedWindows)))
		if len(r.Hunt.ApprovedIDs) > 0 {
			sb.WriteString(fmt.Sprintf("Approved pairs: %s\n\n", strings.Join(r.Hunt.ApprovedIDs, ", ")))
		}
	}

	// Approved Pairs
	sb.WriteString("## Approved Pairs\n\n")
	if len(r.ApprovedPairs) > 0 {
		sb.WriteString("| Pair | Window | Samples | ADF% | Z-Score | Beta | Half-Life | Corr30 | Corr60 | Chosen |\n")
		sb.WriteString("|------|--------|---------|------|---------|------|-----------|--------|--------|--------|\n")
		for _, p := range r.ApprovedPairs {
			sb.WriteString(fmt.Sprintf("| %sx%s | %d | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				p.Left, p.Right, p.Window, p.NSamples,
				fmtFloat(p.ADFPct, 2), fmtFloat(p.ZScore, 2), fmtFloat(p.Beta, 4),
				fmtFloat(p.HalfLife, 1), fmtFloat(p.Corr30, 2), fmtFloat(p.Corr60, 2),
				fmtWindow(p.ChosenWindow)))
		}
	} else {
		sb.WriteString("No approved pairs.\n")
	}
	sb.WriteString("\n")

	// Rejections
	sb.WriteString("## Rejections\n\n")
	if len(r.Rejections) > 0 {
		sb.WriteString("| Pair | Window | Reason |\n")
		sb.WriteString("|------|--------|--------|\n")
		for _, rej := range r.Rejections {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", rej.Label, rej.Window, rej.Reason))
		}
	} else {
		sb.WriteString("No rejections recorded.\n")
	}
	sb.WriteString("\n")

	// Window Grids
	sb.WriteString("## Window Grids\n\n")
	if len(r.Grids) > 0 {
		sb.WriteString("| Pair | Windows | Approved | Best |\n")
		sb.WriteString("|------|---------|----------|------|\n")
		for _, g := range r.Grids {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
				g.Label, joinInts(g.Windows), g.Approved, fmtWindow(g.BestWindow)))
		}
	} else {
		sb.WriteString("No grids computed.\n")
	}
	sb.WriteString("\n")

	// Errors
	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func fmtFloat(p *float64, prec int) string {
	if p == nil {
		return "--"
	}
	return fmt.Sprintf("%.*f", prec, *p)
}

func fmtWindow(p *int) string {
	if p == nil {
		return "--"
	}
	return fmt.Sprintf("%d", *p)
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "--"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ", ")
}
