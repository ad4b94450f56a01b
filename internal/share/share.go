// Package share renders a prediction into a short shareable card, as
// markdown plus a self-contained HTML page.
package share

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
)

type Summary struct {
	RequestID string `json:"request_id"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	HTML      string `json:"html"`
}

func Build(res odds.PredictionResult) (Summary, error) {
	md := buildMarkdown(res)

	var content strings.Builder
	conv := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := conv.Convert([]byte(md), &content); err != nil {
		return Summary{}, fmt.Errorf("markdown convert: %w", err)
	}

	title := fmt.Sprintf("Your Odds: %s", fmtPct(res.ProbabilityProjected))
	return Summary{
		RequestID: res.RequestID,
		Title:     title,
		Markdown:  md,
		HTML:      buildPage(title, content.String()),
	}, nil
}

func buildMarkdown(res odds.PredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Your Odds: %s\n\n", fmtPct(res.ProbabilityProjected))
	fmt.Fprintf(&b, "**Goal**: %s\n\n", sanitize(res.Goal.Statement))

	if res.Mode == odds.ReportModeDegraded {
		fmt.Fprintf(&b, "> DEGRADED: part of the goal reading fell back to defaults. Treat these odds as a rough sketch.\n\n")
	}

	fmt.Fprintf(&b, "- Domain: `%s`\n", res.Goal.Domain)
	fmt.Fprintf(&b, "- Base rate for goals like this: %s\n", fmtPct(res.ProbabilityBaseline))
	fmt.Fprintf(&b, "- Projected odds: **%s** (likely range %s to %s)\n",
		fmtPct(res.ProbabilityProjected), fmtPct(res.Interval.Low), fmtPct(res.Interval.High))
	fmt.Fprintf(&b, "- Outlook: %s\n\n", categoryLabel(res.Assessment.Category))

	if res.Assessment.Explanation != "" {
		fmt.Fprintf(&b, "%s\n\n", sanitize(res.Assessment.Explanation))
	}

	if len(res.TopFactors) > 0 {
		fmt.Fprintf(&b, "## What moves the needle\n\n")
		for _, f := range res.TopFactors {
			marker := "[+]"
			if f.Direction == odds.DirectionDrag {
				marker = "[-]"
			}
			fmt.Fprintf(&b, "- %s %s\n", marker, sanitize(f.Explanation))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(res.Assessment.Improvements) > 0 {
		fmt.Fprintf(&b, "## How to improve your odds\n\n")
		for i, s := range res.Assessment.Improvements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, sanitize(s))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "_%s_\n\n", res.Disclaimer)
	fmt.Fprintf(&b, "Generated %s\n", time.Now().UTC().Format("January 2, 2006"))
	return b.String()
}

func buildPage(title, contentHTML string) string {
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" +
		"body{font-family:-apple-system,'Segoe UI',sans-serif;max-width:640px;margin:0 auto;padding:1.5rem;color:#1c1917;}" +
		"h1{font-size:2rem;margin-bottom:0.5rem;}" +
		"blockquote{border-left:3px solid #f59e0b;background:#fffbeb;margin:0;padding:0.5rem 0.75rem;color:#78350f;}" +
		"code{background:#f5f5f4;padding:0.1rem 0.3rem;border-radius:3px;}" +
		"hr{border:0;border-top:1px solid #d6d3d1;}" +
		"</style></head><body>" +
		"<section class='odds-card'>" + contentHTML + "</section>" +
		"</body></html>"
}

// fmtPct renders a probability as a whole percent, keeping one decimal for
// the sub-1% floor so clamped values do not print as 0%.
func fmtPct(p float64) string {
	if p < 0.01 {
		return fmt.Sprintf("%.1f%%", p*100)
	}
	return fmt.Sprintf("%.0f%%", p*100)
}

func categoryLabel(c odds.OutcomeCategory) string {
	switch c {
	case odds.OutcomeHighlyLikely:
		return "Highly likely"
	case odds.OutcomeLikely:
		return "Likely"
	case odds.OutcomePossible:
		return "Possible"
	case odds.OutcomeChallenging:
		return "Challenging"
	case odds.OutcomeUnlikely:
		return "Unlikely"
	default:
		return string(c)
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
