package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"pantry-bot/internal/domain/entity"
)

// MarkdownWriter выводит отчёты в Markdown.
type MarkdownWriter struct {
	output io.Writer
}

func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// WriteSession выводит состояние сессии сканирования.
func (w *MarkdownWriter) WriteSession(s entity.ScanSession) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Pantry Scan Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + s.ID + "`"},
			{"Phase", statusText(s.Phase)},
			{"Detections", strconv.Itoa(len(s.RawDetections))},
			{"Accepted labels", strconv.Itoa(len(s.Labels))},
		},
	})
	md.PlainText("")

	writeLabels(md, "New Ingredients", s.New, "Nothing new detected.")
	writeLabels(md, "Already in Inventory", s.Existing, "None of the detected items are in the inventory yet.")

	if len(s.RawDetections) > 0 {
		md.H2("Raw Detections")
		md.PlainText("")
		rows := make([][]string, len(s.RawDetections))
		for i, d := range s.RawDetections {
			rows[i] = []string{d.Label, strconv.FormatFloat(d.Confidence, 'f', 2, 64)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Label", "Confidence"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	writeResult(md, s)

	return md.Build()
}

// WriteInventory выводит записи инвентаря.
func (w *MarkdownWriter) WriteInventory(recs []entity.IngredientRecord) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Inventory")
	md.PlainText("")

	if len(recs) == 0 {
		md.Note("The inventory is empty.")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{r.ID, r.Name}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Name"},
		Rows:   rows,
	})
	md.PlainText("")

	return md.Build()
}

func writeLabels(md *markdown.Markdown, title string, labels entity.LabelSet, empty string) {
	md.H2(title)
	md.PlainText("")
	if len(labels) == 0 {
		md.PlainText(empty)
	} else {
		md.BulletList(labels...)
	}
	md.PlainText("")
}

func writeResult(md *markdown.Markdown, s entity.ScanSession) {
	switch {
	case s.Phase == entity.PhaseError && s.Err != nil && s.Err.Kind == entity.KindCommitFailed:
		md.H2("Commit Result")
		md.PlainText("")
		if s.Result != nil && len(s.Result.Succeeded) > 0 {
			md.BulletList(s.Result.Succeeded...)
			md.PlainText("")
		}
		rows := make([][]string, 0, len(s.Err.Failed))
		for _, l := range (&entity.CommitResult{Failed: s.Err.Failed}).FailedLabels() {
			rows = append(rows, []string{l, string(s.Err.Failed[l])})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Failed label", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
		md.Warningf("%d item(s) were not written. Retry or accept the partial result.", len(rows))
	case s.Phase == entity.PhaseError && s.Err != nil:
		md.Cautionf("Scan failed (%s): %s", s.Err.Kind, s.Err.Message)
	case s.Phase == entity.PhaseDone && s.Result != nil:
		md.H2("Commit Result")
		md.PlainText("")
		if len(s.Result.Succeeded) == 0 {
			md.Tip("Nothing to add, the inventory is up to date.")
		} else {
			md.BulletList(s.Result.Succeeded...)
			md.PlainText("")
			md.Tip(strconv.Itoa(len(s.Result.Succeeded)) + " item(s) added to the inventory.")
		}
	case s.Phase == entity.PhaseReviewing && len(s.New) > 0:
		md.Note("Review the new items and run again with --yes to add them.")
	default:
		return
	}
	md.PlainText("")
}

func statusText(p entity.Phase) string {
	switch p {
	case entity.PhaseDone:
		return "✅ " + string(p)
	case entity.PhaseError:
		return "❌ " + string(p)
	case entity.PhaseCancelled:
		return "✖️ " + string(p)
	default:
		return string(p)
	}
}
