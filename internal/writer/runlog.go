package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/insightdelivered/statement-batch/internal/models"
)

const runLogName = "run_log.txt"

// writeRunLog renders the per-document outcome lines and the final
// summary. The timestamp is the only part that varies between identical
// runs.
func (w *Writer) writeRunLog(res *models.BatchResult) error {
	var b strings.Builder
	stamp := w.now().Format("2006-01-02 15:04:05")

	fmt.Fprintf(&b, "[%s] run %s\n", stamp, res.RunID)
	for _, o := range res.Outcomes {
		switch o.Kind {
		case models.OutcomeFatal:
			fmt.Fprintf(&b, "[%s] FAIL    %s | %s\n", stamp, o.SourceID, o.Reason)
		case models.OutcomePartial:
			fmt.Fprintf(&b, "[%s] PARTIAL %s | rows=%d | %s\n", stamp, o.SourceID, o.Transactions, o.Reason)
		default:
			fmt.Fprintf(&b, "[%s] DONE    %s | rows=%d\n", stamp, o.SourceID, o.Transactions)
		}
	}

	processed, succeeded, partial, failed := res.Summary()
	fmt.Fprintf(&b, "[%s] processed=%d succeeded=%d partial=%d failed=%d transactions=%d\n",
		stamp, processed, succeeded, partial, failed, len(res.Transactions))

	path := filepath.Join(w.OutDir, runLogName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing run log %q: %w", path, err)
	}
	return nil
}
