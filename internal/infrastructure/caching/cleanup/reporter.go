package cleanup

import (
	"fmt"
	"os"
	"time"

	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
)

const (
	cyan     = "\033[38;2;86;182;194m"
	dimGrey  = "\033[38;2;75;82;99m"
	grey     = "\033[38;2;110;118;129m"
	white    = "\033[38;2;171;178;191m"
	purple   = "\033[38;2;198;120;221m"
	reset    = "\033[0m"
	bold     = "\033[1m"
	tsLayout = "2006-01-02 15:04:05 MST"
)

// SweepReport summarises one sweep pass
type SweepReport struct {
	Removed        int
	Remaining      int
	LimiterEvicted int
	Duration       time.Duration
}

// Reporter prints verbose sweep summaries to the console and the session channel
type Reporter struct {
	logger *logging.ChanneledLogger
}

func NewReporter(logger *logging.ChanneledLogger) *Reporter {
	return &Reporter{logger: logger}
}

// Format renders the coloured console line
func (r *Reporter) Format(report SweepReport) string {
	count := func(label string, n int) string {
		if n > 0 {
			return fmt.Sprintf(" %s%s:%s%d", purple, label, white, n)
		}
		return fmt.Sprintf(" %s%s:%s--", dimGrey, label, dimGrey)
	}
	return fmt.Sprintf("%s%s▓ %s | session sweep%s%s%s%s %s(%v)%s\n",
		bold, cyan, time.Now().UTC().Format(tsLayout), reset,
		count("removed", report.Removed),
		count("live", report.Remaining),
		count("limiter", report.LimiterEvicted),
		grey, report.Duration, reset)
}

// Report writes the console line and a structured debug record
func (r *Reporter) Report(report SweepReport) {
	fmt.Fprint(os.Stdout, r.Format(report))
	r.logger.Session().Debug("Session sweep report",
		"removed", report.Removed, "remaining", report.Remaining,
		"limiterEvicted", report.LimiterEvicted, "duration", report.Duration)
}
