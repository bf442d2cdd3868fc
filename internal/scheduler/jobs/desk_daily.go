// Package jobs holds the scheduled pipeline implementations.
package jobs

import (
	"context"
	"time"

	"github.com/rcampos/macrodesk/internal/calendar"
	"github.com/rcampos/macrodesk/internal/portfolio"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// PnlSnapshotJob writes the end-of-day P&L history for every open position.
// Weekends and holidays are skipped; the desk trades the local calendar.
type PnlSnapshotJob struct {
	desk *portfolio.Desk
	cal  *calendar.Calendar
	log  *logger.Logger
}

func NewPnlSnapshotJob(desk *portfolio.Desk, cal *calendar.Calendar, log *logger.Logger) *PnlSnapshotJob {
	return &PnlSnapshotJob{desk: desk, cal: cal, log: log}
}

func (j *PnlSnapshotJob) Name() string {
	return "pnl_snapshot"
}

// Schedule fires after the B3 close, 21:00 UTC.
func (j *PnlSnapshotJob) Schedule() string {
	return "0 0 21 * * 1-5"
}

func (j *PnlSnapshotJob) Run(ctx context.Context) error {
	today := time.Now().UTC()
	if !j.cal.IsBusinessDay(today) {
		j.log.WithField("date", today.Format("2006-01-02")).Debug("Holiday, skipping P&L snapshot")
		return nil
	}

	_, err := j.desk.SnapshotDaily(ctx, today)
	return err
}

// BriefingJob assembles the end-of-day desk briefing after the snapshot.
type BriefingJob struct {
	desk *portfolio.Desk
	cal  *calendar.Calendar
	log  *logger.Logger
}

func NewBriefingJob(desk *portfolio.Desk, cal *calendar.Calendar, log *logger.Logger) *BriefingJob {
	return &BriefingJob{desk: desk, cal: cal, log: log}
}

func (j *BriefingJob) Name() string {
	return "daily_briefing"
}

// Schedule fires half an hour after the P&L snapshot.
func (j *BriefingJob) Schedule() string {
	return "0 30 21 * * 1-5"
}

func (j *BriefingJob) Run(ctx context.Context) error {
	today := time.Now().UTC()
	if !j.cal.IsBusinessDay(today) {
		return nil
	}

	b, err := j.desk.BuildBriefing(ctx, today, "")
	if err != nil {
		return err
	}

	j.log.WithFields(map[string]interface{}{
		"date":           b.BriefingDate.Format("2006-01-02"),
		"open_positions": b.OpenPositions,
		"total_pnl":      b.TotalPnl.String(),
	}).Info("Daily briefing written")

	return nil
}
