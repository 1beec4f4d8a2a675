package library

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReportOverdue logs one warning per overdue loan and returns how many there
// were. It only reads; overdue status is never written back.
func ReportOverdue(svc Service, log *logrus.Logger) int {
	overdue := svc.OverdueTransactions()
	for _, tx := range overdue {
		log.WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"user_id":        tx.UserID,
			"user":           svc.UserName(tx.UserID),
			"book_id":        tx.BookID,
			"book":           svc.BookTitle(tx.BookID),
			"due":            tx.DueDate,
		}).Warn("loan overdue")
	}
	log.WithField("count", len(overdue)).Info("overdue report complete")
	return len(overdue)
}

// NewScheduler returns a stopped cron runner that reports overdue loans on
// schedule. Callers Start and Stop it.
func NewScheduler(svc Service, log *logrus.Logger, schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { ReportOverdue(svc, log) }); err != nil {
		return nil, fmt.Errorf("invalid overdue schedule %q: %w", schedule, err)
	}
	return c, nil
}
