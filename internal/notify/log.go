package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
	"github.com/hackgods/clinic-booking-engine/internal/logging"
)

// LogNotifier only logs; it is the default for local runs.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logging.OrNop(logger)}
}

func (n *LogNotifier) Send(_ context.Context, notification dispatch.Notification) error {
	n.logger.Info("notification",
		zap.String("kind", string(notification.Kind)),
		zap.String("appointment_id", notification.AppointmentID),
		zap.String("patient_id", notification.Recipient.PatientID),
		zap.Any("template_data", notification.TemplateData),
	)
	return nil
}
