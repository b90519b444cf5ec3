package api

import (
	"errors"

	"github.com/terraincognita07/flowcast/internal/db"
	"github.com/terraincognita07/flowcast/internal/events"
	"github.com/terraincognita07/flowcast/internal/logging"
	"github.com/terraincognita07/flowcast/internal/services"
)

// Dependencies are the services the handlers delegate to.
type Dependencies struct {
	Auth     *services.AuthService
	Cycles   *services.CycleService
	Calendar *services.CalendarService
	Moods    *services.MoodService
	Users    *services.UserService
	Export   *services.ExportService
}

// NewDependencies wires the services over one set of repositories. archive
// may be nil when export archives are disabled.
func NewDependencies(repositories *db.Repositories, publisher events.Publisher, logger logging.Logger, archive services.ArchiveStore) Dependencies {
	cycles := services.NewCycleService(repositories.CycleRecords, repositories.Users, publisher, logger)
	moods := services.NewMoodService(repositories.MoodLogs)

	return Dependencies{
		Auth:     services.NewAuthService(repositories.Users, cycles),
		Cycles:   cycles,
		Calendar: services.NewCalendarService(cycles, repositories.MoodLogs),
		Moods:    moods,
		Users:    services.NewUserService(repositories.Users, cycles, moods),
		Export:   services.NewExportService(repositories.Users, repositories.CycleRecords, repositories.MoodLogs, cycles, archive),
	}
}

func (dependencies Dependencies) validate() error {
	if dependencies.Auth == nil || dependencies.Cycles == nil || dependencies.Calendar == nil ||
		dependencies.Moods == nil || dependencies.Users == nil || dependencies.Export == nil {
		return errors.New("all api dependencies are required")
	}
	return nil
}
