package schedule

import (
	"fmt"
	"time"

	"github.com/claude/liftplan/internal/models"
	"github.com/google/uuid"
)

// instanceNamespace seeds the name-based ids of dated instances.
var instanceNamespace = uuid.MustParse("6f0d2c4e-8a51-4f1b-9b7e-3c2a1d5e7f90")

// Instantiator clones templates into dated workouts.
// Salt separates otherwise identical (template, date) series; the same salt
// always reproduces the same ids, which keeps repeated saves idempotent.
type Instantiator struct {
	Salt string
}

// Instantiate clones template for date using an empty salt.
func Instantiate(template models.Workout, date time.Time) models.Workout {
	return Instantiator{}.Instantiate(template, date)
}

// InstanceID returns the id an instance of templateID on date receives.
func (in Instantiator) InstanceID(templateID uuid.UUID, date time.Time) uuid.UUID {
	key := templateID.String() + "|" + models.StartOfDay(date).Format(models.DateLayout) + "|" + in.Salt
	return uuid.NewSHA1(instanceNamespace, []byte(key))
}

// Instantiate returns a deep copy of template bound to date, with fresh
// derived ids and every completion flag and session result cleared.
// Set targets (reps, weight, rest, duration) carry over unchanged.
func (in Instantiator) Instantiate(template models.Workout, date time.Time) models.Workout {
	w := template.Clone()
	templateID := template.ID

	w.ID = in.InstanceID(template.ID, date)
	w.Date = models.ScheduledOn(date)
	w.TemplateID = &templateID
	w.Completed = false
	w.DurationMin = nil
	w.StartTime = nil
	w.EndTime = nil
	w.CaloriesBurned = nil

	for i := range w.Exercises {
		exID := uuid.NewSHA1(w.ID, []byte(fmt.Sprintf("exercise/%d", i)))
		w.Exercises[i].ID = exID
		for j := range w.Exercises[i].Sets {
			w.Exercises[i].Sets[j].ID = uuid.NewSHA1(exID, []byte(fmt.Sprintf("set/%d", j)))
			w.Exercises[i].Sets[j].Completed = false
		}
	}
	return w
}
