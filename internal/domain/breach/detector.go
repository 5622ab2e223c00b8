package breach

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Detector decides which fetched records are new to the store and which of
// those are worth notifying about.
type Detector struct {
	store        Store
	ignoreBefore time.Time
	log          *slog.Logger
}

// NewDetector returns a Detector. A zero ignoreBefore disables the cutoff so
// every new record is also a notification candidate.
func NewDetector(store Store, ignoreBefore time.Time, log *slog.Logger) *Detector {
	return &Detector{
		store:        store,
		ignoreBefore: ignoreBefore,
		log:          log,
	}
}

// Process inserts the fetched records in source order and splits them into
// new-to-store records and the cutoff-filtered notification set. Records below
// the cutoff are persisted but excluded from Result.Notify. A store failure
// aborts the batch for this user; records inserted before the failure remain
// stored, so a re-run picks up where this one stopped.
func (d *Detector) Process(ctx context.Context, email string, fetched []Record) (Result, error) {
	var res Result

	for _, rec := range fetched {
		inserted, err := d.store.Insert(ctx, &rec)
		if err != nil {
			return res, fmt.Errorf("recording breach %q for %s: %w", rec.Name, email, err)
		}
		if !inserted {
			continue
		}

		res.New = append(res.New, rec)
		if d.ignoreBefore.IsZero() || !rec.AddedDate.Before(d.ignoreBefore) {
			res.Notify = append(res.Notify, rec)
		} else {
			d.log.Debug("breach stored but below notification cutoff",
				"email", email,
				"breach", rec.Name,
				"added", rec.AddedDate,
			)
		}
	}

	return res, nil
}
