package store

import "database/sql"

// Stores bundles every store over one database handle.
type Stores struct {
	Users   *UserStore
	Flats   *FlatStore
	Tasks   *TaskStore
	Periods *PeriodStore
}

func New(db *sql.DB) *Stores {
	return &Stores{
		Users:   NewUserStore(db),
		Flats:   NewFlatStore(db),
		Tasks:   NewTaskStore(db),
		Periods: NewPeriodStore(db),
	}
}
