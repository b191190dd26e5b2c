package domain

import "time"

// ActiveDispatcher marks a user currently working the dispatch desk.
type ActiveDispatcher struct {
	ID        string
	UserID    string
	Username  string
	CreatedAt time.Time
}

// DispatchOverview is the aggregated board shown to dispatchers.
type DispatchOverview struct {
	Officers          []Officer
	Deputies          []EmsFdDeputy
	ActiveDispatchers []ActiveDispatcher
	ActiveCalls       []Call911
}

// AdminStats are aggregate counters shown on the admin dashboard.
type AdminStats struct {
	ActiveUsers       int
	PendingUsers      int
	BannedUsers       int
	CreatedCitizens   int
	DeadCitizens      int
	CitizensInBolo    int
	Vehicles          int
	ImpoundedVehicles int
	VehiclesInBolo    int
}
