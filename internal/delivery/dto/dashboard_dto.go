package dto

type DashboardResponse struct {
	NewSubmissions       int64            `json:"new_submissions"`
	TotalSubmissions     int64            `json:"total_submissions"`
	UpcomingAppointments int64            `json:"upcoming_appointments"`
	ProfilesByRole       map[string]int64 `json:"profiles_by_role"`
}
