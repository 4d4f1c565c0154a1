package clinic

import (
	"fmt"
	"time"
)

type Doctor struct {
	ID              int64
	Name            string
	Specialty       string
	ExperienceYears int
	ImageURL        *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Clinic struct {
	ID        int64
	Name      string
	Address   *string
	Latitude  float64
	Longitude float64
}

// DoctorClinic is one doctor's practice at one clinic and its live queue state.
type DoctorClinic struct {
	ID           int64
	DoctorID     int64
	ClinicID     int64
	IsAvailable  bool
	HasArrived   bool
	CurrentToken int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DoctorClinicDetail is a pairing with the clinic it belongs to.
type DoctorClinicDetail struct {
	DoctorClinic
	ClinicName    string
	ClinicAddress *string
}

// TimeOfDay is a wall-clock offset from midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// TimeOfDayOf returns the wall-clock part of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// On places the time of day on the calendar date of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(t))
}

// ConsultingHours is one weekly window of a doctor-clinic.
type ConsultingHours struct {
	ID             int64
	DoctorClinicID int64
	DayOfWeek      time.Weekday
	StartTime      TimeOfDay
	EndTime        TimeOfDay
	MaxPatients    int
}

// Contains reports whether tod falls in [StartTime, EndTime].
func (h ConsultingHours) Contains(tod TimeOfDay) bool {
	return tod >= h.StartTime && tod <= h.EndTime
}

// Bounds is the printable form of a window, e.g. "09:00-12:00".
func (h ConsultingHours) Bounds() string {
	return h.StartTime.String() + "-" + h.EndTime.String()
}

// SearchCandidate is one pairing with the directory data search needs.
type SearchCandidate struct {
	DoctorID        int64
	DoctorName      string
	Specialty       string
	ExperienceYears int
	ClinicID        int64
	ClinicName      string
	Latitude        float64
	Longitude       float64
	DoctorClinicID  int64
	IsAvailable     bool
	HasArrived      bool
	CurrentToken    int
}

// SearchResult is a candidate with its distance from the search origin.
type SearchResult struct {
	SearchCandidate
	DistanceKm float64
}

type SearchParams struct {
	Latitude      *float64
	Longitude     *float64
	MaxDistanceKm *float64
	Specialty     string
	Query         string
}
