package models

// StationTimetable is a simplified per-station, per-direction timetable
type StationTimetable struct {
	StationID   string           `json:"stationId"`
	StationName string           `json:"stationName"`
	Operator    string           `json:"operator"`
	Railway     string           `json:"railway"`
	Direction   string           `json:"direction"`
	Calendar    string           `json:"calendar"`
	Trains      []TimetableTrain `json:"trains"`
}

// TimetableTrain is one departure row of a station timetable
type TimetableTrain struct {
	DepartureTime string   `json:"departureTime,omitempty"`
	TrainType     string   `json:"trainType,omitempty"`
	TrainNumber   string   `json:"trainNumber,omitempty"`
	Destinations  []string `json:"destinations"`
	TrainName     string   `json:"trainName,omitempty"`
}
