package models

// StudentRecord is one roster entry keyed by its normalised name.
// Grade (série), Track (curso) and RollNumber (número da chamada) are opaque.
type StudentRecord struct {
	Name       string `db:"name" json:"name"`
	Grade      string `db:"grade" json:"grade"`
	Track      string `db:"track" json:"track"`
	RollNumber string `db:"roll_number" json:"roll_number"`
}

// Identity is the student decoded from a QR payload.
type Identity struct {
	Name       string `json:"name" validate:"required"`
	Grade      string `json:"grade"`
	Track      string `json:"track"`
	RollNumber string `json:"roll_number"`
}

// Record converts the identity into the roster shape.
func (i Identity) Record() StudentRecord {
	return StudentRecord{Name: i.Name, Grade: i.Grade, Track: i.Track, RollNumber: i.RollNumber}
}
