package domain

import (
	"errors"
	"strings"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

const (
	RoomDoctor        = "doctor"
	RoomPatientPrefix = "patient-"
)

var (
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrInvalidRoom     = errors.New("invalid room")
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	default:
		return "", false
	}
}

// PatientRoom is the room exclusive to one patient's sessions.
func PatientRoom(patientID string) string {
	return RoomPatientPrefix + patientID
}

// IsValidRoom accepts the shared doctor room and any non-empty patient room.
func IsValidRoom(room string) bool {
	if room == RoomDoctor {
		return true
	}
	id, ok := strings.CutPrefix(room, RoomPatientPrefix)
	return ok && id != "" && strings.TrimSpace(id) == id
}

type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "PENDING"
	StatusAccepted RegistrationStatus = "ACCEPTED"
	StatusRejected RegistrationStatus = "REJECTED"
)

func IsValidRegistrationStatus(value string) bool {
	switch RegistrationStatus(value) {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}
