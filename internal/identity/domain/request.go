package domain

import "time"

// Purpose identifies the kind of authenticated request; its value is the MAC salt.
type Purpose byte

const (
	PurposeHello         Purpose = 0x01
	PurposeStatus        Purpose = 0x02
	PurposeUnregister    Purpose = 0x03
	PurposeDeleteHistory Purpose = 0x04
)

// String returns the purpose name used in logs and metrics.
func (p Purpose) String() string {
	switch p {
	case PurposeHello:
		return "hello"
	case PurposeStatus:
		return "status"
	case PurposeUnregister:
		return "unregister"
	case PurposeDeleteHistory:
		return "delete_history"
	default:
		return "unknown"
	}
}

// AuthRequest holds the fields of an authenticated request the engine reads.
type AuthRequest struct {
	Purpose Purpose
	EBID    EBID
	EpochID uint32
	// Time is the 16 least significant bits of the client's NTP seconds.
	Time uint16
	ECC  ECC
	MAC  MAC
	// ReferenceTime replaces the server clock in drift checks when set.
	ReferenceTime time.Time
}

// HelloMessage is a proximity contact: the hello a device broadcast, as reported by
// the device that received it.
type HelloMessage struct {
	EBID EBID
	ECC  ECC
	// Time is the 16 least significant bits of the sender's NTP seconds.
	Time uint16
	MAC  MAC
	// ReceivedAt is when the reporting device received the hello.
	ReceivedAt time.Time
}

// AuthResult is returned for an accepted request.
type AuthResult struct {
	IDA          IDA
	EpochID      uint32
	CountryCode  byte
	Registration *Registration
}
