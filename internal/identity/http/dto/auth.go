package dto

import (
	"encoding/base64"
	"encoding/binary"

	validation "github.com/jellydator/validation"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
	customValidation "github.com/allisson/robert/internal/validation"
)

// AuthenticatedRequest is the body shared by every authenticated endpoint. Time is the
// base64 encoding of the 16 least significant bits of the client's NTP seconds,
// big-endian.
type AuthenticatedRequest struct {
	EBID    string `json:"ebid"`
	EpochID *int64 `json:"epochId"`
	Time    string `json:"time"`
	ECC     string `json:"ecc"`
	MAC     string `json:"mac"`
}

// Validate checks presence, encodings and decoded lengths of every field.
func (r *AuthenticatedRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EBID, validation.Required, customValidation.Base64Len(identityDomain.EBIDSize)),
		validation.Field(&r.EpochID,
			validation.NotNil,
			validation.Min(int64(0)),
			validation.Max(int64(identityDomain.MaxEpochID)),
		),
		validation.Field(&r.Time, validation.Required, customValidation.Base64Len(2)),
		validation.Field(&r.ECC, validation.Required, customValidation.Base64Len(1)),
		validation.Field(&r.MAC, validation.Required, customValidation.Base64Len(identityDomain.MACSize)),
	)
}

// ToDomain converts the request for purpose. It must only be called after Validate
// succeeds.
func (r *AuthenticatedRequest) ToDomain(purpose identityDomain.Purpose) (*identityDomain.AuthRequest, error) {
	ebidBytes, err := base64.StdEncoding.DecodeString(r.EBID)
	if err != nil {
		return nil, identityDomain.ErrInvalidLength
	}
	ebid, err := identityDomain.EBIDFromBytes(ebidBytes)
	if err != nil {
		return nil, err
	}

	macBytes, err := base64.StdEncoding.DecodeString(r.MAC)
	if err != nil {
		return nil, identityDomain.ErrInvalidLength
	}
	mac, err := identityDomain.MACFromBytes(macBytes)
	if err != nil {
		return nil, err
	}

	timeBytes, err := base64.StdEncoding.DecodeString(r.Time)
	if err != nil || len(timeBytes) != 2 {
		return nil, identityDomain.ErrInvalidLength
	}
	eccBytes, err := base64.StdEncoding.DecodeString(r.ECC)
	if err != nil || len(eccBytes) != 1 {
		return nil, identityDomain.ErrInvalidLength
	}
	if r.EpochID == nil || *r.EpochID < 0 || *r.EpochID > int64(identityDomain.MaxEpochID) {
		return nil, identityDomain.ErrEpochOutOfRange
	}

	return &identityDomain.AuthRequest{
		Purpose: purpose,
		EBID:    ebid,
		EpochID: uint32(*r.EpochID),
		Time:    binary.BigEndian.Uint16(timeBytes),
		ECC:     identityDomain.ECC(eccBytes[0]),
		MAC:     mac,
	}, nil
}

// StatusResponse carries the risk flag and a fresh tuple bundle.
type StatusResponse struct {
	AtRisk bool   `json:"atRisk"`
	Tuples string `json:"tuples"`
}

// MapStatusOutputToResponse converts a status result into its response.
func MapStatusOutputToResponse(output *identityDomain.StatusOutput) StatusResponse {
	return StatusResponse{
		AtRisk: output.AtRisk,
		Tuples: base64.StdEncoding.EncodeToString(output.TupleBundle),
	}
}

// SuccessResponse acknowledges unregister and delete-history requests.
type SuccessResponse struct {
	Success bool `json:"success"`
}
