// Package dto defines the request and response bodies of the identity API. Binary
// fields travel as standard base64.
package dto

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
	customValidation "github.com/allisson/robert/internal/validation"
)

// uncompressedP256PointSize is the SEC1 uncompressed size of a P-256 public key.
const uncompressedP256PointSize = 65

// RegisterRequest optionally carries the client's ECDH public key.
type RegisterRequest struct {
	ClientPublicECDHKey string `json:"clientPublicECDHKey"`
}

// Validate checks the optional public key encoding.
func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ClientPublicECDHKey, customValidation.Base64Len(uncompressedP256PointSize)),
	)
}

// ToDomain converts the request. It must only be called after Validate succeeds.
func (r *RegisterRequest) ToDomain() *identityDomain.RegisterInput {
	input := &identityDomain.RegisterInput{}
	if r.ClientPublicECDHKey != "" {
		input.ClientPublicKey, _ = base64.StdEncoding.DecodeString(r.ClientPublicECDHKey)
	}
	return input
}

// RegisterResponse is returned once per registration. The secret keys are present
// only when the server generated them.
type RegisterResponse struct {
	IDA                 string `json:"idA"`
	KeyForMac           string `json:"keyForMac,omitempty"`
	KeyForTuples        string `json:"keyForTuples,omitempty"`
	ServerPublicECDHKey string `json:"serverPublicECDHKey,omitempty"`
	Tuples              string `json:"tuples"`
	TimeStart           int64  `json:"timeStart"`
}

// MapRegisterOutputToResponse converts a registration result into its response.
func MapRegisterOutputToResponse(output *identityDomain.RegisterOutput) RegisterResponse {
	return RegisterResponse{
		IDA:                 output.IDA.String(),
		KeyForMac:           encodeOptional(output.KeyForMac),
		KeyForTuples:        encodeOptional(output.KeyForTuples),
		ServerPublicECDHKey: encodeOptional(output.ServerPublicKey),
		Tuples:              base64.StdEncoding.EncodeToString(output.TupleBundle),
		TimeStart:           output.ServiceTimeStart,
	}
}

func encodeOptional(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
