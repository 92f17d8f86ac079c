// Package dto defines the request and response bodies of the keystore admin API.
package dto

import (
	validation "github.com/jellydator/validation"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	customValidation "github.com/allisson/robert/internal/validation"
)

// ReloadRequest optionally overrides the configured keystore credentials. An empty
// body reloads the configured provider.
type ReloadRequest struct {
	Provider  string `json:"provider"`
	FilePath  string `json:"file_path"`
	KMSKeyURI string `json:"kms_key_uri"`
}

// Validate checks the override fields.
func (r *ReloadRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Provider,
			validation.In(keystoreDomain.ProviderFile, keystoreDomain.ProviderSQL),
		),
		validation.Field(&r.FilePath, customValidation.NoWhitespace),
		validation.Field(&r.KMSKeyURI, customValidation.NoWhitespace),
	)
}

// ToCredentials converts the request into a credentials override.
func (r *ReloadRequest) ToCredentials() *keystoreDomain.Credentials {
	return &keystoreDomain.Credentials{
		Provider:  r.Provider,
		FilePath:  r.FilePath,
		KMSKeyURI: r.KMSKeyURI,
	}
}

// ReloadResponse acknowledges a reload.
type ReloadResponse struct {
	Status string `json:"status"`
}
