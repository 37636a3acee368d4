package domain

import "time"

// HashAlgoSHA256 is the only supported manifest digest algorithm.
const HashAlgoSHA256 = "sha256"

// EvidenceManifest is a tamper-evident snapshot of an incident and its action
// trail. Digest is the SHA-256 of the canonical serialization of the manifest
// body excluding the integrity field; Signature is an optional detached
// signature stored verbatim.
type EvidenceManifest struct {
	ID         int64          `json:"id"`
	IncidentID int64          `json:"incident_id"`
	Manifest   map[string]any `json:"manifest"`
	HashAlgo   string         `json:"hash_algo"`
	Digest     string         `json:"digest"`
	Signature  *string        `json:"signature"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
}
