// Package gate evaluates a form's access-control settings and decides which
// proofs, if any, a submission must carry.
package gate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DanTehrani/story-form-interface/pkg/form"
)

// Requirement classifies what a submission must present.
type Requirement int

const (
	// None: the form is open; no proof and no allow-list check.
	None Requirement = iota
	// AllowListOnly: the respondent address must appear in the allow-list.
	// A direct normalized equality check, no zero-knowledge proof.
	AllowListOnly
	// MerkleMembership: a membership proof against the committed root.
	MerkleMembership
	// MerkleMembershipAndAttestation: membership plus an attestation proof
	// binding the prover's credential to this submission's content.
	MerkleMembershipAndAttestation
)

func (r Requirement) String() string {
	switch r {
	case None:
		return "none"
	case AllowListOnly:
		return "allow_list"
	case MerkleMembership:
		return "merkle_membership"
	case MerkleMembershipAndAttestation:
		return "merkle_membership_and_attestation"
	default:
		return "unknown"
	}
}

var ErrMisconfigured = errors.New("gate misconfigured")

// Classify applies the gating priority table. A Gate with neither a Merkle
// root nor an allow-list classifies as None; ValidateForPublish rejects such
// settings before they are ever published.
func Classify(s form.Settings) Requirement {
	g := s.Gate
	if g == nil {
		return None
	}
	root := strings.TrimSpace(g.MerkleRoot)
	switch {
	case root != "" && s.RespondentCriteria == form.CriteriaERC721:
		return MerkleMembershipAndAttestation
	case root != "":
		return MerkleMembership
	case len(g.AllowedAddresses) > 0:
		return AllowListOnly
	default:
		return None
	}
}

// ValidateForPublish rejects ambiguous gate settings at creation time rather
// than silently defaulting them to ungated.
func ValidateForPublish(s form.Settings) error {
	g := s.Gate
	if g == nil {
		return nil
	}
	if strings.TrimSpace(g.MerkleRoot) == "" && len(g.AllowedAddresses) == 0 {
		return fmt.Errorf("%w: gate has neither merkle root nor allow-list", ErrMisconfigured)
	}
	for _, a := range g.AllowedAddresses {
		if _, err := form.NormalizeAddress(a); err != nil {
			return fmt.Errorf("%w: %v", ErrMisconfigured, err)
		}
	}
	return nil
}

// AllowListed reports whether an address appears verbatim in the gate's
// allow-list under the pipeline's address normal form.
func AllowListed(g *form.Gate, address string) bool {
	if g == nil {
		return false
	}
	addr, err := form.NormalizeAddress(address)
	if err != nil {
		return false
	}
	for _, allowed := range g.AllowedAddresses {
		candidate, err := form.NormalizeAddress(allowed)
		if err != nil {
			continue
		}
		if candidate == addr {
			return true
		}
	}
	return false
}
