package zkproof

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/hash"
	"golang.org/x/sync/errgroup"

	"github.com/DanTehrani/story-form-interface/pkg/gate"
)

// Request carries everything a verification run needs: the gate's
// requirement, the form's committed parameters and the submission's own
// content hash, which binds proofs to exactly one submission.
type Request struct {
	Requirement    gate.Requirement
	MerkleRoot     string
	SubmissionHash string
	Membership     *FullProof
	Attestation    *FullProof
}

// Outcome reports the status a verification run converged to. Pending is
// true only when a caller-supplied deadline expired before all required
// checks resolved; the submission then stays Verifying, distinct from
// Invalid.
type Outcome struct {
	Status  Status         `json:"status"`
	Pending bool           `json:"pending,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Verify evaluates all proofs the gate requires and returns the aggregate
// status. Membership and attestation checks are independent and run
// concurrently; the aggregate is Verified iff every required proof
// verifies. Verification errors surface as Invalid, never as a crash or an
// indefinite Verifying.
//
// The result is a pure function of (proofs, committed parameters):
// re-verification of the same inputs re-derives the same terminal state.
func Verify(ctx context.Context, req Request) Outcome {
	switch req.Requirement {
	case gate.None, gate.AllowListOnly:
		return Outcome{Status: StatusNonexistent}
	}

	checks := map[string]func() error{
		"membership": func() error { return VerifyMembership(req.Membership, req.MerkleRoot) },
	}
	if req.Requirement == gate.MerkleMembershipAndAttestation {
		checks["attestation"] = func() error { return VerifyAttestation(req.Attestation, req.SubmissionHash) }
		checks["binding"] = func() error { return verifyCredentialBinding(req.Membership, req.Attestation) }
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := check(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		return Outcome{Status: StatusVerified}
	}
	if ctx.Err() != nil && !isProofError(err) {
		return Outcome{
			Status:  StatusVerifying,
			Pending: true,
			Details: map[string]any{"reason": "deadline expired before verification resolved"},
		}
	}
	return Outcome{Status: StatusInvalid, Details: map[string]any{"reason": err.Error()}}
}

// VerifyMembership checks an opaque membership proof against the root the
// form committed to. Fail closed: absent proof, out-of-field signals, a
// root mismatch or a broken Merkle path all reject.
func VerifyMembership(p *FullProof, committedRoot string) error {
	if p == nil {
		return fmt.Errorf("%w: membership proof required but absent", ErrProofInvalid)
	}
	root, err := signalElement(p, SignalMerkleRoot)
	if err != nil {
		return err
	}
	committed, err := parseElement(committedRoot)
	if err != nil {
		return fmt.Errorf("%w: committed merkle root: %v", ErrProofInvalid, err)
	}
	if !root.Equal(&committed) {
		return fmt.Errorf("%w: proof root %s does not match committed root %s", ErrProofInvalid, root.String(), committed.String())
	}
	if err := verifyAttestationSignalShape(p); err != nil {
		return err
	}

	var w membershipWitness
	if err := decodeBlob(p.Proof, &w); err != nil {
		return err
	}
	if len(w.ProofSet) == 0 || w.NumLeaves == 0 || w.ProofIndex >= w.NumLeaves {
		return fmt.Errorf("%w: malformed merkle witness", ErrProofInvalid)
	}
	rootBytes := root.Bytes()
	if !merkletree.VerifyProof(hash.MIMC_BN254.New(), rootBytes[:], w.ProofSet, w.ProofIndex, w.NumLeaves) {
		return fmt.Errorf("%w: merkle path does not reach committed root", ErrProofInvalid)
	}
	return nil
}

// VerifyAttestation checks that the attestation proof binds the prover's
// credential to this submission's content, preventing proof replay across
// submissions.
func VerifyAttestation(p *FullProof, submissionHash string) error {
	if p == nil {
		return fmt.Errorf("%w: attestation proof required but absent", ErrProofInvalid)
	}
	expected, err := parseElement(submissionHash)
	if err != nil {
		return fmt.Errorf("%w: submission hash: %v", ErrProofInvalid, err)
	}
	bound, err := signalElement(p, SignalSubmissionHash)
	if err != nil {
		return err
	}
	if !bound.Equal(&expected) {
		return fmt.Errorf("%w: attestation bound to a different submission", ErrProofInvalid)
	}
	attested, err := signalElement(p, SignalAttestationHash)
	if err != nil {
		return err
	}

	var w attestationWitness
	if err := decodeBlob(p.Proof, &w); err != nil {
		return err
	}
	computed, err := mimcSum(w.PreImage)
	if err != nil {
		return err
	}
	if !computed.Equal(&attested) {
		return fmt.Errorf("%w: attestation hash does not match credential", ErrProofInvalid)
	}
	return nil
}

// verifyCredentialBinding ties the two proofs to the same credential: the
// membership proof's attestation hash must equal the attestation proof's.
func verifyCredentialBinding(membership, attestation *FullProof) error {
	if membership == nil || attestation == nil {
		return fmt.Errorf("%w: both proofs required", ErrProofInvalid)
	}
	a, err := signalElement(membership, SignalAttestationHash)
	if err != nil {
		return err
	}
	b, err := signalElement(attestation, SignalAttestationHash)
	if err != nil {
		return err
	}
	if !a.Equal(&b) {
		return fmt.Errorf("%w: membership and attestation commit to different credentials", ErrProofInvalid)
	}
	return nil
}

// verifyAttestationSignalShape validates the optional attestation signals a
// membership proof carries: when present, both must be in-field and satisfy
// the square relation.
func verifyAttestationSignalShape(p *FullProof) error {
	raw, ok := p.PublicSignals[SignalAttestationHash]
	if !ok {
		return nil
	}
	a, err := parseElement(raw)
	if err != nil {
		return fmt.Errorf("%w: signal %s: %v", ErrProofInvalid, SignalAttestationHash, err)
	}
	sq, err := signalElement(p, SignalAttestationHashSquared)
	if err != nil {
		return err
	}
	var expect fr.Element
	expect.Square(&a)
	if !expect.Equal(&sq) {
		return fmt.Errorf("%w: attestation hash square relation does not hold", ErrProofInvalid)
	}
	return nil
}

func signalElement(p *FullProof, name string) (fr.Element, error) {
	raw, ok := p.PublicSignals[name]
	if !ok {
		return fr.Element{}, fmt.Errorf("%w: missing public signal %q", ErrProofInvalid, name)
	}
	e, err := parseElement(raw)
	if err != nil {
		return fr.Element{}, fmt.Errorf("%w: signal %q: %v", ErrProofInvalid, name, err)
	}
	return e, nil
}

// parseElement parses a decimal field-element string, rejecting values
// outside the BN254 scalar field.
func parseElement(s string) (fr.Element, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || n.Sign() < 0 {
		return fr.Element{}, errors.New("not a decimal field element")
	}
	if n.Cmp(fr.Modulus()) >= 0 {
		return fr.Element{}, errors.New("value out of field range")
	}
	var e fr.Element
	e.SetBigInt(n)
	return e, nil
}

func mimcSum(preimage []byte) (fr.Element, error) {
	var in fr.Element
	in.SetBytes(preimage)
	block := in.Bytes()
	h := hash.MIMC_BN254.New()
	if _, err := h.Write(block[:]); err != nil {
		return fr.Element{}, fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out, nil
}

func isProofError(err error) bool {
	return errors.Is(err, ErrProofInvalid)
}
